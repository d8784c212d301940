package output

import (
	"errors"
	"fmt"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/audio/layout"
	"github.com/acediac/mythtv/internal/logger"
)

// openAnalog creates a processing unit bound to the device, reconciles the
// channel layout, sets the input stream format and starts rendering.
func (b *NativeBackend) openAnalog() error {
	defaultDev, err := b.hw.DefaultOutputDevice()
	if err != nil {
		logger.Warn("could not determine default output device", logger.Error(err))
	}

	// The default-output unit variant behaves better when the target is
	// the system default; a device-bound variant otherwise.
	unit, err := b.hw.NewUnit(b.dev, b.dev == defaultDev)
	if err != nil {
		return fmt.Errorf("create output unit: %w", err)
	}
	b.unit = unit
	b.digitalInUse = false

	if err := unit.EnableOutput(); err != nil {
		logger.Warn("failed enabling unit output", logger.Error(err))
	}

	if cur, err := unit.InputFormat(); err != nil {
		logger.Warn("unable to retrieve current stream format", logger.Error(err))
	} else {
		logger.Debug("current unit format", logger.String("format", cur.String()))
	}

	mapped := b.configureChannelLayout(unit)
	b.reorder8 = !b.params.Passthrough && b.params.Channels == 8 && !mapped

	want := format.PCM(b.params.SampleRate, b.params.Channels, b.params.Format)
	if err := unit.SetInputFormat(want); err != nil {
		return fmt.Errorf("set unit input format %s: %w", want, err)
	}
	logger.Info("analog: set input format", logger.String("format", want.String()))

	if err := unit.SetRenderCallback(b.RenderInto); err != nil {
		return fmt.Errorf("register render callback: %w", err)
	}

	if err := unit.Initialize(); err != nil {
		return fmt.Errorf("initialize unit: %w", err)
	}
	b.analogState = pathInitializing

	if err := unit.Start(); err != nil {
		return fmt.Errorf("start unit: %w", err)
	}
	b.analogState = pathStarted

	if err := unit.SetVolume(float32(b.volume)); err != nil && !errors.Is(err, hal.ErrNotSupported) {
		logger.Warn("could not apply initial volume", logger.Error(err))
	}
	return nil
}

// configureChannelLayout reconciles the decoded stream's channel order
// with the hardware layout. Strategies, first success wins:
//
//  1. hardware publishes explicit per-channel roles: build an index map
//     against the synthesized standard layout and apply it directly;
//  2. hardware publishes only a layout tag: expand it, then as (1);
//  3. neither available, the map matched nothing, or the hardware
//     rejected the map: declare the standard layout wholesale and let the
//     hardware reorder.
//
// Returns true when an explicit channel map was accepted.
func (b *NativeBackend) configureChannelLayout(unit hal.Unit) bool {
	hwLayout, err := unit.OutputLayout()
	if err != nil {
		logger.Warn("driver does not support channel-layout queries", logger.Error(err))
	} else {
		if len(hwLayout.Labels) == 0 && hwLayout.Tag != layout.TagNone {
			expanded, err := b.hw.LayoutForTag(hwLayout.Tag)
			if err != nil {
				logger.Warn("cannot expand hardware layout tag", logger.Error(err))
			} else {
				hwLayout = expanded
			}
		}
		logger.Debug("hardware channel layout", logger.String("layout", hwLayout.String()),
			logger.Int("channels", hwLayout.Channels()))

		if hwLayout.Channels() > 0 && hwLayout.KnownChannels() == 0 {
			logger.Warn("audio device is not configured; set up your speaker " +
				"layout with the operating system's audio setup utility")
		} else if hwLayout.Channels() > 0 {
			if std, ok := layout.Standard(b.params.Channels); ok {
				m := layout.BuildChannelMap(std, hwLayout)
				if m.Matched() > 0 {
					if err := unit.SetChannelMap(m); err != nil {
						logger.Warn("hardware rejected explicit channel map", logger.Error(err))
					} else {
						logger.Info("channel layout set via explicit channel map")
						return true
					}
				}
			}
		}
	}

	// Wholesale layout fallback; the 8-channel case gets an additional
	// render-path swap because no tag matches the decoded order exactly.
	if std, ok := layout.Standard(b.params.Channels); ok {
		if err := unit.SetInputLayout(std); err != nil {
			logger.Warn("could not declare standard channel layout", logger.Error(err))
		} else {
			logger.Info("channel layout declared wholesale", logger.String("layout", std.String()))
		}
	}
	return false
}

// closeAnalog stops and disposes the unit. No-op when the path is closed.
func (b *NativeBackend) closeAnalog() {
	if b.unit == nil {
		return
	}
	if b.analogState == pathStarted {
		if err := b.unit.Stop(); err != nil {
			logger.Warn("analog close: unit stop failed", logger.Error(err))
		}
	}
	if err := b.unit.Close(); err != nil {
		logger.Warn("analog close: unit dispose failed", logger.Error(err))
	}
	b.unit = nil
	b.analogState = pathClosed
	b.wasDigital = false
}
