package output

import (
	"errors"
	"fmt"

	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/logger"
)

// openDigital locates a stream already capable of carrying the compressed
// bitstream at the requested rate, reformats it, hogs the device and
// registers a device-level render callback. Any failure aborts the whole
// path; the caller tears down with closeDigital unconditionally.
func (b *NativeBackend) openDigital() error {
	streams, err := b.hw.Streams(b.dev)
	if err != nil || len(streams) == 0 {
		return fmt.Errorf("digital: could not retrieve stream list: %w", err)
	}

	found := false
	for i, stream := range streams {
		formats, err := b.hw.StreamFormats(stream)
		if err != nil || len(formats) == 0 {
			continue
		}
		for _, f := range formats {
			logger.Debug("digital: considering physical format", logger.String("format", f.String()))
			if f.IsBitstream(b.bitstreamTags) && f.SampleRate == b.params.SampleRate {
				// First match wins, no further scoring.
				b.stream = stream
				b.streamIndex = i
				b.formatNew = f
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return ErrNoBitstreamFormat
	}
	logger.Info("digital: found bitstream format", logger.String("format", b.formatNew.String()))

	// Capture the stream's original physical format exactly once so
	// Close can revert it, even across a failed first attempt.
	if !b.revertFormat {
		orig, err := b.hw.PhysicalFormat(b.stream)
		if err != nil {
			logger.Warn("digital: could not retrieve original stream format", logger.Error(err))
		} else {
			b.formatOrig = orig
			b.revertFormat = true
		}
	}

	b.digitalInUse = true

	// Exclusive access management: disable the subsystem's automatic
	// hogging and do it ourselves, acquiring before mixing is disabled.
	if err := b.hw.SetAutoHog(false); err != nil && !errors.Is(err, hal.ErrNotSupported) {
		logger.Warn("digital: unable to disable auto exclusive access", logger.Error(err))
	}
	autoHog, _ := b.hw.AutoHogEnabled()
	if !autoHog {
		// Both are best effort: some drivers lack the properties and
		// the stream may still accept the bitstream format.
		b.access.SetExclusiveAccess(true)
		b.access.SetMixingEnabled(false)
	}

	if err := b.hw.SetPhysicalFormat(b.stream, b.formatNew); err != nil {
		return fmt.Errorf("digital: set stream format %s: %w", b.formatNew, err)
	}
	b.bytesPerPacket = b.formatNew.BytesPerPacket

	tap, err := b.hw.NewTap(b.dev, b.renderDigital)
	if err != nil {
		return fmt.Errorf("digital: register device callback: %w", err)
	}
	b.tap = tap
	b.digitalState = pathInitializing

	if err := tap.Start(); err != nil {
		return fmt.Errorf("digital: start device: %w", err)
	}
	b.digitalState = pathStarted
	return nil
}

// closeDigital reverts everything openDigital changed, in reverse order:
// stop and destroy the callback, revert the stream format, restore mixing,
// release exclusive access, unload lazily-held hardware resources.
// Idempotent, and safe after a partial openDigital failure.
func (b *NativeBackend) closeDigital() {
	if !b.digitalInUse {
		return
	}

	if b.tap != nil {
		if b.digitalState == pathStarted {
			if err := b.tap.Stop(); err != nil {
				logger.Warn("digital close: device stop failed", logger.Error(err))
			}
		}
		if err := b.tap.Close(); err != nil {
			logger.Warn("digital close: destroying device callback failed", logger.Error(err))
		}
		b.tap = nil
	}

	if b.revertFormat {
		if err := b.hw.SetPhysicalFormat(b.stream, b.formatOrig); err != nil {
			logger.Warn("digital close: could not revert stream format", logger.Error(err))
		}
		b.revertFormat = false
	}

	b.access.ReleaseAll()

	if err := b.hw.Release(); err != nil {
		logger.Warn("digital close: hardware release failed", logger.Error(err))
	}

	b.bytesPerPacket = 0
	b.streamIndex = -1
	b.digitalInUse = false
	b.digitalState = pathClosed
	b.wasDigital = true
}
