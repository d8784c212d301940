package output

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/logger"
)

// pathState is the lifecycle of one output path. Transitions only move
// forward (Closed -> Initializing -> Started) and Close resets to Closed,
// which makes idempotent teardown checkable by construction.
type pathState int

const (
	pathClosed pathState = iota
	pathInitializing
	pathStarted
)

// activePath records which path, if any, a session holds open.
type activePath int

const (
	pathNone activePath = iota
	pathAnalog
	pathDigital
)

const (
	analogOpenAttempts = 2
	analogRetryDelay   = 250 * time.Millisecond
)

// NativeBackend negotiates a digital (passthrough) or analog output path
// against the host hardware and renders on the hardware clock. One
// instance owns at most one open path; hardware-side exclusivity is
// enforced by the hardware itself, not by locking here.
type NativeBackend struct {
	hw            hal.Hardware
	access        *accessController
	dev           hal.DeviceID
	bitstreamTags []format.FourCC

	params OpenParams
	active activePath

	// analog path
	unit        hal.Unit
	analogState pathState

	// digital path
	tap            hal.Tap
	digitalState   pathState
	digitalInUse   bool
	stream         hal.StreamID
	streamIndex    int
	bytesPerPacket int
	formatOrig     format.PhysicalFormat
	formatNew      format.PhysicalFormat
	revertFormat   bool
	wasDigital     bool

	// hot fields, written by the render callback and read by the control
	// thread (or vice versa). Atomics give word-level visibility; no
	// stronger ordering is needed: one writer, one reader each.
	paused         atomic.Bool
	closing        atomic.Bool
	actuallyPaused atomic.Bool
	bufferedBytes  atomic.Int64

	// set during Open, before the callback starts; read-only afterwards
	src           Source
	bytesPerFrame int
	sampleBytes   int
	effRate       int
	reorder8      bool

	volume float64
}

// Option configures a NativeBackend.
type Option func(*NativeBackend)

// WithBitstreamTags overrides the set of format tags treated as
// compressed bitstream formats.
func WithBitstreamTags(tags ...format.FourCC) Option {
	return func(b *NativeBackend) { b.bitstreamTags = tags }
}

// NewNative builds a backend bound to the named device, or to the system
// default when deviceName is empty or not found. Any stream left stuck in
// a bitstream physical format by a previous session is reset first, so
// the default device can be resolved at all.
func NewNative(hw hal.Hardware, ctx *AccessContext, deviceName string, opts ...Option) *NativeBackend {
	b := &NativeBackend{
		hw:            hw,
		bitstreamTags: format.DefaultBitstreamTags(),
		streamIndex:   -1,
		volume:        1.0,
	}
	for _, opt := range opts {
		opt(b)
	}

	resetDevices(hw)

	b.dev = resolveDevice(hw, deviceName)
	b.access = newAccessController(ctx, b.dev)
	logger.Debug("native backend bound", logger.Int("device", int(b.dev)),
		logger.String("requested", deviceName))
	return b
}

// Device returns the endpoint this backend is bound to.
func (b *NativeBackend) Device() hal.DeviceID { return b.dev }

// Open selects and activates a path. Digital is tried first when
// passthrough is requested and torn down fully on failure; analog follows
// with a bounded retry.
func (b *NativeBackend) Open(p OpenParams) error {
	if p.Source == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidFormat)
	}
	if b.dev == 0 {
		return ErrDeviceNotFound
	}
	if b.active != pathNone {
		return ErrDeviceInUse
	}

	b.params = p
	b.src = p.Source
	b.bytesPerFrame = p.BytesPerFrame()
	b.sampleBytes = p.Format.Bits() / 8
	b.effRate = p.SampleRate
	b.reorder8 = false
	b.paused.Store(false)
	b.closing.Store(false)
	b.actuallyPaused.Store(false)
	b.bufferedBytes.Store(0)

	if p.Passthrough {
		logger.Info("open: trying digital path", logger.Int("rate", p.SampleRate))
		err := b.openDigital()
		if err == nil {
			b.active = pathDigital
			return nil
		}
		logger.Warn("digital path failed, falling back to analog", logger.Error(err))
		b.closeDigital()
	}

	var lastErr error
	for attempt := 0; attempt < analogOpenAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(analogRetryDelay)
		}
		logger.Info("open: trying analog path", logger.Int("attempt", attempt+1))
		if err := b.openAnalog(); err != nil {
			lastErr = err
			logger.Warn("analog path failed", logger.Error(err))
			b.closeAnalog()
			continue
		}
		b.active = pathAnalog
		return nil
	}

	logger.ErrorLog("could not open any audio path", logger.Error(lastErr))
	return fmt.Errorf("open audio device: %w", lastErr)
}

// Close tears down whichever path is active. Safe to call repeatedly or
// after a partially failed Open.
func (b *NativeBackend) Close() error {
	b.closing.Store(true)
	b.closeDigital()
	b.closeAnalog()
	b.active = pathNone
	return nil
}

// Pause flags the session; the render callback sees the flag on its next
// period and switches to silence without any lock.
func (b *NativeBackend) Pause(paused bool) {
	b.paused.Store(paused)
}

// ActuallyPaused reports whether the callback has observed the pause flag
// since it was last set.
func (b *NativeBackend) ActuallyPaused() bool {
	return b.actuallyPaused.Load()
}

// Passthrough reports whether the digital path carried the last Open.
func (b *NativeBackend) Passthrough() bool {
	return b.active == pathDigital
}

// SetVolume applies volume through the analog unit where available.
func (b *NativeBackend) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume %v out of range", ErrInvalidFormat, volume)
	}
	b.volume = volume
	if b.unit == nil {
		return nil
	}
	if err := b.unit.SetVolume(float32(volume)); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

func (b *NativeBackend) Volume() float64 {
	if b.unit != nil {
		if v, err := b.unit.Volume(); err == nil {
			return float64(v)
		}
	}
	return b.volume
}
