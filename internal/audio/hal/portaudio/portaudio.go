// Package portaudio adapts the PortAudio host API to the hal interfaces.
// PortAudio has no notion of exclusive access, mixing control or physical
// stream formats, so those properties report hal.ErrNotSupported and the
// digital path degrades to analog, which is the correct behavior for the
// hardware PortAudio fronts.
package portaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/audio/layout"
)

const framesPerBuffer = 2048

// System implements hal.Hardware over PortAudio.
type System struct {
	mu      sync.Mutex
	epoch   time.Time
	devices []*portaudio.DeviceInfo
}

// New initializes PortAudio and returns the hardware handle. Callers own
// exactly one System per process and must Close it.
func New() (*System, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio initialize: %w", err)
	}
	return &System{epoch: time.Now()}, nil
}

// Close terminates PortAudio.
func (s *System) Close() error {
	return portaudio.Terminate()
}

func (s *System) refresh() ([]*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio devices: %w", err)
	}
	s.mu.Lock()
	s.devices = devs
	s.mu.Unlock()
	return devs, nil
}

// lookup resolves a DeviceID back to the portaudio device. IDs are
// 1-based indices into the last enumeration.
func (s *System) lookup(dev hal.DeviceID) (*portaudio.DeviceInfo, error) {
	s.mu.Lock()
	devs := s.devices
	s.mu.Unlock()
	if devs == nil {
		var err error
		if devs, err = s.refresh(); err != nil {
			return nil, err
		}
	}
	idx := int(dev) - 1
	if idx < 0 || idx >= len(devs) {
		return nil, hal.ErrDeviceGone
	}
	return devs[idx], nil
}

func (s *System) Devices() ([]hal.DeviceID, error) {
	devs, err := s.refresh()
	if err != nil {
		return nil, err
	}
	ids := make([]hal.DeviceID, len(devs))
	for i := range devs {
		ids[i] = hal.DeviceID(i + 1)
	}
	return ids, nil
}

func (s *System) DefaultOutputDevice() (hal.DeviceID, error) {
	devs, err := s.refresh()
	if err != nil {
		return 0, err
	}
	def, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return 0, fmt.Errorf("portaudio default output: %w", err)
	}
	for i, d := range devs {
		if d == def {
			return hal.DeviceID(i + 1), nil
		}
	}
	return 0, hal.ErrDeviceGone
}

func (s *System) DeviceName(dev hal.DeviceID) (string, error) {
	d, err := s.lookup(dev)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

func (s *System) OutputChannels(dev hal.DeviceID) (int, error) {
	d, err := s.lookup(dev)
	if err != nil {
		return 0, err
	}
	return d.MaxOutputChannels, nil
}

// SampleRateRanges probes each common rate; PortAudio reports support per
// exact rate, so every supported rate becomes a degenerate [r, r] range.
func (s *System) SampleRateRanges(dev hal.DeviceID) ([]format.RateRange, error) {
	d, err := s.lookup(dev)
	if err != nil {
		return nil, err
	}
	var ranges []format.RateRange
	for _, rate := range format.CommonRates {
		p := portaudio.HighLatencyParameters(nil, d)
		p.SampleRate = float64(rate)
		if err := portaudio.IsFormatSupported(p, func(out []int16) {}); err == nil {
			ranges = append(ranges, format.RateRange{Min: float64(rate), Max: float64(rate)})
		}
	}
	return ranges, nil
}

// Streams models each PortAudio device as a single output stream whose id
// equals the device id.
func (s *System) Streams(dev hal.DeviceID) ([]hal.StreamID, error) {
	if _, err := s.lookup(dev); err != nil {
		return nil, err
	}
	return []hal.StreamID{hal.StreamID(dev)}, nil
}

func (s *System) StreamFormats(stream hal.StreamID) ([]format.PhysicalFormat, error) {
	d, err := s.lookup(hal.DeviceID(stream))
	if err != nil {
		return nil, err
	}
	ranges, err := s.SampleRateRanges(hal.DeviceID(stream))
	if err != nil {
		return nil, err
	}
	var fmts []format.PhysicalFormat
	for _, r := range ranges {
		rate := int(r.Min)
		fmts = append(fmts, format.PCM(rate, 2, format.S16))
		if d.MaxOutputChannels > 2 {
			ch := d.MaxOutputChannels
			if ch > 8 {
				ch = 8
			}
			fmts = append(fmts, format.PCM(rate, ch, format.S16))
		}
	}
	return fmts, nil
}

func (s *System) PhysicalFormat(stream hal.StreamID) (format.PhysicalFormat, error) {
	d, err := s.lookup(hal.DeviceID(stream))
	if err != nil {
		return format.PhysicalFormat{}, err
	}
	ch := d.MaxOutputChannels
	if ch > 2 {
		ch = 2
	}
	return format.PCM(int(d.DefaultSampleRate), ch, format.S16), nil
}

func (s *System) SetPhysicalFormat(hal.StreamID, format.PhysicalFormat) error {
	return hal.ErrNotSupported
}

func (s *System) HogHolder(hal.DeviceID) (int, error) { return hal.HogNone, hal.ErrNotSupported }
func (s *System) SetHogHolder(hal.DeviceID, int) (int, error) {
	return hal.HogNone, hal.ErrNotSupported
}
func (s *System) MixingEnabled(hal.DeviceID) (bool, error)  { return true, hal.ErrNotSupported }
func (s *System) SetMixingEnabled(hal.DeviceID, bool) error { return hal.ErrNotSupported }
func (s *System) AutoHogEnabled() (bool, error)             { return false, hal.ErrNotSupported }
func (s *System) SetAutoHog(bool) error                     { return hal.ErrNotSupported }

func (s *System) LayoutForTag(tag layout.Tag) (layout.ChannelLayout, error) {
	if cl, ok := layout.Expand(tag); ok {
		return cl, nil
	}
	return layout.ChannelLayout{}, hal.ErrNotSupported
}

func (s *System) HostTime() uint64 {
	return uint64(time.Since(s.epoch))
}

// HostTimeToNanos is the identity: HostTime already counts nanoseconds.
func (s *System) HostTimeToNanos(t uint64) uint64 { return t }

func (s *System) NewUnit(dev hal.DeviceID, _ bool) (hal.Unit, error) {
	d, err := s.lookup(dev)
	if err != nil {
		return nil, err
	}
	return &unit{sys: s, dev: d}, nil
}

func (s *System) NewTap(hal.DeviceID, hal.RenderFunc) (hal.Tap, error) {
	return nil, hal.ErrNotSupported
}

func (s *System) Release() error { return nil }

// unit drives one PortAudio callback stream as the analog processing unit.
type unit struct {
	sys     *System
	dev     *portaudio.DeviceInfo
	stream  *portaudio.Stream
	fmt     format.PhysicalFormat
	fn      hal.RenderFunc
	scratch []byte
}

func (u *unit) EnableOutput() error { return nil }

func (u *unit) InputFormat() (format.PhysicalFormat, error) {
	if u.fmt.SampleRate == 0 {
		return format.PCM(int(u.dev.DefaultSampleRate), 2, format.S16), nil
	}
	return u.fmt, nil
}

func (u *unit) SetInputFormat(f format.PhysicalFormat) error {
	if f.Tag != format.TagLinearPCM || f.Float || f.BitsPerChannel != 16 {
		return fmt.Errorf("portaudio unit: unsupported input format %s", f)
	}
	p := u.params(f)
	if err := portaudio.IsFormatSupported(p, u.callback); err != nil {
		return fmt.Errorf("portaudio unit: format %s rejected: %w", f, err)
	}
	u.fmt = f
	return nil
}

func (u *unit) params(f format.PhysicalFormat) portaudio.StreamParameters {
	p := portaudio.HighLatencyParameters(nil, u.dev)
	p.Output.Channels = f.Channels
	p.SampleRate = float64(f.SampleRate)
	p.FramesPerBuffer = framesPerBuffer
	return p
}

func (u *unit) OutputLayout() (layout.ChannelLayout, error) {
	return layout.ChannelLayout{}, hal.ErrNotSupported
}

func (u *unit) SetChannelMap(layout.ChannelMap) error {
	return hal.ErrNotSupported
}

// SetInputLayout accepts any declared layout: PortAudio expects interleaved
// samples in the declared order and performs no reordering of its own.
func (u *unit) SetInputLayout(layout.ChannelLayout) error { return nil }

func (u *unit) SetRenderCallback(fn hal.RenderFunc) error {
	u.fn = fn
	return nil
}

// callback runs on the PortAudio real-time thread. It renders into a
// preallocated byte scratch buffer and unpacks to the int16 output.
func (u *unit) callback(out []int16, timeInfo portaudio.StreamCallbackTimeInfo) {
	need := len(out) * 2
	if cap(u.scratch) < need {
		// Only on the first oversized period; steady state never allocates.
		u.scratch = make([]byte, need)
	}
	buf := u.scratch[:need]
	delta := timeInfo.OutputBufferDacTime - timeInfo.CurrentTime
	if delta < 0 {
		delta = 0
	}
	hostTime := u.sys.HostTime() + uint64(delta)
	if !u.fn(buf, hostTime) {
		for i := range out {
			out[i] = 0
		}
		return
	}
	for i := range out {
		out[i] = int16(uint16(buf[2*i]) | uint16(buf[2*i+1])<<8)
	}
}

func (u *unit) Initialize() error {
	if u.fn == nil {
		return fmt.Errorf("portaudio unit: no render callback registered")
	}
	if u.fmt.SampleRate == 0 {
		return fmt.Errorf("portaudio unit: no input format set")
	}
	u.scratch = make([]byte, framesPerBuffer*u.fmt.BytesPerFrame)
	stream, err := portaudio.OpenStream(u.params(u.fmt), u.callback)
	if err != nil {
		return fmt.Errorf("portaudio unit: open stream: %w", err)
	}
	u.stream = stream
	return nil
}

func (u *unit) Start() error {
	if u.stream == nil {
		return fmt.Errorf("portaudio unit: not initialized")
	}
	if err := u.stream.Start(); err != nil {
		return fmt.Errorf("portaudio unit: start: %w", err)
	}
	return nil
}

func (u *unit) Stop() error {
	if u.stream == nil {
		return nil
	}
	return u.stream.Stop()
}

func (u *unit) Close() error {
	if u.stream == nil {
		return nil
	}
	err := u.stream.Close()
	u.stream = nil
	return err
}

func (u *unit) Volume() (float32, error) { return 0, hal.ErrNotSupported }
func (u *unit) SetVolume(float32) error  { return hal.ErrNotSupported }
