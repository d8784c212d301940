package output

import (
	"fmt"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/audio/layout"
)

// fakeHardware is a scriptable hal.Hardware. Every query answers from the
// struct fields and every mutation appends to ops, so tests can assert
// both outcomes and ordering.
type fakeHardware struct {
	devices    []hal.DeviceID
	defaultDev hal.DeviceID
	names      map[hal.DeviceID]string
	channels   map[hal.DeviceID]int

	rateRanges map[hal.DeviceID][]format.RateRange
	ratesErr   error

	streams       map[hal.DeviceID][]hal.StreamID
	streamsErr    error
	streamFormats map[hal.StreamID][]format.PhysicalFormat
	physical      map[hal.StreamID]format.PhysicalFormat
	physicalErr   error
	setFormatErr  error

	hog     map[hal.DeviceID]int
	hogErr  error
	denyHog bool // grant goes to somebody else

	mixing    map[hal.DeviceID]bool
	mixingErr error

	autoHog    bool
	autoHogErr error

	layouts map[layout.Tag]layout.ChannelLayout

	unit    *fakeUnit
	unitErr error
	tap     *fakeTap
	tapErr  error

	hostTime     uint64
	nanosPerTick uint64
	ops          []string
}

func newFakeHardware() *fakeHardware {
	return &fakeHardware{
		devices:       []hal.DeviceID{1},
		defaultDev:    1,
		names:         map[hal.DeviceID]string{1: "Built-in Output"},
		channels:      map[hal.DeviceID]int{1: 2},
		rateRanges:    map[hal.DeviceID][]format.RateRange{},
		streams:       map[hal.DeviceID][]hal.StreamID{},
		streamFormats: map[hal.StreamID][]format.PhysicalFormat{},
		physical:      map[hal.StreamID]format.PhysicalFormat{},
		hog:           map[hal.DeviceID]int{},
		mixing:        map[hal.DeviceID]bool{},
		layouts:       map[layout.Tag]layout.ChannelLayout{},
		nanosPerTick:  1,
	}
}

func (f *fakeHardware) record(op string, args ...interface{}) {
	f.ops = append(f.ops, fmt.Sprintf(op, args...))
}

func (f *fakeHardware) Devices() ([]hal.DeviceID, error) { return f.devices, nil }

func (f *fakeHardware) DefaultOutputDevice() (hal.DeviceID, error) { return f.defaultDev, nil }

func (f *fakeHardware) DeviceName(dev hal.DeviceID) (string, error) {
	name, ok := f.names[dev]
	if !ok {
		return "", hal.ErrDeviceGone
	}
	return name, nil
}

func (f *fakeHardware) OutputChannels(dev hal.DeviceID) (int, error) {
	return f.channels[dev], nil
}

func (f *fakeHardware) SampleRateRanges(dev hal.DeviceID) ([]format.RateRange, error) {
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rateRanges[dev], nil
}

func (f *fakeHardware) Streams(dev hal.DeviceID) ([]hal.StreamID, error) {
	if f.streamsErr != nil {
		return nil, f.streamsErr
	}
	return f.streams[dev], nil
}

func (f *fakeHardware) StreamFormats(stream hal.StreamID) ([]format.PhysicalFormat, error) {
	return f.streamFormats[stream], nil
}

func (f *fakeHardware) PhysicalFormat(stream hal.StreamID) (format.PhysicalFormat, error) {
	if f.physicalErr != nil {
		return format.PhysicalFormat{}, f.physicalErr
	}
	return f.physical[stream], nil
}

func (f *fakeHardware) SetPhysicalFormat(stream hal.StreamID, pf format.PhysicalFormat) error {
	f.record("SetPhysicalFormat(%d,%s)", stream, pf.Tag)
	if f.setFormatErr != nil {
		return f.setFormatErr
	}
	f.physical[stream] = pf
	return nil
}

func (f *fakeHardware) HogHolder(dev hal.DeviceID) (int, error) {
	holder, ok := f.hog[dev]
	if !ok {
		return hal.HogNone, nil
	}
	return holder, nil
}

func (f *fakeHardware) SetHogHolder(dev hal.DeviceID, pid int) (int, error) {
	f.record("SetHogHolder(%d,%d)", dev, pid)
	if f.hogErr != nil {
		return hal.HogNone, f.hogErr
	}
	if f.denyHog && pid != hal.HogNone {
		f.hog[dev] = 99999 // some other process won the race
	} else {
		f.hog[dev] = pid
	}
	return f.hog[dev], nil
}

func (f *fakeHardware) MixingEnabled(dev hal.DeviceID) (bool, error) {
	if f.mixingErr != nil {
		return false, f.mixingErr
	}
	return f.mixing[dev], nil
}

func (f *fakeHardware) SetMixingEnabled(dev hal.DeviceID, enable bool) error {
	f.record("SetMixingEnabled(%d,%v)", dev, enable)
	if f.mixingErr != nil {
		return f.mixingErr
	}
	f.mixing[dev] = enable
	return nil
}

func (f *fakeHardware) AutoHogEnabled() (bool, error) { return f.autoHog, nil }

func (f *fakeHardware) SetAutoHog(enable bool) error {
	f.record("SetAutoHog(%v)", enable)
	if f.autoHogErr != nil {
		return f.autoHogErr
	}
	f.autoHog = enable
	return nil
}

func (f *fakeHardware) LayoutForTag(tag layout.Tag) (layout.ChannelLayout, error) {
	cl, ok := f.layouts[tag]
	if !ok {
		return layout.ChannelLayout{}, hal.ErrNotSupported
	}
	return cl, nil
}

func (f *fakeHardware) HostTime() uint64 { return f.hostTime }

func (f *fakeHardware) HostTimeToNanos(delta uint64) uint64 { return delta * f.nanosPerTick }

func (f *fakeHardware) NewUnit(dev hal.DeviceID, systemDefault bool) (hal.Unit, error) {
	f.record("NewUnit(%d,%v)", dev, systemDefault)
	if f.unitErr != nil {
		return nil, f.unitErr
	}
	if f.unit == nil {
		f.unit = newFakeUnit(f)
	}
	return f.unit, nil
}

func (f *fakeHardware) NewTap(dev hal.DeviceID, fn hal.RenderFunc) (hal.Tap, error) {
	f.record("NewTap(%d)", dev)
	if f.tapErr != nil {
		return nil, f.tapErr
	}
	f.tap = &fakeTap{hw: f, fn: fn}
	return f.tap, nil
}

func (f *fakeHardware) Release() error {
	f.record("Release()")
	return nil
}

// fakeUnit is a scriptable hal.Unit.
type fakeUnit struct {
	hw *fakeHardware

	inputFormat   format.PhysicalFormat
	setFormatErr  error
	outputLayout  layout.ChannelLayout
	layoutErr     error
	channelMapErr error
	inputLayout   layout.ChannelLayout
	channelMap    layout.ChannelMap
	mapApplied    bool
	render        hal.RenderFunc
	initErr       error
	startErr      error
	started       bool
	closed        bool
	volume        float32
	volumeErr     error
}

func newFakeUnit(hw *fakeHardware) *fakeUnit {
	return &fakeUnit{hw: hw, layoutErr: hal.ErrNotSupported}
}

func (u *fakeUnit) EnableOutput() error { return nil }

func (u *fakeUnit) InputFormat() (format.PhysicalFormat, error) { return u.inputFormat, nil }

func (u *fakeUnit) SetInputFormat(pf format.PhysicalFormat) error {
	u.hw.record("Unit.SetInputFormat(%s)", pf.Tag)
	if u.setFormatErr != nil {
		return u.setFormatErr
	}
	u.inputFormat = pf
	return nil
}

func (u *fakeUnit) OutputLayout() (layout.ChannelLayout, error) {
	if u.layoutErr != nil {
		return layout.ChannelLayout{}, u.layoutErr
	}
	return u.outputLayout, nil
}

func (u *fakeUnit) SetChannelMap(m layout.ChannelMap) error {
	u.hw.record("Unit.SetChannelMap(%v)", m)
	if u.channelMapErr != nil {
		return u.channelMapErr
	}
	u.channelMap = m
	u.mapApplied = true
	return nil
}

func (u *fakeUnit) SetInputLayout(cl layout.ChannelLayout) error {
	u.hw.record("Unit.SetInputLayout(%s)", cl)
	u.inputLayout = cl
	return nil
}

func (u *fakeUnit) SetRenderCallback(fn hal.RenderFunc) error {
	u.render = fn
	return nil
}

func (u *fakeUnit) Initialize() error {
	u.hw.record("Unit.Initialize()")
	return u.initErr
}

func (u *fakeUnit) Start() error {
	u.hw.record("Unit.Start()")
	if u.startErr != nil {
		return u.startErr
	}
	u.started = true
	return nil
}

func (u *fakeUnit) Stop() error {
	u.hw.record("Unit.Stop()")
	u.started = false
	return nil
}

func (u *fakeUnit) Close() error {
	u.hw.record("Unit.Close()")
	u.closed = true
	return nil
}

func (u *fakeUnit) Volume() (float32, error) {
	if u.volumeErr != nil {
		return 0, u.volumeErr
	}
	return u.volume, nil
}

func (u *fakeUnit) SetVolume(v float32) error {
	if u.volumeErr != nil {
		return u.volumeErr
	}
	u.volume = v
	return nil
}

// fakeTap records the digital path's device-level callback lifecycle.
type fakeTap struct {
	hw      *fakeHardware
	fn      hal.RenderFunc
	started bool
	closed  bool
}

func (t *fakeTap) Start() error {
	t.hw.record("Tap.Start()")
	t.started = true
	return nil
}

func (t *fakeTap) Stop() error {
	t.hw.record("Tap.Stop()")
	t.started = false
	return nil
}

func (t *fakeTap) Close() error {
	t.hw.record("Tap.Close()")
	t.closed = true
	return nil
}

// sliceSource feeds a fixed byte slice and then underruns.
type sliceSource struct {
	data []byte
}

func (s *sliceSource) ReadAudio(p []byte) int {
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n
}

// bitstreamFormat is the canonical fake AC-3 candidate format.
func bitstreamFormat(rate int) format.PhysicalFormat {
	return format.PhysicalFormat{
		SampleRate:     rate,
		Channels:       2,
		BitsPerChannel: 16,
		Tag:            format.TagSPDIFAC3,
		BytesPerFrame:  4,
		BytesPerPacket: 6144,
	}
}
