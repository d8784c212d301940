// Package hal abstracts the host audio subsystem behind Go interfaces so
// the negotiation engine can be driven against real hardware adapters or
// scripted fakes. The surface mirrors a property-based hardware API:
// devices own streams, streams advertise candidate physical formats, and
// exclusive access ("hog"), mixing and physical format are mutable
// device/stream properties.
package hal

import (
	"errors"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/layout"
)

var (
	// ErrNotSupported marks a property the driver does not implement.
	// Hog and mixing control are commonly absent on consumer hardware;
	// callers treat this as a warning, not a failure.
	ErrNotSupported = errors.New("hal: property not supported")

	ErrDeviceGone = errors.New("hal: device disappeared")
)

// DeviceID is the opaque platform identifier of one audio endpoint.
type DeviceID uint32

// StreamID identifies one physical stream of a device.
type StreamID uint32

// HogNone is the hog-holder value of an unhogged device.
const HogNone = -1

// RenderFunc is invoked by the hardware clock once per buffer period. out
// is the destination buffer for exactly one period; hostTime is the
// hardware timestamp at which the buffer will play. The callback returns
// false when it supplied no real data, in which case the caller treats the
// buffer as pure silence. Implementations must never block.
type RenderFunc func(out []byte, hostTime uint64) bool

// Hardware is the control-plane surface of the audio subsystem. All
// methods may block briefly on hardware queries; none are called from the
// render context.
type Hardware interface {
	// Devices lists every audio endpoint currently present.
	Devices() ([]DeviceID, error)
	// DefaultOutputDevice returns the system default output endpoint.
	DefaultOutputDevice() (DeviceID, error)

	DeviceName(DeviceID) (string, error)
	// OutputChannels is the device's total output channel count, summed
	// across its output streams. Zero means the device has no output side.
	OutputChannels(DeviceID) (int, error)
	// SampleRateRanges returns the advertised nominal-rate ranges.
	SampleRateRanges(DeviceID) ([]format.RateRange, error)

	Streams(DeviceID) ([]StreamID, error)
	// StreamFormats lists the candidate physical formats of a stream.
	StreamFormats(StreamID) ([]format.PhysicalFormat, error)
	// PhysicalFormat reads the format the stream currently carries.
	PhysicalFormat(StreamID) (format.PhysicalFormat, error)
	// SetPhysicalFormat reconfigures the stream's physical format.
	SetPhysicalFormat(StreamID, format.PhysicalFormat) error

	// HogHolder returns the pid holding exclusive access, or HogNone.
	HogHolder(DeviceID) (int, error)
	// SetHogHolder requests or releases exclusive access. The primitive
	// is a toggle: it reports the new holder pid rather than success, and
	// the caller must compare that against its own pid.
	SetHogHolder(DeviceID, int) (int, error)

	MixingEnabled(DeviceID) (bool, error)
	SetMixingEnabled(DeviceID, bool) error

	// AutoHogEnabled reports whether the subsystem hogs devices on the
	// caller's behalf when an exclusive format is set.
	AutoHogEnabled() (bool, error)
	SetAutoHog(bool) error

	// LayoutForTag expands a platform layout tag into explicit roles.
	LayoutForTag(layout.Tag) (layout.ChannelLayout, error)

	// HostTime reads the hardware clock.
	HostTime() uint64
	// HostTimeToNanos converts a host-clock delta to nanoseconds. Must be
	// cheap and lock free: the render callback calls it.
	HostTimeToNanos(uint64) uint64

	// NewUnit creates a processing unit bound to the device for the
	// analog path. systemDefault selects the default-output variant.
	NewUnit(dev DeviceID, systemDefault bool) (Unit, error)
	// NewTap registers a device-level render callback for the digital
	// path. The callback stays registered until the tap is closed.
	NewTap(dev DeviceID, fn RenderFunc) (Tap, error)

	// Release drops lazily-held platform resources. Called after digital
	// teardown.
	Release() error
}

// Unit is a virtual audio-processing unit bound to one device. Lifecycle:
// configure, SetRenderCallback, Initialize, Start; Stop/Close tear down.
type Unit interface {
	// EnableOutput makes sure the unit's output side does IO.
	EnableOutput() error

	InputFormat() (format.PhysicalFormat, error)
	SetInputFormat(format.PhysicalFormat) error

	// OutputLayout reports the channel layout of the device side of the
	// unit, when the driver publishes one.
	OutputLayout() (layout.ChannelLayout, error)
	// SetChannelMap applies an explicit per-output-slot source index map.
	SetChannelMap(layout.ChannelMap) error
	// SetInputLayout declares the layout of the samples the render
	// callback supplies, letting the unit do its own reordering.
	SetInputLayout(layout.ChannelLayout) error

	SetRenderCallback(RenderFunc) error

	Initialize() error
	Start() error
	Stop() error
	Close() error

	Volume() (float32, error)
	SetVolume(float32) error
}

// Tap is a registered device-level render callback.
type Tap interface {
	Start() error
	Stop() error
	Close() error
}
