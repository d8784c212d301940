package output

import (
	"errors"

	"github.com/acediac/mythtv/internal/audio/format"
)

var (
	ErrDeviceNotFound         = errors.New("audio device not found")
	ErrDeviceInUse            = errors.New("audio device is in use")
	ErrInvalidFormat          = errors.New("invalid audio format")
	ErrNoBitstreamFormat      = errors.New("no bitstream-capable format matches the requested rate")
	ErrPassthroughUnsupported = errors.New("passthrough not supported by this backend")
	ErrNotOpen                = errors.New("output not open")
)

// Source is the external buffer the render path pulls from. ReadAudio
// copies up to len(p) bytes into p and returns how many were available.
// It is called from the hardware's real-time context and must never block.
type Source interface {
	ReadAudio(p []byte) int
}

// OpenParams describes the stream the player wants to deliver.
type OpenParams struct {
	SampleRate int
	Channels   int
	Format     format.SampleFormat
	// Passthrough requests a compressed bitstream path; the decoded
	// channel count still describes the payload (AC-3 commonly 6).
	Passthrough bool
	Source      Source
}

// BytesPerFrame is the size of one interleaved frame at these parameters.
func (p OpenParams) BytesPerFrame() int {
	return p.Channels * p.Format.Bits() / 8
}

// Capabilities is the result of probing a device before Open.
type Capabilities struct {
	Rates       []int
	Channels    []int
	Passthrough bool
}

// Backend is the contract between the player and one hardware backend.
// Open negotiates and activates an output path; after a successful Open
// the backend pulls from the Source on the hardware's schedule until
// Close. All methods except BufferedBytes run on the control thread.
type Backend interface {
	// Open activates an output path for the given parameters.
	// ErrDeviceNotFound means no usable device exists.
	Open(params OpenParams) error

	// Close tears down whichever path is active. Idempotent.
	Close() error

	// Pause stops the pull without tearing the path down; the hardware
	// keeps running on silence.
	Pause(paused bool)

	// BufferedBytes is a non-blocking estimate of bytes currently in
	// flight in the hardware pipeline. Safe to call concurrently with
	// rendering.
	BufferedBytes() int

	// Capabilities probes the device. wantDigital widens the channel
	// scan to bitstream formats.
	Capabilities(wantDigital bool) (Capabilities, error)

	// SetVolume sets output volume in [0, 1] where supported.
	SetVolume(volume float64) error
	Volume() float64
}
