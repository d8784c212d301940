package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/acediac/mythtv/internal/audio/format"
)

// OtoBackend is the zero-negotiation fallback: no device selection, no
// passthrough, no exclusive access. It pulls from the same Source contract
// as the native backend, via oto's reader-driven player.
type OtoBackend struct {
	mu      sync.Mutex
	context *oto.Context
	player  *oto.Player
	params  OpenParams
	paused  atomic.Bool
	closed  bool
	volume  float64
}

// NewOto creates the oto-based backend.
func NewOto() *OtoBackend {
	return &OtoBackend{volume: 1.0}
}

// Open creates the oto context and starts the pull loop. Passthrough is
// never available on this backend.
func (o *OtoBackend) Open(params OpenParams) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.context != nil {
		return ErrDeviceInUse
	}
	if params.Passthrough {
		return ErrPassthroughUnsupported
	}
	if params.Source == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidFormat)
	}

	sampleFormat := oto.FormatSignedInt16LE
	if params.Format == format.FLT {
		sampleFormat = oto.FormatFloat32LE
	}
	options := &oto.NewContextOptions{
		SampleRate:   params.SampleRate,
		ChannelCount: params.Channels,
		Format:       sampleFormat,
	}

	context, ready, err := oto.NewContext(options)
	if err != nil {
		return fmt.Errorf("failed to create audio context: %w", err)
	}
	<-ready

	o.context = context
	o.params = params
	o.closed = false
	o.paused.Store(false)

	o.player = context.NewPlayer(o)
	o.player.SetVolume(o.volume)
	o.player.Play()
	return nil
}

// Read feeds oto's player from the session source: silence while paused,
// zero-filled on underrun, never short and never blocking.
func (o *OtoBackend) Read(p []byte) (int, error) {
	n := 0
	if !o.paused.Load() {
		n = o.params.Source.ReadAudio(p)
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (o *OtoBackend) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	// oto contexts cannot be torn down; drop the reference.
	o.context = nil
	return nil
}

func (o *OtoBackend) Pause(paused bool) {
	o.paused.Store(paused)
}

// BufferedBytes reports what the oto player has queued but not played.
func (o *OtoBackend) BufferedBytes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return 0
	}
	return o.player.BufferedSize()
}

// Capabilities describes what oto can deliver: the default device only,
// mono or stereo PCM at the usual rates, never a bitstream.
func (o *OtoBackend) Capabilities(bool) (Capabilities, error) {
	return Capabilities{
		Rates:    []int{22050, 44100, 48000, 88200, 96000, 192000},
		Channels: []int{1, 2},
	}, nil
}

func (o *OtoBackend) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume %v out of range", ErrInvalidFormat, volume)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = volume
	if o.player != nil {
		o.player.SetVolume(volume)
	}
	return nil
}

func (o *OtoBackend) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}
