// Package audio drives playback: it decodes files into a ring buffer
// that the output backend's real-time callback drains. The feeder
// goroutine and the callback never share locks; the ring is the only
// point of contact.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acediac/mythtv/internal/audio/buffer"
	"github.com/acediac/mythtv/internal/audio/decoder"
	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/output"
	"github.com/acediac/mythtv/internal/logger"
)

var (
	ErrNoTrackLoaded  = errors.New("no track loaded")
	ErrAlreadyPlaying = errors.New("already playing")
	ErrNotPlaying     = errors.New("not playing")
)

// EngineState represents the current state of the engine
type EngineState int

const (
	StateStopped EngineState = iota
	StatePlaying
	StatePaused
	StateError
)

func (s EngineState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EngineEvent represents engine events
type EngineEvent int

const (
	EventStateChanged EngineEvent = iota
	EventTrackFinished
	EventError
)

// EventListener is a callback for engine events
type EventListener func(event EngineEvent, data interface{})

const feedChunkFrames = 4096

// Engine decodes one file at a time into the ring and manages the
// backend around it.
type Engine struct {
	backend output.Backend

	mu       sync.RWMutex
	state    EngineState
	dec      decoder.Decoder
	ring     *buffer.Ring
	rate     int
	channels int
	decoded  time.Duration // total audio pushed into the ring

	stop     chan struct{}
	done     chan struct{}
	stopping bool

	listeners  []EventListener
	listenerMu sync.RWMutex
}

// NewEngine creates an engine over the given backend.
func NewEngine(backend output.Backend) *Engine {
	return &Engine{
		backend: backend,
		state:   StateStopped,
	}
}

// Load opens the file, opens the backend for its format and starts the
// feeder. Playback begins immediately.
func (e *Engine) Load(path string, passthrough bool, ringSize int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateStopped {
		return ErrAlreadyPlaying
	}

	dec, err := decoder.Open(path)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	pcm := dec.Format()
	ring := buffer.NewRing(ringSize)

	err = e.backend.Open(output.OpenParams{
		SampleRate:  pcm.SampleRate,
		Channels:    pcm.Channels,
		Format:      format.S16,
		Passthrough: passthrough,
		Source:      ring,
	})
	if err != nil {
		dec.Close()
		return fmt.Errorf("failed to open output: %w", err)
	}

	e.dec = dec
	e.ring = ring
	e.rate = pcm.SampleRate
	e.channels = pcm.Channels
	e.decoded = 0
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.stopping = false
	e.setState(StatePlaying)

	if meta := dec.Metadata(); meta != nil {
		logger.Info("Track loaded",
			logger.String("title", meta.Title),
			logger.String("artist", meta.Artist),
			logger.Duration("duration", meta.Duration),
		)
	}

	go e.feed()
	return nil
}

// Pause pauses or resumes playback.
func (e *Engine) Pause(paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePlaying:
		if !paused {
			return nil
		}
		e.backend.Pause(true)
		e.setState(StatePaused)
	case StatePaused:
		if paused {
			return nil
		}
		e.backend.Pause(false)
		e.setState(StatePlaying)
	default:
		return ErrNotPlaying
	}
	return nil
}

// Stop halts playback and closes the backend session.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == StateStopped || e.stopping {
		e.mu.Unlock()
		return nil
	}
	e.stopping = true
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done

	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardown()
	e.setState(StateStopped)
	e.stopping = false
	return nil
}

// Wait blocks until the current track ends or Stop is called.
func (e *Engine) Wait() {
	e.mu.RLock()
	done := e.done
	e.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Position reports where the listener is in the track: everything
// decoded so far minus what is still queued in the ring and in the
// hardware.
func (e *Engine) Position() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.dec == nil || e.rate == 0 {
		return 0
	}
	queued := e.ring.Buffered() + e.backend.BufferedBytes()
	bytesPerSec := e.rate * e.channels * 2
	pending := time.Duration(queued) * time.Second / time.Duration(bytesPerSec)
	if pending > e.decoded {
		return 0
	}
	return e.decoded - pending
}

// State returns the current engine state
func (e *Engine) State() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetVolume sets the playback volume (0.0 to 1.0)
func (e *Engine) SetVolume(volume float64) error {
	return e.backend.SetVolume(volume)
}

// AddListener adds an event listener
func (e *Engine) AddListener(listener EventListener) {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	e.listeners = append(e.listeners, listener)
}

// Close stops playback and releases the backend.
func (e *Engine) Close() error {
	return e.Stop()
}

// feed decodes ahead of the callback until the track or a Stop ends it.
// It owns the write side of the ring; the callback owns the read side.
func (e *Engine) feed() {
	defer close(e.done)

	samples := make([]int16, feedChunkFrames*e.channels)
	raw := make([]byte, len(samples)*2)
	frameDur := time.Second / time.Duration(e.rate)

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		if e.ring.Free() < len(raw) {
			select {
			case <-e.stop:
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		frames, err := e.dec.DecodeInt16(samples)
		if err != nil {
			if errors.Is(err, decoder.ErrEndOfStream) {
				e.drainAndFinish()
			} else {
				logger.ErrorLog("Decode error", logger.Error(err))
				e.mu.Lock()
				e.setState(StateError)
				e.mu.Unlock()
				e.notifyListeners(EventError, err)
			}
			return
		}
		if frames == 0 {
			continue
		}

		n := frames * e.channels
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(samples[i]))
		}
		e.ring.Write(raw[:n*2])

		e.mu.Lock()
		e.decoded += frameDur * time.Duration(frames)
		e.mu.Unlock()
	}
}

// drainAndFinish lets the ring and hardware empty out before declaring
// the track done, so the tail is not cut off.
func (e *Engine) drainAndFinish() {
	for e.ring.Buffered()+e.backend.BufferedBytes() > 0 {
		select {
		case <-e.stop:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}

	e.mu.Lock()
	e.teardown()
	e.setState(StateStopped)
	e.mu.Unlock()
	e.notifyListeners(EventTrackFinished, nil)
}

// teardown closes the session; callers hold e.mu.
func (e *Engine) teardown() {
	if e.dec != nil {
		e.dec.Close()
		e.dec = nil
	}
	if err := e.backend.Close(); err != nil {
		logger.Warn("Failed to close output", logger.Error(err))
	}
}

func (e *Engine) setState(state EngineState) {
	if e.state != state {
		e.state = state
		e.notifyListeners(EventStateChanged, state)
	}
}

func (e *Engine) notifyListeners(event EngineEvent, data interface{}) {
	e.listenerMu.RLock()
	listeners := make([]EventListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenerMu.RUnlock()

	for _, listener := range listeners {
		go listener(event, data)
	}
}
