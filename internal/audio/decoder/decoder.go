// Package decoder turns compressed audio files into interleaved signed
// 16-bit PCM for the playback engine. It decodes only; resampling and
// channel-layout work belong to the output layer.
package decoder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEndOfStream       = errors.New("end of stream")
)

// PCMFormat describes the decoded stream.
type PCMFormat struct {
	SampleRate int
	Channels   int
}

// Metadata is what the tags of the file say about it.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Decoder yields interleaved int16 samples. DecodeInt16 returns the
// number of frames (samples per channel) written; ErrEndOfStream once the
// stream is exhausted.
type Decoder interface {
	DecodeInt16(buf []int16) (int, error)
	Format() PCMFormat
	Metadata() *Metadata
	Close() error
}

// Open creates a decoder for the file based on its extension.
func Open(path string) (Decoder, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp3":
		return OpenMP3(path)
	case "flac":
		return OpenFLAC(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Supported reports whether the file extension has a decoder.
func Supported(path string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp3", "flac":
		return true
	}
	return false
}
