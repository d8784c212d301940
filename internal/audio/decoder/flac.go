package decoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mewkiz/flac"
)

// FLACDecoder decodes frame by frame, converting whatever bit depth the
// stream carries down (or up) to 16 bits. Frames rarely align with the
// caller's buffer, so leftover samples are held until the next call.
type FLACDecoder struct {
	stream  *flac.Stream
	meta    *Metadata
	rate    int
	chans   int
	shift   int // bits to shift toward 16-bit range; negative widens
	pending []int16
	done    bool
}

// OpenFLAC opens a FLAC file for decoding.
func OpenFLAC(path string) (*FLACDecoder, error) {
	meta := &Metadata{}
	if f, err := os.Open(path); err == nil {
		meta = readTags(f)
		f.Close()
	}

	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}

	info := stream.Info
	if info.NSamples > 0 && info.SampleRate > 0 {
		meta.Duration = time.Duration(info.NSamples) * time.Second / time.Duration(info.SampleRate)
	}

	return &FLACDecoder{
		stream: stream,
		meta:   meta,
		rate:   int(info.SampleRate),
		chans:  int(info.NChannels),
		shift:  int(info.BitsPerSample) - 16,
	}, nil
}

func (d *FLACDecoder) Format() PCMFormat {
	return PCMFormat{SampleRate: d.rate, Channels: d.chans}
}

func (d *FLACDecoder) Metadata() *Metadata {
	return d.meta
}

// DecodeInt16 fills buf with interleaved samples and returns the number
// of frames produced.
func (d *FLACDecoder) DecodeInt16(buf []int16) (int, error) {
	filled := 0
	for filled < len(buf) {
		if len(d.pending) == 0 {
			if d.done {
				break
			}
			if err := d.parseFrame(); err != nil {
				if errors.Is(err, ErrEndOfStream) {
					d.done = true
					continue
				}
				return 0, err
			}
		}
		n := copy(buf[filled:], d.pending)
		d.pending = d.pending[n:]
		filled += n
	}

	filled -= filled % d.chans
	if filled == 0 {
		return 0, ErrEndOfStream
	}
	return filled / d.chans, nil
}

func (d *FLACDecoder) parseFrame() error {
	fr, err := d.stream.ParseNext()
	if err == io.EOF {
		return ErrEndOfStream
	}
	if err != nil {
		return fmt.Errorf("flac decode failed: %w", err)
	}

	frames := len(fr.Subframes[0].Samples)
	if cap(d.pending) < frames*d.chans {
		d.pending = make([]int16, 0, frames*d.chans)
	}
	d.pending = d.pending[:0]

	for i := 0; i < frames; i++ {
		for ch := 0; ch < d.chans; ch++ {
			s := fr.Subframes[ch].Samples[i]
			if d.shift > 0 {
				s >>= d.shift
			} else if d.shift < 0 {
				s <<= -d.shift
			}
			d.pending = append(d.pending, int16(s))
		}
	}
	return nil
}

func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
