package decoder

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder wraps go-mp3, which always emits 16-bit little-endian
// stereo regardless of the source channel count.
type MP3Decoder struct {
	file    *os.File
	dec     *mp3.Decoder
	meta    *Metadata
	scratch []byte
	done    bool
}

// OpenMP3 opens an MP3 file for decoding. Tag parsing is best-effort;
// a file with broken tags still plays.
func OpenMP3(path string) (*MP3Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	meta := readTags(f)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	// Length is in output bytes: 4 bytes per stereo frame.
	if total := dec.Length(); total > 0 {
		frames := total / 4
		meta.Duration = time.Duration(frames) * time.Second / time.Duration(dec.SampleRate())
	}

	return &MP3Decoder{file: f, dec: dec, meta: meta}, nil
}

func (d *MP3Decoder) Format() PCMFormat {
	return PCMFormat{SampleRate: d.dec.SampleRate(), Channels: 2}
}

func (d *MP3Decoder) Metadata() *Metadata {
	return d.meta
}

// DecodeInt16 fills buf with interleaved stereo samples and returns the
// number of frames produced.
func (d *MP3Decoder) DecodeInt16(buf []int16) (int, error) {
	if d.done {
		return 0, ErrEndOfStream
	}

	want := len(buf) * 2
	if cap(d.scratch) < want {
		d.scratch = make([]byte, want)
	}
	raw := d.scratch[:want]

	n, err := io.ReadFull(d.dec, raw)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		d.done = true
		if n == 0 {
			return 0, ErrEndOfStream
		}
	} else if err != nil {
		return 0, fmt.Errorf("mp3 decode failed: %w", err)
	}

	n -= n % 4 // whole stereo frames only
	for i := 0; i < n/2; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return n / 4, nil
}

func (d *MP3Decoder) Close() error {
	return d.file.Close()
}

func readTags(r io.ReadSeeker) *Metadata {
	meta := &Metadata{}
	if m, err := tag.ReadFrom(r); err == nil {
		meta.Title = m.Title()
		meta.Artist = m.Artist()
		meta.Album = m.Album()
	}
	return meta
}
