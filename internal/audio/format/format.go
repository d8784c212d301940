package format

import (
	"fmt"
	"sort"
)

// SampleFormat identifies the PCM sample encoding the player produces.
type SampleFormat int

const (
	S16 SampleFormat = iota // signed 16-bit integer
	FLT                     // 32-bit float
)

func (f SampleFormat) Bits() int {
	if f == FLT {
		return 32
	}
	return 16
}

func (f SampleFormat) String() string {
	if f == FLT {
		return "float32"
	}
	return "s16"
}

// FourCC is a four-character format tag as reported by the hardware.
type FourCC uint32

func MakeFourCC(s string) FourCC {
	if len(s) != 4 {
		return 0
	}
	return FourCC(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]))
}

func (c FourCC) String() string {
	b := [4]byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(c))
		}
	}
	return string(b[:])
}

// Well-known format tags.
var (
	TagLinearPCM = MakeFourCC("lpcm")
	TagAC3       = MakeFourCC("ac-3")
	// TagIAC3 is undocumented but reported by some drivers for encoded
	// AC-3; TagSPDIFAC3 is the documented IEC 60958 AC-3 tag.
	TagIAC3     = MakeFourCC("IAC3")
	TagSPDIFAC3 = MakeFourCC("cac3")
)

// DefaultBitstreamTags is the set of tags treated as compressed bitstream
// formats. It is a variable, not a constant set: the IAC3 tag is driver
// specific and callers may need to extend or shrink the set.
func DefaultBitstreamTags() []FourCC {
	return []FourCC{TagIAC3, TagSPDIFAC3}
}

// PhysicalFormat describes one candidate (or current) encoding of a
// hardware stream.
type PhysicalFormat struct {
	SampleRate     int
	Channels       int
	BitsPerChannel int
	Tag            FourCC
	Float          bool
	BigEndian      bool
	Mixable        bool
	BytesPerFrame  int
	BytesPerPacket int
}

// PCM builds a linear-PCM physical format for the given player settings.
func PCM(rate, channels int, sf SampleFormat) PhysicalFormat {
	bytesPerFrame := channels * sf.Bits() / 8
	return PhysicalFormat{
		SampleRate:     rate,
		Channels:       channels,
		BitsPerChannel: sf.Bits(),
		Tag:            TagLinearPCM,
		Float:          sf == FLT,
		Mixable:        true,
		BytesPerFrame:  bytesPerFrame,
		BytesPerPacket: bytesPerFrame,
	}
}

// IsBitstream reports whether the format tag is in the given bitstream set.
func (f PhysicalFormat) IsBitstream(tags []FourCC) bool {
	for _, t := range tags {
		if f.Tag == t {
			return true
		}
	}
	return false
}

// String renders the format the way negotiation logs describe it.
func (f PhysicalFormat) String() string {
	switch f.Tag {
	case TagLinearPCM:
		enc := "Signed Integer"
		if f.Float {
			enc = "Floating Point"
		}
		end := "LE"
		if f.BigEndian {
			end = "BE"
		}
		mix := ""
		if f.Mixable {
			mix = "Mixable "
		}
		return fmt.Sprintf("[%s] %s%d Channel %d-bit %s %s (%dHz)",
			f.Tag, mix, f.Channels, f.BitsPerChannel, enc, end, f.SampleRate)
	case TagAC3, TagIAC3:
		return fmt.Sprintf("[%s] AC-3/DTS (%dHz) %d Channels", f.Tag, f.SampleRate, f.Channels)
	case TagSPDIFAC3:
		end := "LE"
		if f.BigEndian {
			end = "BE"
		}
		return fmt.Sprintf("[%s] AC-3/DTS for S/PDIF %s (%dHz) %d Channels", f.Tag, end, f.SampleRate, f.Channels)
	default:
		return fmt.Sprintf("[%s]", f.Tag)
	}
}

// RateRange is a continuous sample-rate range advertised by a device.
type RateRange struct {
	Min float64
	Max float64
}

// CommonRates is the fixed ascending table of rates the prober reduces
// hardware ranges to.
var CommonRates = []int{
	8000, 11025, 12000,
	16000, 22050, 24000,
	32000, 44100, 48000,
	64000, 88200, 96000,
	128000, 176400, 192000,
}

// IsCommonRate reports whether rate appears in CommonRates.
func IsCommonRate(rate int) bool {
	i := sort.SearchInts(CommonRates, rate)
	return i < len(CommonRates) && CommonRates[i] == rate
}
