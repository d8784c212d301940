package layout

import "strings"

// ChannelLabel names the speaker role carried by one channel slot.
type ChannelLabel int

const (
	Unknown ChannelLabel = iota
	Left
	Right
	Center
	LFE
	LeftSurround
	RightSurround
	RearSurroundLeft
	RearSurroundRight
	CenterSurround
	LeftCenter
	RightCenter
)

func (l ChannelLabel) String() string {
	switch l {
	case Left:
		return "L"
	case Right:
		return "R"
	case Center:
		return "C"
	case LFE:
		return "LFE"
	case LeftSurround:
		return "Ls"
	case RightSurround:
		return "Rs"
	case RearSurroundLeft:
		return "Rls"
	case RearSurroundRight:
		return "Rrs"
	case CenterSurround:
		return "Cs"
	case LeftCenter:
		return "Lc"
	case RightCenter:
		return "Rc"
	default:
		return "?"
	}
}

// Tag identifies a canonical layout without spelling out its channels.
type Tag int

const (
	TagNone Tag = iota
	TagUseDescriptions
	TagMono
	TagStereo
	Tag51 // L R C LFE Ls Rs
	Tag71 // L R C LFE Ls Rs Lc Rc
)

// ChannelLayout is an ordered sequence of channel roles. Either Labels is
// populated (explicit per-channel roles) or only Tag is set and the layout
// must be expanded before use.
type ChannelLayout struct {
	Tag    Tag
	Labels []ChannelLabel
}

func (cl ChannelLayout) Channels() int {
	return len(cl.Labels)
}

// String renders the roles the way negotiation logs print channel maps.
func (cl ChannelLayout) String() string {
	parts := make([]string, len(cl.Labels))
	for i, l := range cl.Labels {
		parts[i] = l.String()
	}
	return strings.Join(parts, " ")
}

// KnownChannels counts the slots whose role we recognise. Zero means the
// device is not configured at the OS level.
func (cl ChannelLayout) KnownChannels() int {
	n := 0
	for _, l := range cl.Labels {
		if l != Unknown {
			n++
		}
	}
	return n
}

// Standard returns the synthesized layout for a decoded channel count.
// Only 1, 2, 6 and 8 channels have a standard layout; ok is false otherwise.
func Standard(channels int) (ChannelLayout, bool) {
	switch channels {
	case 1:
		return ChannelLayout{Tag: TagMono, Labels: []ChannelLabel{Center}}, true
	case 2:
		return ChannelLayout{Tag: TagStereo, Labels: []ChannelLabel{Left, Right}}, true
	case 6:
		return ChannelLayout{Tag: Tag51, Labels: []ChannelLabel{
			Left, Right, Center, LFE, LeftSurround, RightSurround,
		}}, true
	case 8:
		return ChannelLayout{Tag: Tag71, Labels: []ChannelLabel{
			Left, Right, Center, LFE, LeftSurround, RightSurround, LeftCenter, RightCenter,
		}}, true
	default:
		return ChannelLayout{}, false
	}
}

// Expand resolves a tag-only layout to explicit labels using the built-in
// canonical expansions. Hardware-specific tags go through the HAL instead.
func Expand(tag Tag) (ChannelLayout, bool) {
	switch tag {
	case TagMono:
		return mustStandard(1), true
	case TagStereo:
		return mustStandard(2), true
	case Tag51:
		return mustStandard(6), true
	case Tag71:
		return mustStandard(8), true
	default:
		return ChannelLayout{}, false
	}
}

func mustStandard(channels int) ChannelLayout {
	cl, _ := Standard(channels)
	return cl
}

// Silence marks a hardware channel slot with no matching source channel.
const Silence = -1

// ChannelMap maps each hardware channel slot to the index of the source
// channel feeding it, or Silence.
type ChannelMap []int

// Matched counts slots fed by a real source channel.
func (m ChannelMap) Matched() int {
	n := 0
	for _, idx := range m {
		if idx != Silence {
			n++
		}
	}
	return n
}

// BuildChannelMap reconciles the synthesized standard layout against the
// hardware layout: for each hardware slot, in hardware order, the index of
// the first standard slot with the same role, or Silence. The result always
// has exactly one entry per hardware channel description.
func BuildChannelMap(standard, hardware ChannelLayout) ChannelMap {
	m := make(ChannelMap, len(hardware.Labels))
	for i := range m {
		m[i] = Silence
	}
	for hwIdx, hwLabel := range hardware.Labels {
		if hwLabel == Unknown {
			continue
		}
		for stdIdx, stdLabel := range standard.Labels {
			if stdLabel == hwLabel {
				m[hwIdx] = stdIdx
				break // first match wins
			}
		}
	}
	return m
}
