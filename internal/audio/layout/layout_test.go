package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandard(t *testing.T) {
	tests := []struct {
		channels int
		ok       bool
		want     []ChannelLabel
	}{
		{channels: 1, ok: true, want: []ChannelLabel{Center}},
		{channels: 2, ok: true, want: []ChannelLabel{Left, Right}},
		{channels: 6, ok: true, want: []ChannelLabel{Left, Right, Center, LFE, LeftSurround, RightSurround}},
		{channels: 8, ok: true, want: []ChannelLabel{Left, Right, Center, LFE, LeftSurround, RightSurround, LeftCenter, RightCenter}},
		{channels: 0, ok: false},
		{channels: 3, ok: false},
		{channels: 7, ok: false},
	}

	for _, tt := range tests {
		cl, ok := Standard(tt.channels)
		assert.Equal(t, tt.ok, ok, "channels=%d", tt.channels)
		if tt.ok {
			assert.Equal(t, tt.want, cl.Labels)
			assert.Equal(t, tt.channels, cl.Channels())
		}
	}
}

func TestExpand(t *testing.T) {
	cl, ok := Expand(Tag51)
	require.True(t, ok)
	assert.Equal(t, 6, cl.Channels())

	_, ok = Expand(TagNone)
	assert.False(t, ok)
	_, ok = Expand(TagUseDescriptions)
	assert.False(t, ok)
}

func TestKnownChannels(t *testing.T) {
	cl := ChannelLayout{Labels: []ChannelLabel{Left, Unknown, Right, Unknown}}
	assert.Equal(t, 2, cl.KnownChannels())

	unconfigured := ChannelLayout{Labels: []ChannelLabel{Unknown, Unknown}}
	assert.Equal(t, 0, unconfigured.KnownChannels())
}

func TestLayoutString(t *testing.T) {
	cl, _ := Standard(6)
	assert.Equal(t, "L R C LFE Ls Rs", cl.String())
}

func TestBuildChannelMap(t *testing.T) {
	std, _ := Standard(6)

	t.Run("hardware in different order", func(t *testing.T) {
		hw := ChannelLayout{Labels: []ChannelLabel{Center, Left, Right, LeftSurround, RightSurround, LFE}}
		m := BuildChannelMap(std, hw)
		require.Len(t, m, 6)
		assert.Equal(t, ChannelMap{2, 0, 1, 4, 5, 3}, m)
		assert.Equal(t, 6, m.Matched())
	})

	t.Run("unknown hardware slots stay silent", func(t *testing.T) {
		hw := ChannelLayout{Labels: []ChannelLabel{Left, Right, Unknown, Unknown}}
		m := BuildChannelMap(std, hw)
		assert.Equal(t, ChannelMap{0, 1, Silence, Silence}, m)
		assert.Equal(t, 2, m.Matched())
	})

	t.Run("roles absent from the source stay silent", func(t *testing.T) {
		stereo, _ := Standard(2)
		hw := ChannelLayout{Labels: []ChannelLabel{Left, Right, Center, LFE}}
		m := BuildChannelMap(stereo, hw)
		assert.Equal(t, ChannelMap{0, 1, Silence, Silence}, m)
	})

	t.Run("one entry per hardware channel", func(t *testing.T) {
		hw := ChannelLayout{Labels: []ChannelLabel{Center, Center, Center}}
		m := BuildChannelMap(std, hw)
		assert.Len(t, m, 3)
	})
}

func TestReorderSMPTETo71(t *testing.T) {
	t.Run("16-bit", func(t *testing.T) {
		// Two frames, samples numbered by input channel slot:
		// SMPTE [L R C LFE Rls Rrs Ls Rs] becomes [L R C LFE Ls Rs Rls Rrs].
		frame := func(base byte) []byte {
			var buf []byte
			for ch := byte(0); ch < 8; ch++ {
				buf = append(buf, base+ch, 0xAA)
			}
			return buf
		}
		buf := append(frame(0x10), frame(0x20)...)

		ReorderSMPTETo71(buf, 2, 2)

		want := []byte{
			0x10, 0xAA, 0x11, 0xAA, 0x12, 0xAA, 0x13, 0xAA, // L R C LFE untouched
			0x16, 0xAA, 0x17, 0xAA, 0x14, 0xAA, 0x15, 0xAA, // Ls Rs Rls Rrs
			0x20, 0xAA, 0x21, 0xAA, 0x22, 0xAA, 0x23, 0xAA,
			0x26, 0xAA, 0x27, 0xAA, 0x24, 0xAA, 0x25, 0xAA,
		}
		assert.Equal(t, want, buf)
	})

	t.Run("8-bit", func(t *testing.T) {
		buf := []byte{0, 1, 2, 3, 4, 5, 6, 7}
		ReorderSMPTETo71(buf, 1, 1)
		assert.Equal(t, []byte{0, 1, 2, 3, 6, 7, 4, 5}, buf)
	})

	t.Run("32-bit", func(t *testing.T) {
		buf := make([]byte, 32)
		for ch := 0; ch < 8; ch++ {
			for b := 0; b < 4; b++ {
				buf[ch*4+b] = byte(ch)
			}
		}
		ReorderSMPTETo71(buf, 1, 4)
		order := make([]byte, 8)
		for ch := 0; ch < 8; ch++ {
			order[ch] = buf[ch*4]
		}
		assert.Equal(t, []byte{0, 1, 2, 3, 6, 7, 4, 5}, order)
	})

	t.Run("zero frames is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() { ReorderSMPTETo71(nil, 0, 2) })
	})
}
