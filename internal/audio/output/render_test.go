package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acediac/mythtv/internal/audio/layout"
)

func openedAnalog(t *testing.T, hw *fakeHardware, channels int, src Source) *NativeBackend {
	t.Helper()
	b := NewNative(hw, NewAccessContext(hw), "")
	require.NoError(t, b.Open(analogParams(channels, src)))
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRenderUnderrunZeroFills(t *testing.T) {
	hw := newFakeHardware()
	b := openedAnalog(t, hw, 2, &sliceSource{data: []byte{1, 2, 3, 4}})

	out := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	got := b.RenderInto(out, 0)

	assert.True(t, got, "partial data still counts as real output")
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, out)
}

func TestRenderEmptySourceReportsSilence(t *testing.T) {
	hw := newFakeHardware()
	b := openedAnalog(t, hw, 2, &sliceSource{})

	out := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	assert.False(t, b.RenderInto(out, 0))
	assert.Equal(t, []byte{0, 0, 0, 0}, out, "stale buffer contents never leak out")
}

func TestRenderWhileClosingReportsSilence(t *testing.T) {
	hw := newFakeHardware()
	src := &sliceSource{data: []byte{1, 2, 3, 4}}
	b := openedAnalog(t, hw, 2, src)

	b.closing.Store(true)
	out := make([]byte, 4)
	assert.False(t, b.RenderInto(out, 0))
	assert.Len(t, src.data, 4, "closing render must not consume the source")
}

func TestRenderBufferedEstimate(t *testing.T) {
	hw := newFakeHardware()
	hw.hostTime = 1_000_000
	hw.nanosPerTick = 1 // host ticks are nanoseconds
	// 48kHz stereo s16: 192000 bytes per second.
	b := openedAnalog(t, hw, 2, &sliceSource{data: make([]byte, 64)})

	out := make([]byte, 16)

	// Buffer plays half a second from now.
	b.RenderInto(out, hw.hostTime+500_000_000)
	assert.Equal(t, 96000, b.BufferedBytes())

	// A timestamp in the past means nothing is buffered.
	b.RenderInto(out, hw.hostTime-1)
	assert.Equal(t, 0, b.BufferedBytes())
}

func TestRenderReorders8ChannelAudio(t *testing.T) {
	hw := newFakeHardware()
	hw.unit = newFakeUnit(hw)
	hw.unit.layoutErr = nil
	std8, _ := layout.Standard(8)
	hw.unit.outputLayout = std8
	hw.unit.channelMapErr = errors.New("rejected")

	// One 16-bit frame in decoded order L R C LFE Rls Rrs Ls Rs.
	var frame []byte
	for ch := byte(0); ch < 8; ch++ {
		frame = append(frame, ch, 0)
	}
	b := openedAnalog(t, hw, 8, &sliceSource{data: frame})
	require.True(t, b.reorder8)

	out := make([]byte, 16)
	require.True(t, b.RenderInto(out, 0))

	order := make([]byte, 8)
	for ch := 0; ch < 8; ch++ {
		order[ch] = out[ch*2]
	}
	assert.Equal(t, []byte{0, 1, 2, 3, 6, 7, 4, 5}, order)
}

func TestRenderDigitalClampsToPacketSize(t *testing.T) {
	hw := digitalFixture()
	b := NewNative(hw, NewAccessContext(hw), "")
	src := &sliceSource{data: make([]byte, 16384)}
	for i := range src.data {
		src.data[i] = 0xAB
	}
	require.NoError(t, b.Open(digitalParams(src)))
	defer b.Close()

	// The driver hands over a buffer larger than the negotiated packet.
	out := make([]byte, 8192)
	require.True(t, hw.tap.fn(out, 0))

	assert.Equal(t, byte(0xAB), out[6143], "packet filled to its negotiated size")
	assert.Equal(t, byte(0), out[6144], "bytes past the packet stay untouched")
	assert.Len(t, src.data, 16384-6144, "exactly one packet consumed")
}
