package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal"
)

func TestRatesList(t *testing.T) {
	tests := []struct {
		name   string
		ranges []format.RateRange
		want   []int
	}{
		{
			name:   "range endpoints both count",
			ranges: []format.RateRange{{Min: 44100, Max: 48000}},
			want:   []int{44100, 48000},
		},
		{
			name:   "single-rate range",
			ranges: []format.RateRange{{Min: 48000, Max: 48000}},
			want:   []int{48000},
		},
		{
			name: "overlapping ranges deduplicate",
			ranges: []format.RateRange{
				{Min: 32000, Max: 48000},
				{Min: 44100, Max: 96000},
			},
			want: []int{32000, 44100, 48000, 64000, 88200, 96000},
		},
		{
			name: "disjoint ranges stay ascending",
			ranges: []format.RateRange{
				{Min: 88200, Max: 96000},
				{Min: 8000, Max: 12000},
			},
			want: []int{8000, 11025, 12000, 88200, 96000},
		},
		{
			name:   "range with no common rate",
			ranges: []format.RateRange{{Min: 44101, Max: 47999}},
			want:   []int{},
		},
		{
			name:   "no ranges",
			ranges: nil,
			want:   []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := newFakeHardware()
			hw.rateRanges[1] = tt.ranges
			assert.Equal(t, tt.want, ratesList(hw, 1))
		})
	}
}

func TestRatesListQueryFailure(t *testing.T) {
	hw := newFakeHardware()
	hw.ratesErr = errors.New("boom")
	assert.Nil(t, ratesList(hw, 1))
}

func probeBackend(hw *fakeHardware) *NativeBackend {
	return NewNative(hw, NewAccessContext(hw), "")
}

func TestCapabilitiesDefaultsOnQueryFailure(t *testing.T) {
	hw := newFakeHardware()
	hw.ratesErr = errors.New("boom")
	hw.streamsErr = errors.New("boom")
	b := probeBackend(hw)

	caps, err := b.Capabilities(false)
	require.NoError(t, err)
	assert.Equal(t, []int{48000}, caps.Rates)
	assert.Equal(t, []int{2}, caps.Channels)
	assert.False(t, caps.Passthrough)
}

func TestCapabilitiesChannels(t *testing.T) {
	hw := newFakeHardware()
	hw.rateRanges[1] = []format.RateRange{{Min: 44100, Max: 48000}}
	hw.streams[1] = []hal.StreamID{10}
	hw.streamFormats[10] = []format.PhysicalFormat{
		format.PCM(48000, 2, format.S16),
		format.PCM(48000, 8, format.S16),
	}
	b := probeBackend(hw)

	caps, err := b.Capabilities(false)
	require.NoError(t, err)
	assert.Equal(t, []int{44100, 48000}, caps.Rates)
	// 8 channels without 6 fakes 6: the mixer can downmix 5.1 into 7.1.
	assert.Equal(t, []int{2, 6, 8}, caps.Channels)
	assert.False(t, caps.Passthrough)
}

func TestCapabilitiesPassthrough(t *testing.T) {
	hw := newFakeHardware()
	hw.rateRanges[1] = []format.RateRange{{Min: 48000, Max: 48000}}
	hw.streams[1] = []hal.StreamID{10}
	hw.streamFormats[10] = []format.PhysicalFormat{
		format.PCM(48000, 2, format.S16),
		bitstreamFormat(48000),
	}
	b := probeBackend(hw)

	caps, err := b.Capabilities(true)
	require.NoError(t, err)
	assert.True(t, caps.Passthrough)
	// A bitstream candidate implies 6 decoded channels even though the
	// format itself reports 2.
	assert.Contains(t, caps.Channels, 6)
	assert.Contains(t, caps.Channels, 2)
}

func TestCapabilitiesPassthroughReportedEvenWithoutWantDigital(t *testing.T) {
	hw := newFakeHardware()
	hw.streams[1] = []hal.StreamID{10}
	hw.streamFormats[10] = []format.PhysicalFormat{bitstreamFormat(48000)}
	b := probeBackend(hw)

	caps, err := b.Capabilities(false)
	require.NoError(t, err)
	assert.True(t, caps.Passthrough)
	// Without wantDigital the bitstream candidate does not flag 6 channels.
	assert.NotContains(t, caps.Channels, 6)
}

func TestCapabilitiesNoDevice(t *testing.T) {
	hw := newFakeHardware()
	hw.devices = nil
	hw.defaultDev = 0
	b := probeBackend(hw)

	_, err := b.Capabilities(false)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestCapabilitiesCustomBitstreamTags(t *testing.T) {
	dts := format.MakeFourCC("dts ")
	hw := newFakeHardware()
	hw.streams[1] = []hal.StreamID{10}
	hw.streamFormats[10] = []format.PhysicalFormat{{
		SampleRate: 48000, Channels: 2, Tag: dts,
	}}

	standard := probeBackend(hw)
	caps, err := standard.Capabilities(true)
	require.NoError(t, err)
	assert.False(t, caps.Passthrough)

	extended := NewNative(hw, NewAccessContext(hw), "",
		WithBitstreamTags(append(format.DefaultBitstreamTags(), dts)...))
	caps, err = extended.Capabilities(true)
	require.NoError(t, err)
	assert.True(t, caps.Passthrough)
}
