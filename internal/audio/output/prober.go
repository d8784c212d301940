package output

import (
	"sort"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/logger"
)

const (
	channelsMin = 1
	channelsMax = 8
)

// ratesList reduces the device's advertised rate ranges to the common-rate
// table: every common rate inside a range contributes, including a range's
// exact bounds when those are themselves common. The result is ascending
// with no duplicates. A query failure yields nil; callers substitute a
// 48 kHz-only default.
func ratesList(hw hal.Hardware, dev hal.DeviceID) []int {
	ranges, err := hw.SampleRateRanges(dev)
	if err != nil {
		logger.Warn("could not query sample-rate ranges", logger.Int("device", int(dev)), logger.Error(err))
		return nil
	}

	seen := make(map[int]bool)
	for _, r := range ranges {
		for _, rate := range format.CommonRates {
			if float64(rate) >= r.Min && float64(rate) <= r.Max {
				seen[rate] = true
			}
		}
	}

	rates := make([]int, 0, len(seen))
	for rate := range seen {
		rates = append(rates, rate)
	}
	sort.Ints(rates)
	return rates
}

// channelsList enumerates every stream and candidate format and collects
// the channel counts seen. With passthru, a bitstream tag additionally
// flags 6 channels: compressed formats commonly under-report their true
// channel count as 2. ok is false when the stream query itself failed.
func (b *NativeBackend) channelsList(passthru bool) (chans [channelsMax]bool, foundDigital bool, ok bool) {
	streams, err := b.hw.Streams(b.dev)
	if err != nil || len(streams) == 0 {
		return chans, false, false
	}

	for _, stream := range streams {
		formats, err := b.hw.StreamFormats(stream)
		if err != nil || len(formats) == 0 {
			continue
		}
		for _, f := range formats {
			logger.Debug("channels scan: found format", logger.String("format", f.String()))
			if f.Channels >= channelsMin && f.Channels <= channelsMax {
				chans[f.Channels-1] = true
			}
			if passthru && f.IsBitstream(b.bitstreamTags) {
				chans[6-1] = true
				foundDigital = true
			}
		}
	}
	return chans, foundDigital, true
}

// findBitstream reports whether any stream on the device exposes a
// compressed-format tag among its candidate formats.
func (b *NativeBackend) findBitstream() bool {
	streams, err := b.hw.Streams(b.dev)
	if err != nil {
		return false
	}
	for _, stream := range streams {
		formats, err := b.hw.StreamFormats(stream)
		if err != nil {
			continue
		}
		for _, f := range formats {
			if f.IsBitstream(b.bitstreamTags) {
				logger.Debug("found bitstream-capable format", logger.String("format", f.String()))
				return true
			}
		}
	}
	return false
}

// Capabilities probes the device. Hardware-query failures are non-fatal:
// the conservative defaults are 48 kHz, stereo, no passthrough.
func (b *NativeBackend) Capabilities(wantDigital bool) (Capabilities, error) {
	if b.dev == 0 {
		return Capabilities{}, ErrDeviceNotFound
	}

	caps := Capabilities{}

	caps.Rates = ratesList(b.hw, b.dev)
	if len(caps.Rates) == 0 {
		// Error retrieving rates, assume 48kHz
		caps.Rates = []int{48000}
	}

	chans, _, ok := b.channelsList(wantDigital)
	if !ok {
		// Error retrieving channel counts, assume stereo only
		caps.Channels = []int{2}
	} else {
		// In case 8 channels are supported but not 6, fake 6
		if chans[8-1] && !chans[6-1] {
			chans[6-1] = true
		}
		for i := channelsMin; i <= channelsMax; i++ {
			if chans[i-1] {
				logger.Debug("device supports channel count", logger.Int("channels", i))
				caps.Channels = append(caps.Channels, i)
			}
		}
	}

	caps.Passthrough = b.findBitstream()
	return caps, nil
}
