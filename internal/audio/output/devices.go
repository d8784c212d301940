package output

import (
	"time"

	"github.com/acediac/mythtv/internal/audio/format"
	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/logger"
)

// formatSettleDelay gives a driver time to apply a physical-format change
// before the stream is touched again.
var formatSettleDelay = time.Second

// EnumerateDevices maps display names to device identifiers for every
// endpoint with at least one output channel. Devices are discovered fresh
// on each call; hardware can appear and disappear at any time.
func EnumerateDevices(hw hal.Hardware) map[string]hal.DeviceID {
	out := make(map[string]hal.DeviceID)
	devs, err := hw.Devices()
	if err != nil {
		logger.Warn("unable to enumerate audio devices", logger.Error(err))
		return out
	}
	for _, dev := range devs {
		channels, err := hw.OutputChannels(dev)
		if err != nil || channels == 0 {
			continue
		}
		name, err := hw.DeviceName(dev)
		if err != nil {
			continue
		}
		out[name] = dev
	}
	return out
}

// resolveDevice finds the device with the given display name, falling back
// to the system default when the name is empty or not found.
func resolveDevice(hw hal.Hardware, name string) hal.DeviceID {
	if name != "" {
		for devName, dev := range EnumerateDevices(hw) {
			if devName == name {
				return dev
			}
		}
	}
	def, err := hw.DefaultOutputDevice()
	if err != nil {
		logger.Warn("could not resolve default output device", logger.Error(err))
		return 0
	}
	if name != "" {
		logger.Warn("device not found, using default output device",
			logger.String("requested", name), logger.Int("device", int(def)))
	}
	return def
}

// resetDevices puts any stream still stuck in a bitstream physical format
// back to linear PCM. A session that crashed mid-passthrough leaves the
// device non-mixable and invisible as a default output until this runs.
func resetDevices(hw hal.Hardware) {
	devs, err := hw.Devices()
	if err != nil {
		logger.Warn("device reset: unable to enumerate devices", logger.Error(err))
		return
	}
	for _, dev := range devs {
		streams, err := hw.Streams(dev)
		if err != nil {
			continue
		}
		for _, stream := range streams {
			resetStream(hw, stream)
		}
	}
}

func resetStream(hw hal.Hardware, stream hal.StreamID) {
	current, err := hw.PhysicalFormat(stream)
	if err != nil || !current.IsBitstream(format.DefaultBitstreamTags()) {
		return
	}
	formats, err := hw.StreamFormats(stream)
	if err != nil {
		return
	}
	for _, f := range formats {
		if f.Tag != format.TagLinearPCM {
			continue
		}
		logger.Info("resetting stream stuck in bitstream format",
			logger.Int("stream", int(stream)), logger.String("format", f.String()))
		if err := hw.SetPhysicalFormat(stream, f); err != nil {
			logger.Warn("could not reset stream physical format",
				logger.Int("stream", int(stream)), logger.Error(err))
			continue
		}
		time.Sleep(formatSettleDelay)
		return
	}
}
