package output

import "github.com/acediac/mythtv/internal/audio/layout"

// RenderInto is invoked by the hardware clock once per buffer period, on
// the hardware's real-time thread. It pulls up to len(out) bytes from the
// session's source, zero-fills any underrun, reorders 8-channel PCM when
// the open negotiated that, and updates the buffered-byte estimate from
// the hardware timestamp. It never blocks, locks, allocates or logs, and
// returns false when it supplied no real data.
func (b *NativeBackend) RenderInto(out []byte, hostTime uint64) bool {
	if b.paused.Load() || b.closing.Load() {
		b.actuallyPaused.Store(true)
		return false
	}

	// Always return whatever is available; blocking here would only turn
	// a shortfall into a dropout. Missing bytes become silence.
	n := b.src.ReadAudio(out)
	for i := n; i < len(out); i++ {
		out[i] = 0
	}

	if b.reorder8 {
		layout.ReorderSMPTETo71(out, len(out)/b.bytesPerFrame, b.sampleBytes)
	}

	// Estimate the bytes in flight between this buffer's play time and
	// now. Read later by the control thread's timing query; plain atomic
	// store, single writer.
	now := b.hw.HostTime()
	var nanos uint64
	if hostTime > now {
		nanos = b.hw.HostTimeToNanos(hostTime - now)
	}
	buffered := int64(float64(nanos) / 1e9 * // secs
		float64(b.effRate) * // frames/sec
		float64(b.bytesPerFrame)) // bytes/frame
	b.bufferedBytes.Store(buffered)

	return n > 0
}

// renderDigital adapts RenderInto to the device-level callback. Some
// drivers report a grown buffer size after the first run; the packet size
// negotiated at open clamps it.
func (b *NativeBackend) renderDigital(out []byte, hostTime uint64) bool {
	if b.bytesPerPacket > 0 && len(out) > b.bytesPerPacket {
		out = out[:b.bytesPerPacket]
	}
	return b.RenderInto(out, hostTime)
}

// BufferedBytes reads the current in-hardware byte estimate without
// blocking; safe concurrently with rendering.
func (b *NativeBackend) BufferedBytes() int {
	return int(b.bufferedBytes.Load())
}
