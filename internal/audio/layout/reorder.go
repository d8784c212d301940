package layout

// ReorderSMPTETo71 rewrites every 8-channel frame in buf from SMPTE order
// [L R C LFE Rls Rrs Ls Rs] to the unit's expected [L R C LFE Ls Rs Rls Rrs]
// by rotating the last four channels. Used when the hardware rejected an
// explicit channel map and a declared 7.1 layout is driving the reorder.
// sampleBytes is the size of one sample (1, 2 or 4); buf length must cover
// frames whole frames. Runs on the render hot path: no allocation.
func ReorderSMPTETo71(buf []byte, frames int, sampleBytes int) {
	switch sampleBytes {
	case 1:
		reorder8(buf, frames)
	case 2:
		reorder16(buf, frames)
	default:
		reorder32(buf, frames)
	}
}

func reorder8(buf []byte, frames int) {
	const ch = 8
	for i := 0; i < frames; i++ {
		base := i*ch + 4
		rls, rrs := buf[base], buf[base+1]
		ls, rs := buf[base+2], buf[base+3]
		buf[base], buf[base+1] = ls, rs
		buf[base+2], buf[base+3] = rls, rrs
	}
}

func reorder16(buf []byte, frames int) {
	const stride = 8 * 2
	for i := 0; i < frames; i++ {
		base := i*stride + 4*2
		var rls, rrs, ls, rs [2]byte
		copy(rls[:], buf[base:])
		copy(rrs[:], buf[base+2:])
		copy(ls[:], buf[base+4:])
		copy(rs[:], buf[base+6:])
		copy(buf[base:], ls[:])
		copy(buf[base+2:], rs[:])
		copy(buf[base+4:], rls[:])
		copy(buf[base+6:], rrs[:])
	}
}

func reorder32(buf []byte, frames int) {
	const stride = 8 * 4
	for i := 0; i < frames; i++ {
		base := i*stride + 4*4
		var rls, rrs, ls, rs [4]byte
		copy(rls[:], buf[base:])
		copy(rrs[:], buf[base+4:])
		copy(ls[:], buf[base+8:])
		copy(rs[:], buf[base+12:])
		copy(buf[base:], ls[:])
		copy(buf[base+4:], rs[:])
		copy(buf[base+8:], rls[:])
		copy(buf[base+12:], rrs[:])
	}
}
