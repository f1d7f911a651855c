// Package color implements packed-ARGB color arithmetic: per-component
// blend operators used by the mixer's bus accumulation and crossfader
// (spec.md §4.6), and by channels to blend pattern transitions under
// whichever mode the transition specifies (spec.md §4.5).
//
// Grounded on the teacher's audio.Engine per-sample accumulate-then-clip
// loop (leftSum += sample*cos(angle); softClip(leftSum)) — the same
// "accumulate into a bus, then saturate" shape, applied per color channel
// instead of per audio sample.
package color

import "github.com/lumenforge/lumencore/capability"

// Mode selects a blend operator.
type Mode int

const (
	Normal Mode = iota
	Add
	Multiply
	Subtract
	Difference
	Lightest
	Darkest
	Dissolve
	Screen
	Lerp
)

// Black is the engine's defined background color (opaque black).
const Black = capability.Color(0xFF000000)

func components(c capability.Color) (a, r, g, b uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func pack(a, r, g, b uint8) capability.Color {
	return capability.Color(a)<<24 | capability.Color(r)<<16 | capability.Color(g)<<8 | capability.Color(b)
}

func clampByte(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func lerpByte(a, b uint8, t float64) uint8 {
	return clampByte(int32(float64(a) + t*(float64(b)-float64(a))))
}

// Blend returns dst blended with src by alpha under mode, per-channel.
// alpha is clamped to [0,1].
func Blend(mode Mode, dst, src capability.Color, alpha float64) capability.Color {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	da, dr, dg, db := components(dst)
	sa, sr, sg, sb := components(src)

	var ra, rr, rg, rb uint8
	switch mode {
	case Add:
		rr = clampByte(int32(dr) + int32(float64(sr)*alpha))
		rg = clampByte(int32(dg) + int32(float64(sg)*alpha))
		rb = clampByte(int32(db) + int32(float64(sb)*alpha))
		ra = clampByte(int32(da) + int32(float64(sa)*alpha))
	case Multiply:
		rr = mixChannel(dr, clampByte(int32(dr)*int32(sr)/255), alpha)
		rg = mixChannel(dg, clampByte(int32(dg)*int32(sg)/255), alpha)
		rb = mixChannel(db, clampByte(int32(db)*int32(sb)/255), alpha)
		ra = da
	case Subtract:
		rr = clampByte(int32(dr) - int32(float64(sr)*alpha))
		rg = clampByte(int32(dg) - int32(float64(sg)*alpha))
		rb = clampByte(int32(db) - int32(float64(sb)*alpha))
		ra = da
	case Difference:
		rr = mixChannel(dr, clampByte(abs32(int32(dr)-int32(sr))), alpha)
		rg = mixChannel(dg, clampByte(abs32(int32(dg)-int32(sg))), alpha)
		rb = mixChannel(db, clampByte(abs32(int32(db)-int32(sb))), alpha)
		ra = da
	case Lightest:
		rr = mixChannel(dr, maxByte(dr, sr), alpha)
		rg = mixChannel(dg, maxByte(dg, sg), alpha)
		rb = mixChannel(db, maxByte(db, sb), alpha)
		ra = da
	case Darkest:
		rr = mixChannel(dr, minByte(dr, sr), alpha)
		rg = mixChannel(dg, minByte(dg, sg), alpha)
		rb = mixChannel(db, minByte(db, sb), alpha)
		ra = da
	case Screen:
		screen := func(a, b uint8) uint8 {
			return clampByte(255 - int32(255-int32(a))*int32(255-int32(b))/255)
		}
		rr = mixChannel(dr, screen(dr, sr), alpha)
		rg = mixChannel(dg, screen(dg, sg), alpha)
		rb = mixChannel(db, screen(db, sb), alpha)
		ra = da
	case Dissolve, Lerp:
		rr = lerpByte(dr, sr, alpha)
		rg = lerpByte(dg, sg, alpha)
		rb = lerpByte(db, sb, alpha)
		ra = lerpByte(da, sa, alpha)
	default: // Normal: straight alpha-over
		rr = lerpByte(dr, sr, alpha)
		rg = lerpByte(dg, sg, alpha)
		rb = lerpByte(db, sb, alpha)
		ra = lerpByte(da, sa, alpha)
	}
	return pack(ra, rr, rg, rb)
}

func mixChannel(orig, blended uint8, alpha float64) uint8 {
	return lerpByte(orig, blended, alpha)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxByte(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func minByte(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

// BlendBuffer applies Blend element-wise: out[i] = Blend(mode, dst[i],
// src[i], alpha). out may alias dst or src.
func BlendBuffer(mode Mode, dst, src capability.Buffer, alpha float64, out capability.Buffer) {
	for i := range out {
		out[i] = Blend(mode, dst[i], src[i], alpha)
	}
}

// LerpBuffer linearly interpolates every pixel of a toward b by t, a
// Normal-mode shorthand for callers that don't need a configurable mode.
func LerpBuffer(a, b capability.Buffer, t float64, out capability.Buffer) {
	for i := range out {
		out[i] = Blend(Lerp, a[i], b[i], t)
	}
}

// CopyWithBackground copies src into out, blending against Black first —
// used when a bus receives its first contributor for the frame (spec.md
// §4.6 step 7: "copied (with blend against the background) rather than
// added").
func CopyWithBackground(src capability.Buffer, out capability.Buffer) {
	for i := range out {
		out[i] = Blend(Normal, Black, src[i], 1.0)
	}
}
