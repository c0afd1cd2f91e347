package splat

import (
	"github.com/chewxy/math32"

	"github.com/mrjoshuak/go-splat/internal/wire"
)

// transformGaussian converts one raw Gaussian into a packed 32-byte record,
// writing it into dst (which must hold at least RecordSize bytes), and
// returns the importance key used by the priority sort.
//
// The function is pure and independent per record, so the orchestrator runs
// it data-parallel with each record writing a disjoint output slot. All
// intermediate math stays in float32; NaN and Inf inputs propagate through
// the activations and quantize to deterministic bytes, never to an error.
func transformGaussian(g *gaussian, dst []byte) float32 {
	// Position: copied unchanged.
	wire.PutFloat32(dst[0:], g[fieldX])
	wire.PutFloat32(dst[4:], g[fieldY])
	wire.PutFloat32(dst[8:], g[fieldZ])

	// Scale: log-scale to linear, no clamping.
	sx := math32.Exp(g[fieldScale0])
	sy := math32.Exp(g[fieldScale1])
	sz := math32.Exp(g[fieldScale2])
	wire.PutFloat32(dst[12:], sx)
	wire.PutFloat32(dst[16:], sy)
	wire.PutFloat32(dst[20:], sz)

	// Color: DC spherical harmonics to 8-bit channels.
	dst[24] = quantizeByte((0.5 + shC0*g[fieldDC0]) * 255)
	dst[25] = quantizeByte((0.5 + shC0*g[fieldDC1]) * 255)
	dst[26] = quantizeByte((0.5 + shC0*g[fieldDC2]) * 255)

	// Opacity: sigmoid of the logit, clamped to [0, 1].
	alpha := sigmoid(g[fieldOpacity])
	dst[27] = quantizeByte(alpha * 255)

	// Rotation: L2-normalize, then map [-1, +1] linearly onto [0, 255] with
	// 128 representing zero. A zero-norm or NaN-norm quaternion passes
	// through unnormalized; the all-zero case quantizes to
	// (128, 128, 128, 128).
	r0 := g[fieldRot0]
	r1 := g[fieldRot1]
	r2 := g[fieldRot2]
	r3 := g[fieldRot3]
	norm := math32.Sqrt(r0*r0 + r1*r1 + r2*r2 + r3*r3)
	if norm > 0 {
		r0 /= norm
		r1 /= norm
		r2 /= norm
		r3 /= norm
	}
	dst[28] = quantizeByte(r0*128 + 128)
	dst[29] = quantizeByte(r1*128 + 128)
	dst[30] = quantizeByte(r2*128 + 128)
	dst[31] = quantizeByte(r3*128 + 128)

	// Importance: linear volume times float opacity. The pre-quantization
	// alpha keeps equal-looking splats from collapsing into sort ties.
	return sx * sy * sz * alpha
}

// sigmoid maps an opacity logit to (0, 1). Large magnitudes saturate to
// exactly 0 or 1 through float rounding; NaN propagates.
func sigmoid(x float32) float32 {
	v := 1 / (1 + math32.Exp(-x))
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// quantizeByte rounds v to the nearest integer and clamps it to [0, 255].
// NaN clamps to 0 so that hostile payloads still produce deterministic
// output bytes.
func quantizeByte(v float32) uint8 {
	if !(v > 0) { // catches v <= 0 and NaN
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math32.Round(v))
}
