// Package splat converts 3D Gaussian Splatting scenes from the
// research-standard PLY container into the compact SPLAT format consumed by
// web-based splat renderers.
//
// A PLY scene holds one Gaussian per vertex: position, log-scale, rotation
// quaternion, opacity logit, and spherical-harmonic color coefficients. The
// conversion keeps only the DC spherical-harmonic band, quantizes color and
// rotation to 8 bits, and optionally reorders splats by a visibility priority
// key so that prefix-truncated streams retain the visually dominant splats.
//
// The output format is headerless: fixed 32-byte little-endian records,
// concatenated. Readers rely entirely on file length.
package splat

import (
	"errors"
	"fmt"

	"github.com/mrjoshuak/go-splat/internal/wire"
)

// RecordSize is the size of one packed splat record in bytes.
const RecordSize = 32

// shC0 is the zeroth-order spherical harmonic basis constant, 1/(2*sqrt(pi)).
// It maps the DC SH coefficient to a linear color offset around 0.5.
const shC0 = 0.28209479177387814

// Conversion and parsing errors.
var (
	// ErrInvalidLength is returned when SPLAT data has a length that is not
	// a multiple of RecordSize.
	ErrInvalidLength = errors.New("splat: data length is not a multiple of the record size")

	// ErrBigEndianUnsupported is returned for binary_big_endian PLY bodies.
	// It is a *FormatError.
	ErrBigEndianUnsupported error = &FormatError{Msg: "binary_big_endian PLY is not supported"}
)

// FormatError describes a malformed PLY input: a bad header, an unsupported
// format variant, a truncated body, or a declared vertex count not matched by
// the body.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "splat: invalid PLY: " + e.Msg
}

func formatErrorf(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// MissingPropertyError is returned when the vertex element lacks a property
// the conversion requires. Name is the first missing property in canonical
// order.
type MissingPropertyError struct {
	Name string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("splat: vertex element is missing required property %q", e.Name)
}

// InternalError reports a violated internal invariant. It should be
// unreachable on any input.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "splat: internal error: " + e.Msg
}

// SplatPoint is one decoded 32-byte output record.
//
// Scale is linear (already exponentiated). Color holds R, G, B, A where A is
// the quantized sigmoid opacity. Rot holds the four quaternion components in
// header-declared order, each mapped from [-1, +1] onto [0, 255] with 128
// representing zero.
type SplatPoint struct {
	Position [3]float32
	Scale    [3]float32
	Color    [4]uint8
	Rot      [4]uint8
}

// decodeSplatPoint unpacks one record from b, which must hold at least
// RecordSize bytes.
func decodeSplatPoint(b []byte) SplatPoint {
	var p SplatPoint
	for i := 0; i < 3; i++ {
		p.Position[i] = wire.Float32(b[i*4:])
		p.Scale[i] = wire.Float32(b[12+i*4:])
	}
	copy(p.Color[:], b[24:28])
	copy(p.Rot[:], b[28:32])
	return p
}

// encode packs the record into dst, which must hold at least RecordSize bytes.
func (p SplatPoint) encode(dst []byte) {
	for i := 0; i < 3; i++ {
		wire.PutFloat32(dst[i*4:], p.Position[i])
		wire.PutFloat32(dst[12+i*4:], p.Scale[i])
	}
	copy(dst[24:28], p.Color[:])
	copy(dst[28:32], p.Rot[:])
}

// gaussian is the intermediate record produced by the PLY reader. It exists
// only within one conversion pass. Fields are indexed by the field* constants
// so the reader can bind header properties to slots once and fill rows
// without any per-record name lookups.
type gaussian [fieldCount]float32

// Slot indices within a gaussian row.
const (
	fieldX = iota
	fieldY
	fieldZ
	fieldScale0
	fieldScale1
	fieldScale2
	fieldRot0
	fieldRot1
	fieldRot2
	fieldRot3
	fieldOpacity
	fieldDC0
	fieldDC1
	fieldDC2
	fieldCount
)

// requiredProperties lists the vertex properties the conversion requires, in
// slot order. The order also fixes which property a MissingPropertyError
// names when several are absent.
var requiredProperties = [fieldCount]string{
	"x", "y", "z",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
	"opacity",
	"f_dc_0", "f_dc_1", "f_dc_2",
}
