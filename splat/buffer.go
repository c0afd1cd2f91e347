package splat

import (
	"github.com/chewxy/math32"
)

// SplatBuffer is an owned, contiguous SPLAT byte sequence with its cached
// record count. It supports indexed decoding and zero-copy export of its
// bytes. Buffers are immutable once constructed.
type SplatBuffer struct {
	data  []byte
	count int

	// release unmaps file-backed buffers; nil for heap-backed ones.
	release func() error
}

// ParseSplat validates data as SPLAT content and wraps it without copying.
// It returns ErrInvalidLength when the length is not a multiple of
// RecordSize. No inverse of the quantization or color transforms is
// attempted; records decode exactly as stored.
func ParseSplat(data []byte) (*SplatBuffer, error) {
	if len(data)%RecordSize != 0 {
		return nil, ErrInvalidLength
	}
	return &SplatBuffer{data: data, count: len(data) / RecordSize}, nil
}

// Count returns the number of records.
func (b *SplatBuffer) Count() int {
	return b.count
}

// Len returns the byte length, always Count() * RecordSize.
func (b *SplatBuffer) Len() int {
	return len(b.data)
}

// Bytes returns the underlying bytes without copying. The slice remains
// valid until Close for file-backed buffers.
func (b *SplatBuffer) Bytes() []byte {
	return b.data
}

// At decodes record i. It panics if i is out of range, matching slice
// indexing semantics.
func (b *SplatBuffer) At(i int) SplatPoint {
	if i < 0 || i >= b.count {
		panic("splat: record index out of range")
	}
	return decodeSplatPoint(b.data[i*RecordSize:])
}

// Record returns the raw 32-byte window of record i without copying.
func (b *SplatBuffer) Record(i int) []byte {
	if i < 0 || i >= b.count {
		panic("splat: record index out of range")
	}
	return b.data[i*RecordSize : (i+1)*RecordSize]
}

// Close releases a file mapping backing the buffer. For heap-backed buffers
// it is a no-op. The buffer must not be used after Close.
func (b *SplatBuffer) Close() error {
	if b.release == nil {
		return nil
	}
	release := b.release
	b.release = nil
	b.data = nil
	b.count = 0
	return release()
}

// BufferStats summarizes a SplatBuffer for inspection tools.
type BufferStats struct {
	Count int

	// Position bounds over records with fully finite positions.
	MinPosition [3]float32
	MaxPosition [3]float32

	// NonFinitePositions counts records with a NaN or Inf position
	// component; NonFiniteScales likewise for scale.
	NonFinitePositions int
	NonFiniteScales    int

	// ZeroRotations counts records whose rotation bytes are all 128, the
	// quantization of an all-zero quaternion.
	ZeroRotations int

	// MeanAlpha is the average of the quantized opacity bytes, scaled back
	// to [0, 1]. Zero when the buffer is empty.
	MeanAlpha float64
}

// Stats scans the buffer once and returns summary statistics.
func (b *SplatBuffer) Stats() BufferStats {
	stats := BufferStats{Count: b.count}
	if b.count == 0 {
		return stats
	}

	for i := 0; i < 3; i++ {
		stats.MinPosition[i] = math32.MaxFloat32
		stats.MaxPosition[i] = -math32.MaxFloat32
	}

	var alphaSum uint64
	boundsSeen := false
	for i := 0; i < b.count; i++ {
		p := b.At(i)

		finite := true
		for c := 0; c < 3; c++ {
			if math32.IsNaN(p.Position[c]) || math32.IsInf(p.Position[c], 0) {
				finite = false
			}
		}
		if finite {
			boundsSeen = true
			for c := 0; c < 3; c++ {
				if p.Position[c] < stats.MinPosition[c] {
					stats.MinPosition[c] = p.Position[c]
				}
				if p.Position[c] > stats.MaxPosition[c] {
					stats.MaxPosition[c] = p.Position[c]
				}
			}
		} else {
			stats.NonFinitePositions++
		}

		for c := 0; c < 3; c++ {
			if math32.IsNaN(p.Scale[c]) || math32.IsInf(p.Scale[c], 0) {
				stats.NonFiniteScales++
				break
			}
		}

		if p.Rot == [4]uint8{128, 128, 128, 128} {
			stats.ZeroRotations++
		}
		alphaSum += uint64(p.Color[3])
	}

	if !boundsSeen {
		stats.MinPosition = [3]float32{}
		stats.MaxPosition = [3]float32{}
	}
	stats.MeanAlpha = float64(alphaSum) / float64(b.count) / 255
	return stats
}
