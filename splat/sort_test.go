package splat

import (
	"bytes"
	"sort"
	"testing"

	"github.com/chewxy/math32"

	"github.com/mrjoshuak/go-splat/internal/wire"
)

// row builds a stdProps-ordered vertex with the given position, opacity
// logit, and uniform log-scale, identity rotation.
func row(x, y, z, opacity, scaleLog float32) []float32 {
	return []float32{
		x, y, z,
		0, 0, 0,
		opacity,
		scaleLog, scaleLog, scaleLog,
		1, 0, 0, 0,
	}
}

func positionsOf(t *testing.T, data []byte) [][3]float32 {
	t.Helper()
	buf, err := ParseSplat(data)
	if err != nil {
		t.Fatal(err)
	}
	out := make([][3]float32, buf.Count())
	for i := range out {
		out[i] = buf.At(i).Position
	}
	return out
}

func TestSortByImportance(t *testing.T) {
	// Scenario S3: A has higher importance than B (larger opacity, same
	// scale). Sorted and unsorted runs must agree when input order already
	// matches importance order.
	a := row(1, 0, 0, 5, 0) // alpha ~0.993
	b := row(2, 0, 0, 0, 0) // alpha 0.5

	for _, sorted := range []bool{false, true} {
		out, _, err := ConvertBytes(asciiPLY(stdProps, [][]float32{a, b}), sorted)
		if err != nil {
			t.Fatal(err)
		}
		pos := positionsOf(t, out)
		if pos[0][0] != 1 || pos[1][0] != 2 {
			t.Errorf("sort=%v: order = %v, want A then B", sorted, pos)
		}
	}

	// Swap importance: now B must lead when sorted, keep input order when not.
	a = row(1, 0, 0, 0, 0)
	b = row(2, 0, 0, 5, 0)

	out, _, err := ConvertBytes(asciiPLY(stdProps, [][]float32{a, b}), true)
	if err != nil {
		t.Fatal(err)
	}
	pos := positionsOf(t, out)
	if pos[0][0] != 2 || pos[1][0] != 1 {
		t.Errorf("sorted order = %v, want B then A", pos)
	}

	out, _, err = ConvertBytes(asciiPLY(stdProps, [][]float32{a, b}), false)
	if err != nil {
		t.Fatal(err)
	}
	pos = positionsOf(t, out)
	if pos[0][0] != 1 || pos[1][0] != 2 {
		t.Errorf("unsorted order = %v, want input order", pos)
	}
}

func TestSortTieBreaksByInputOrder(t *testing.T) {
	// Scenario S4: identical importance keys, differing positions.
	rows := [][]float32{
		row(3, 0, 0, 0, 0),
		row(1, 0, 0, 0, 0),
		row(2, 0, 0, 0, 0),
	}
	out, _, err := ConvertBytes(asciiPLY(stdProps, rows), true)
	if err != nil {
		t.Fatal(err)
	}
	pos := positionsOf(t, out)
	for i, want := range []float32{3, 1, 2} {
		if pos[i][0] != want {
			t.Errorf("tied records reordered: got %v, want input order (3, 1, 2)", pos)
			break
		}
	}
}

func TestSortNaNKeysLast(t *testing.T) {
	nan := math32.NaN()
	rows := [][]float32{
		{1, 0, 0, 0, 0, 0, nan, 0, 0, 0, 1, 0, 0, 0}, // NaN opacity -> NaN key
		row(2, 0, 0, 0, 0),
		{3, 0, 0, 0, 0, 0, nan, 0, 0, 0, 1, 0, 0, 0},
		row(4, 0, 0, 5, 0),
	}
	data := binaryPLY(stdProps, rows)
	out, _, err := ConvertBytes(data, true)
	if err != nil {
		t.Fatal(err)
	}
	pos := positionsOf(t, out)
	want := []float32{4, 2, 1, 3} // real keys descending, NaNs last in input order
	for i := range want {
		if pos[i][0] != want[i] {
			t.Fatalf("order = %v, want %v", pos, want)
		}
	}
}

func TestSortRecordsMatchesStableReference(t *testing.T) {
	// A deliberately collision-heavy key set, large enough to take the
	// parallel path, must match a sequential stable reference sort.
	const n = 100_000
	keys := make([]float32, n)
	data := make([]byte, n*RecordSize)
	state := uint32(0x9e3779b9)
	for i := 0; i < n; i++ {
		// xorshift; keys collide heavily across 16 buckets
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		keys[i] = float32(state % 16)
		wire.ByteOrder.PutUint32(data[i*RecordSize:], uint32(i))
	}

	ref := make([]uint32, n)
	for i := range ref {
		ref[i] = uint32(i)
	}
	sort.SliceStable(ref, func(a, b int) bool {
		return keys[ref[a]] > keys[ref[b]]
	})

	got := sortRecords(data, keys)
	for i := 0; i < n; i++ {
		idx := wire.ByteOrder.Uint32(got[i*RecordSize:])
		if idx != ref[i] {
			t.Fatalf("record %d: got input index %d, want %d", i, idx, ref[i])
		}
	}
}

func TestSortDeterministicAcrossWorkerCounts(t *testing.T) {
	const n = 80_000
	keys := make([]float32, n)
	data := make([]byte, n*RecordSize)
	state := uint32(12345)
	for i := 0; i < n; i++ {
		state = state*1664525 + 1013904223
		keys[i] = float32(state%64) - 32
		wire.ByteOrder.PutUint32(data[i*RecordSize:], uint32(i))
	}

	defer SetParallelConfig(DefaultParallelConfig())

	SetParallelConfig(ParallelConfig{NumWorkers: 1})
	seq := sortRecords(append([]byte(nil), data...), keys)

	for _, workers := range []int{2, 3, 8} {
		SetParallelConfig(ParallelConfig{NumWorkers: workers})
		got := sortRecords(append([]byte(nil), data...), keys)
		if !bytes.Equal(seq, got) {
			t.Fatalf("worker count %d changed sorted output", workers)
		}
	}
}
