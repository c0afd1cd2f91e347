package splat

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// readBufferSize is the read-ahead applied to every input source.
const readBufferSize = 1 << 20

// ConvertFile converts the PLY scene at inputPath into a SPLAT file at
// outputPath and returns the number of splats written. gzip- and
// zstd-compressed inputs are decompressed transparently. When sortSplats is
// true the output is ordered by descending importance (volume times
// opacity); otherwise PLY declaration order is kept.
//
// On failure a partially written output file may remain; callers wanting
// atomicity should convert to a temporary path and rename on success.
func ConvertFile(inputPath, outputPath string, sortSplats bool) (int, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("splat: open input: %w", err)
	}
	defer f.Close()

	size := int64(-1)
	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
		size = fi.Size()
	}

	arena, err := convertStream(f, size, sortSplats)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("splat: create output: %w", err)
	}
	if err := writeChunked(out, arena); err != nil {
		out.Close()
		return 0, fmt.Errorf("splat: write %s: %w", outputPath, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("splat: close %s: %w", outputPath, err)
	}
	return len(arena) / RecordSize, nil
}

// ConvertBytes converts in-memory PLY data and returns the SPLAT bytes along
// with the splat count. It accepts the same inputs as ConvertFile, including
// compressed payloads, and never panics regardless of input bytes.
func ConvertBytes(data []byte, sortSplats bool) ([]byte, int, error) {
	arena, err := convertStream(bytes.NewReader(data), int64(len(data)), sortSplats)
	if err != nil {
		return nil, 0, err
	}
	return arena, len(arena) / RecordSize, nil
}

// LoadPLY converts the PLY scene at path and returns it as an in-memory,
// indexable SplatBuffer.
func LoadPLY(path string, sortSplats bool) (*SplatBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("splat: open input: %w", err)
	}
	defer f.Close()

	size := int64(-1)
	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
		size = fi.Size()
	}

	arena, err := convertStream(f, size, sortSplats)
	if err != nil {
		return nil, err
	}
	return &SplatBuffer{data: arena, count: len(arena) / RecordSize}, nil
}

// LoadSplatFile loads an existing SPLAT file into a SplatBuffer. The file
// length must be a multiple of RecordSize; no conversion is performed.
func LoadSplatFile(path string) (*SplatBuffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("splat: read %s: %w", path, err)
	}
	return ParseSplat(data)
}

// convertStream runs the full pipeline: decompression sniffing, header
// parse, body decode, parallel transform into the output arena, and the
// optional priority sort. size is the total input length when known, -1
// otherwise.
func convertStream(r io.Reader, size int64, sortSplats bool) ([]byte, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	gz, zs := sniffCompression(br)
	switch {
	case gz:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, formatErrorf("gzip input: %v", err)
		}
		defer zr.Close()
		br = bufio.NewReaderSize(zr, readBufferSize)
		size = -1
	case zs:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, formatErrorf("zstd input: %v", err)
		}
		defer zr.Close()
		br = bufio.NewReaderSize(zr, readBufferSize)
		size = -1
	}

	h, headerLen, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	bodySize := int64(-1)
	if size >= 0 {
		bodySize = size - int64(headerLen)
		if bodySize < 0 {
			bodySize = 0
		}
	}

	gs, err := readGaussians(br, h, bodySize)
	if err != nil {
		return nil, err
	}

	n := len(gs)
	if int64(n) > int64(math.MaxInt/RecordSize) {
		return nil, formatErrorf("vertex count %d too large for one buffer", n)
	}

	// Arena-style output: one allocation, each record transformed into its
	// own disjoint 32-byte slot.
	arena := make([]byte, n*RecordSize)
	keys := make([]float32, n)
	parallelFor(n, func(i int) {
		keys[i] = transformGaussian(&gs[i], arena[i*RecordSize:(i+1)*RecordSize])
	})

	if sortSplats {
		arena = sortRecords(arena, keys)
	}
	return arena, nil
}
