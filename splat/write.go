package splat

import (
	"io"
)

// writeChunkSize bounds individual sink writes. Large scenes stream out in
// multi-megabyte slices instead of one giant write the OS may split anyway.
const writeChunkSize = 4 << 20

// writeChunked writes data to w in writeChunkSize slices.
func writeChunked(w io.Writer, data []byte) error {
	for off := 0; off < len(data); off += writeChunkSize {
		end := off + writeChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[off:end]); err != nil {
			return err
		}
	}
	return nil
}
