//go:build !windows
// +build !windows

package splat

import (
	"fmt"
	"os"
	"syscall"
)

// MapSplatFile opens the SPLAT file at path with a read-only memory mapping,
// giving zero-copy access to large scenes. The returned buffer must be
// closed to release the mapping. Validation is identical to LoadSplatFile.
func MapSplatFile(path string) (*SplatBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("splat: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("splat: stat %s: %w", path, err)
	}

	size := fi.Size()
	if size%RecordSize != 0 {
		f.Close()
		return nil, ErrInvalidLength
	}
	if size == 0 {
		f.Close()
		return &SplatBuffer{}, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("splat: mmap %s: %w", path, err)
	}

	return &SplatBuffer{
		data:  data,
		count: int(size) / RecordSize,
		release: func() error {
			if err := syscall.Munmap(data); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}, nil
}
