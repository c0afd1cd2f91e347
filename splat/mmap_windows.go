//go:build windows
// +build windows

package splat

// MapSplatFile opens the SPLAT file at path. On Windows it falls back to
// reading the file into memory; the SplatBuffer API is identical, including
// the Close requirement.
func MapSplatFile(path string) (*SplatBuffer, error) {
	return LoadSplatFile(path)
}
