package gosplat_test

import (
	"fmt"

	"github.com/mrjoshuak/go-splat/splat"
)

// Example_convertFile demonstrates file-to-file conversion.
func Example_convertFile() {
	// Convert a Gaussian splatting scene, sorted by importance so that
	// truncated downloads still show the dominant splats first.
	count, err := splat.ConvertFile("scene.ply", "scene.splat", true)
	if err != nil {
		fmt.Println("Error converting scene:", err)
		return
	}
	fmt.Printf("Converted %d splats\n", count)
}

// Example_inspectBuffer demonstrates loading and inspecting SPLAT data.
func Example_inspectBuffer() {
	buf, err := splat.LoadSplatFile("scene.splat")
	if err != nil {
		fmt.Println("Error loading scene:", err)
		return
	}

	fmt.Printf("%d splats, %d bytes\n", buf.Count(), buf.Len())
	for i := 0; i < buf.Count() && i < 3; i++ {
		p := buf.At(i)
		fmt.Printf("splat %d: pos=%v alpha=%d\n", i, p.Position, p.Color[3])
	}

	stats := buf.Stats()
	fmt.Printf("bounds: %v .. %v\n", stats.MinPosition, stats.MaxPosition)
}

// Example_inMemory demonstrates buffer-to-buffer conversion for embedded
// uses where no files are involved.
func Example_inMemory() {
	var plyData []byte // PLY bytes from the network, a cache, ...

	splatData, count, err := splat.ConvertBytes(plyData, true)
	if err != nil {
		fmt.Println("Error converting:", err)
		return
	}
	fmt.Printf("%d splats in %d bytes\n", count, len(splatData))
}
