// ply2splat converts 3D Gaussian Splatting PLY scenes into the compact
// SPLAT binary format consumed by web-based splat renderers.
//
// Usage:
//
//	ply2splat --input scene.ply --output scene.splat [--no-sort]
//
// Inputs may be plain, gzip-compressed, or zstd-compressed PLY. Exit code 0
// on success, non-zero with a diagnostic on any failure.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/mrjoshuak/go-splat/splat"
)

type options struct {
	Input  string `short:"i" long:"input" description:"Input PLY file (.ply, .ply.gz, .ply.zst)" required:"true"`
	Output string `short:"o" long:"output" description:"Output SPLAT file" required:"true"`
	NoSort bool   `long:"no-sort" description:"Disable sorting of splats by importance (volume * opacity)"`
	Quiet  bool   `short:"q" long:"quiet" description:"Only report errors"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "--input scene.ply --output scene.splat [--no-sort]"
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		// go-flags already printed the diagnostic.
		os.Exit(2)
	}

	if !opts.Quiet {
		fmt.Printf("Reading PLY file: %s\n", opts.Input)
		if opts.NoSort {
			fmt.Println("Processing (sorting disabled)...")
		} else {
			fmt.Println("Processing and sorting...")
		}
	}

	start := time.Now()
	count, err := splat.ConvertFile(opts.Input, opts.Output, !opts.NoSort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ply2splat: %v\n", err)
		os.Exit(1)
	}

	if !opts.Quiet {
		fmt.Printf("Wrote %d splats (%d bytes) to %s in %.2fs\n",
			count, count*splat.RecordSize, opts.Output, time.Since(start).Seconds())
	}
}
