// splatcheck validates SPLAT files and reports scene statistics.
//
// Usage:
//
//	splatcheck [-q|--quiet] [-v|--verbose] <filename> [<filename> ...]
//
// Options:
//
//	-q, --quiet    Only output errors. Exit code indicates pass/fail.
//	-v, --verbose  Also report position bounds, opacity, and degenerate rotations.
//	-h, --help     Show this help message.
//	--version      Show version information.
//
// Exit codes:
//
//	0: All files valid
//	1: One or more files invalid
//	2: Error (file not found, etc.)
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mrjoshuak/go-splat/splat"
)

const version = "1.0.0"

func main() {
	quiet := false
	verbose := false
	files := []string{}

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-q", "--quiet":
			quiet = true
		case "-v", "--verbose":
			verbose = true
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--version":
			fmt.Printf("splatcheck version %s\n", version)
			fmt.Println("Part of go-splat - Gaussian splat conversion library")
			fmt.Println("https://github.com/mrjoshuak/go-splat")
			os.Exit(0)
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
				printUsage()
				os.Exit(2)
			}
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No input files specified")
		printUsage()
		os.Exit(2)
	}

	validCount := 0
	errorOccurred := false

	for _, filename := range files {
		buf, err := splat.MapSplatFile(filename)
		if errors.Is(err, splat.ErrInvalidLength) {
			if quiet {
				fmt.Fprintf(os.Stderr, "%s: length is not a multiple of %d\n", filename, splat.RecordSize)
			} else {
				fmt.Printf("%s: INVALID (length is not a multiple of %d)\n", filename, splat.RecordSize)
			}
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: error: %v\n", filename, err)
			errorOccurred = true
			continue
		}

		validCount++
		if !quiet {
			printReport(filename, buf, verbose)
		}
		if err := buf.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "%s: error: %v\n", filename, err)
			errorOccurred = true
		}
	}

	if len(files) > 1 && !quiet {
		fmt.Printf("\nSummary: %d of %d files valid\n", validCount, len(files))
	}

	if errorOccurred {
		os.Exit(2)
	}
	if validCount < len(files) {
		os.Exit(1)
	}
	os.Exit(0)
}

func printReport(filename string, buf *splat.SplatBuffer, verbose bool) {
	fmt.Printf("%s: OK (%d splats, %d bytes)\n", filename, buf.Count(), buf.Len())
	if !verbose {
		return
	}

	stats := buf.Stats()
	fmt.Printf("  bounds min: (%g, %g, %g)\n",
		stats.MinPosition[0], stats.MinPosition[1], stats.MinPosition[2])
	fmt.Printf("  bounds max: (%g, %g, %g)\n",
		stats.MaxPosition[0], stats.MaxPosition[1], stats.MaxPosition[2])
	fmt.Printf("  mean opacity: %.3f\n", stats.MeanAlpha)
	if stats.NonFinitePositions > 0 {
		fmt.Printf("  warning: %d records with non-finite positions\n", stats.NonFinitePositions)
	}
	if stats.NonFiniteScales > 0 {
		fmt.Printf("  warning: %d records with non-finite scales\n", stats.NonFiniteScales)
	}
	if stats.ZeroRotations > 0 {
		fmt.Printf("  warning: %d records with zero-quaternion rotations\n", stats.ZeroRotations)
	}
}

func printUsage() {
	fmt.Println(`Usage: splatcheck [options] <filename> [<filename> ...]

Validate SPLAT files and report scene statistics.

Options:
  -q, --quiet    Only output errors. Exit code indicates pass/fail.
  -v, --verbose  Also report position bounds, opacity, and degenerate rotations.
  -h, --help     Show this help message.
  --version      Show version information.

Exit codes:
  0: All files valid
  1: One or more files invalid
  2: Error (file not found, permission denied, etc.)

Examples:
  splatcheck scene.splat
  splatcheck -v scene.splat
  splatcheck -q *.splat`)
}
