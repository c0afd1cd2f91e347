package splat

import (
	"runtime"
	"sync"
)

// ParallelConfig configures how conversion work fans out across goroutines.
// The per-record transform and the priority sort both schedule through it.
type ParallelConfig struct {
	// NumWorkers is the number of worker goroutines. 0 means runtime.GOMAXPROCS(0).
	NumWorkers int

	// GrainSize is the minimum work items per worker before parallelization.
	// If total work items <= GrainSize * NumWorkers, runs sequentially.
	GrainSize int
}

// DefaultParallelConfig returns the default parallel configuration.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		NumWorkers: 0,    // Use all available CPUs
		GrainSize:  1024, // Per-record work is tiny; require a real batch per worker
	}
}

// parallelConfig is the process-wide configuration. Parallel execution never
// changes output bytes, only wall-clock time, so reconfiguring mid-flight is
// harmless.
var (
	parallelConfig   = DefaultParallelConfig()
	parallelConfigMu sync.RWMutex
)

// SetParallelConfig sets the process-wide parallel configuration.
func SetParallelConfig(config ParallelConfig) {
	parallelConfigMu.Lock()
	defer parallelConfigMu.Unlock()
	parallelConfig = config
}

// GetParallelConfig returns the current parallel configuration.
func GetParallelConfig() ParallelConfig {
	parallelConfigMu.RLock()
	defer parallelConfigMu.RUnlock()
	return parallelConfig
}

// effectiveWorkers returns the number of workers to use.
func effectiveWorkers(config ParallelConfig) int {
	if config.NumWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return config.NumWorkers
}

// parallelFor runs fn(i) for i in [0, n) across the worker set.
// If n is small or there's only one worker, runs sequentially.
// Each index is visited exactly once; fn must not touch state shared
// between indices.
func parallelFor(n int, fn func(i int)) {
	config := GetParallelConfig()
	numWorkers := effectiveWorkers(config)

	// Run sequentially if not worth parallelizing
	if n <= config.GrainSize*numWorkers || numWorkers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				fn(i)
			}
		}(start, end)
	}

	wg.Wait()
}
