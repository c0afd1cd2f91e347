package splat

import (
	"sort"
	"sync"

	"github.com/chewxy/math32"
)

// parallelSortThreshold is the record count below which the sorter runs a
// plain sequential sort. Small scenes don't amortize goroutine fan-out.
const parallelSortThreshold = 1 << 15

// sortRecords permutes the 32-byte record slots of data into descending
// importance order and returns the reordered arena. keys[i] is the
// importance of the record in slot i.
//
// The comparator is a total order: descending key, NaN keys after every real
// key, ties broken by ascending input index. Because no two indices ever
// compare equal, any correct sort of it is stable with respect to input
// order and byte-deterministic across worker counts.
func sortRecords(data []byte, keys []float32) []byte {
	n := len(keys)
	if n*RecordSize != len(data) {
		panic(&InternalError{Msg: "sort arena and key array disagree"})
	}
	if n < 2 {
		return data
	}

	perm := make([]uint32, n)
	for i := range perm {
		perm[i] = uint32(i)
	}
	sortIndices(perm, keys)

	// Gather records into a fresh arena following the permutation.
	out := make([]byte, len(data))
	parallelFor(n, func(i int) {
		src := int(perm[i]) * RecordSize
		copy(out[i*RecordSize:(i+1)*RecordSize], data[src:src+RecordSize])
	})
	return out
}

// indexLess reports whether record a orders before record b: higher key
// first, NaN last, input index breaks ties.
func indexLess(keys []float32, a, b uint32) bool {
	ka, kb := keys[a], keys[b]
	aNaN, bNaN := math32.IsNaN(ka), math32.IsNaN(kb)
	switch {
	case aNaN && bNaN:
		return a < b
	case aNaN:
		return false
	case bNaN:
		return true
	}
	if ka != kb {
		return ka > kb
	}
	return a < b
}

// sortIndices sorts perm by indexLess using a chunked parallel merge sort.
func sortIndices(perm []uint32, keys []float32) {
	n := len(perm)
	numWorkers := effectiveWorkers(GetParallelConfig())

	if n < parallelSortThreshold || numWorkers == 1 {
		sort.Slice(perm, func(i, j int) bool {
			return indexLess(keys, perm[i], perm[j])
		})
		return
	}

	// Sort contiguous chunks in parallel, then merge pairs of runs until a
	// single run remains. The comparator's total order makes the result
	// independent of the chunk layout.
	chunkSize := (n + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(run []uint32) {
			defer wg.Done()
			sort.Slice(run, func(i, j int) bool {
				return indexLess(keys, run[i], run[j])
			})
		}(perm[start:end])
	}
	wg.Wait()

	src := perm
	dst := make([]uint32, n)
	swapped := false
	for width := chunkSize; width < n; width *= 2 {
		var mg sync.WaitGroup
		for lo := 0; lo < n; lo += 2 * width {
			mid := lo + width
			if mid > n {
				mid = n
			}
			hi := lo + 2*width
			if hi > n {
				hi = n
			}
			mg.Add(1)
			go func(lo, mid, hi int) {
				defer mg.Done()
				mergeRuns(dst, src, lo, mid, hi, keys)
			}(lo, mid, hi)
		}
		mg.Wait()
		src, dst = dst, src
		swapped = !swapped
	}
	if swapped {
		copy(perm, src)
	}
}

// mergeRuns merges the sorted runs src[lo:mid] and src[mid:hi] into
// dst[lo:hi].
func mergeRuns(dst, src []uint32, lo, mid, hi int, keys []float32) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if indexLess(keys, src[j], src[i]) {
			dst[k] = src[j]
			j++
		} else {
			dst[k] = src[i]
			i++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
