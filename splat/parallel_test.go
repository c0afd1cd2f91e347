package splat

import (
	"sync/atomic"
	"testing"
)

func TestParallelForCoversAllIndices(t *testing.T) {
	defer SetParallelConfig(DefaultParallelConfig())

	for _, workers := range []int{0, 1, 2, 8} {
		SetParallelConfig(ParallelConfig{NumWorkers: workers, GrainSize: 1})
		for _, n := range []int{0, 1, 7, 1000, 4099} {
			visits := make([]int32, n)
			parallelFor(n, func(i int) {
				atomic.AddInt32(&visits[i], 1)
			})
			for i, v := range visits {
				if v != 1 {
					t.Fatalf("workers=%d n=%d: index %d visited %d times", workers, n, i, v)
				}
			}
		}
	}
}

func TestParallelForSequentialFallback(t *testing.T) {
	defer SetParallelConfig(DefaultParallelConfig())
	SetParallelConfig(ParallelConfig{NumWorkers: 4, GrainSize: 1000})

	// n below GrainSize*NumWorkers runs on the calling goroutine in order.
	var order []int
	parallelFor(100, func(i int) {
		order = append(order, i)
	})
	for i, v := range order {
		if i != v {
			t.Fatalf("sequential fallback ran out of order at %d", i)
		}
	}
}

func TestParallelConfigRoundTrip(t *testing.T) {
	defer SetParallelConfig(DefaultParallelConfig())

	want := ParallelConfig{NumWorkers: 3, GrainSize: 17}
	SetParallelConfig(want)
	if got := GetParallelConfig(); got != want {
		t.Errorf("GetParallelConfig() = %+v, want %+v", got, want)
	}
}

func TestEffectiveWorkers(t *testing.T) {
	if effectiveWorkers(ParallelConfig{NumWorkers: 5}) != 5 {
		t.Error("explicit worker count not honored")
	}
	if effectiveWorkers(ParallelConfig{NumWorkers: 0}) < 1 {
		t.Error("default worker count must be at least 1")
	}
}
