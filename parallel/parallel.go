// Package parallel runs the fhist kernels across a persistent worker pool.
//
// The pool is created once and reused, so per-call cost is a channel send
// per worker rather than goroutine creation:
//
//	k := parallel.New(runtime.GOMAXPROCS(0))
//	defer k.Close()
//
//	total := k.Sum(values)
//	err := k.Histogram1D(values, counts, fhist.NewRange(0, 1, 10))
//
// Results agree with the sequential kernels up to summation order: Sum
// combines per-chunk pairwise sums pairwise, and Histogram1D counts each
// chunk into private bins that are merged after all workers finish.
package parallel

import (
	"sync"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"

	fhist "github.com/paulstuart/cgo-fhist"
)

// MinParallel is the input length below which calls run on the caller's
// goroutine.
const MinParallel = 1 << 14

// Kernels owns a worker pool. It is safe for concurrent use.
type Kernels struct {
	pool *workerpool.Pool

	// scratch holds per-chunk histogram bins between calls.
	scratch sync.Pool
}

// New creates Kernels backed by numWorkers persistent workers.
// If numWorkers <= 0, GOMAXPROCS is used.
func New(numWorkers int) *Kernels {
	return &Kernels{pool: workerpool.New(numWorkers)}
}

// Close stops the workers. Later calls fall back to sequential execution.
func (k *Kernels) Close() {
	k.pool.Close()
}

// NumWorkers returns the number of pool workers.
func (k *Kernels) NumWorkers() int {
	return k.pool.NumWorkers()
}

// chunks returns the chunk count and size used for an input of length n.
func (k *Kernels) chunks(n int) (int, int) {
	workers := min(k.pool.NumWorkers(), n)
	size := (n + workers - 1) / workers
	return (n + size - 1) / size, size
}

// Sum returns the pairwise sum of values, splitting the work into one
// contiguous chunk per worker.
func (k *Kernels) Sum(values []float64) float64 {
	n := len(values)
	if n < MinParallel || k.pool.NumWorkers() == 1 {
		return fhist.Sum(values)
	}

	count, size := k.chunks(n)
	partials := make([]float64, count)
	k.pool.ParallelFor(count, func(start, end int) {
		for c := start; c < end; c++ {
			lo := c * size
			hi := min(lo+size, n)
			partials[c] = fhist.Sum(values[lo:hi])
		}
	})
	return fhist.Sum(partials)
}

// Histogram1D is the parallel form of fhist.Histogram1D. Parameters are
// validated before any work is scheduled, so counts is untouched on error.
func (k *Kernels) Histogram1D(values, counts []float64, r fhist.Range) error {
	bins := len(counts)
	if err := r.Validate(bins); err != nil {
		return err
	}

	n := len(values)
	if n < MinParallel || k.pool.NumWorkers() == 1 {
		return fhist.Histogram1D(values, counts, r)
	}

	count, size := k.chunks(n)
	local := k.getScratch(count * bins)
	defer k.scratch.Put(local)

	k.pool.ParallelFor(count, func(start, end int) {
		for c := start; c < end; c++ {
			lo := c * size
			hi := min(lo+size, n)
			// Validated above; the kernel cannot fail here.
			_ = fhist.Histogram1D(values[lo:hi], (*local)[c*bins:(c+1)*bins], r)
		}
	})

	for c := range count {
		for i, v := range (*local)[c*bins : (c+1)*bins] {
			counts[i] += v
		}
	}
	return nil
}

func (k *Kernels) getScratch(n int) *[]float64 {
	if p, ok := k.scratch.Get().(*[]float64); ok && cap(*p) >= n {
		*p = (*p)[:n]
		clear(*p)
		return p
	}
	buf := make([]float64, n)
	return &buf
}
