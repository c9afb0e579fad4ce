// Package native calls a C build of the fhist kernels through cgo.
//
// It exists to measure FFI overhead against the pure Go kernels, using the
// same two calling styles:
//  1. Kernels: pre-allocated buffers pinned once with runtime.Pinner and
//     reused across calls, so a call is a copy plus a C function call
//  2. DirectSum / DirectHistogram1D: pin the caller's slices per call,
//     no copy, no pre-allocation
package native

/*
#cgo CFLAGS: -O3 -march=native
#include "fhist.h"
*/
import "C"

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	fhist "github.com/paulstuart/cgo-fhist"
)

// Kernels provides C-backed sum and histogram over pinned buffers.
// After initialization, calls within capacity do not allocate.
type Kernels struct {
	values []float64
	counts []float64

	// Pinners keep the GC from moving the buffers during C calls
	pinnerV runtime.Pinner
	pinnerC runtime.Pinner

	// C pointers, cached after pinning
	ptrV *C.double
	ptrC *C.double

	capacity     int
	binsCapacity int

	// Calls share the buffers
	mu sync.Mutex
}

// NewKernels creates Kernels able to pass capacity values and binsCapacity
// bins per C call. Longer inputs are processed in capacity-sized chunks.
func NewKernels(capacity, binsCapacity int) *Kernels {
	capacity = max(capacity, 1)
	binsCapacity = max(binsCapacity, 1)
	k := &Kernels{
		values:       make([]float64, capacity),
		counts:       make([]float64, binsCapacity),
		capacity:     capacity,
		binsCapacity: binsCapacity,
	}

	k.pinnerV.Pin(&k.values[0])
	k.pinnerC.Pin(&k.counts[0])

	k.ptrV = (*C.double)(unsafe.Pointer(&k.values[0]))
	k.ptrC = (*C.double)(unsafe.Pointer(&k.counts[0]))

	return k
}

// Close releases pinned memory. Must be called when done.
func (k *Kernels) Close() {
	k.pinnerV.Unpin()
	k.pinnerC.Unpin()
}

// Capacity returns the number of values passed per C call.
func (k *Kernels) Capacity() int {
	return k.capacity
}

// Sum returns the pairwise sum of data computed in C.
// Inputs beyond capacity are summed per chunk and the partials combined.
func (k *Kernels) Sum(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if n <= k.capacity {
		return k.sumChunk(data)
	}

	partials := make([]float64, 0, (n+k.capacity-1)/k.capacity)
	for lo := 0; lo < n; lo += k.capacity {
		hi := min(lo+k.capacity, n)
		partials = append(partials, k.sumChunk(data[lo:hi]))
	}
	return fhist.Sum(partials)
}

func (k *Kernels) sumChunk(chunk []float64) float64 {
	copy(k.values, chunk)
	return float64(C.fhist_sum(k.ptrV, C.size_t(len(chunk))))
}

// Histogram1D increments counts in C; see fhist.Histogram1D for the
// contract. len(counts) may not exceed the bins capacity.
func (k *Kernels) Histogram1D(data, counts []float64, r fhist.Range) error {
	bins := len(counts)
	if err := r.Validate(bins); err != nil {
		return err
	}
	if bins > k.binsCapacity {
		return fmt.Errorf("%w: %d bins exceeds capacity %d", fhist.ErrInvalidBins, bins, k.binsCapacity)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	copy(k.counts, counts)
	for lo := 0; lo < len(data); lo += k.capacity {
		hi := min(lo+k.capacity, len(data))
		copy(k.values, data[lo:hi])
		status := fhist.Status(C.fhist_hist1d(k.ptrV, C.size_t(hi-lo), k.ptrC, C.long(bins),
			C.double(r.Lower), C.double(r.Width), C.double(r.Upper)))
		if status != fhist.StatusOK {
			return status.Err()
		}
	}
	copy(counts, k.counts[:bins])
	return nil
}

// --- Direct FFI calls (for comparison - shows per-call overhead) ---

// DirectSum calls C directly on the caller's memory.
// Each call pins, calls C, unpins.
func DirectSum(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var pinner runtime.Pinner
	pinner.Pin(&data[0])
	defer pinner.Unpin()

	ptr := (*C.double)(unsafe.Pointer(&data[0]))
	return float64(C.fhist_sum(ptr, C.size_t(len(data))))
}

// DirectHistogram1D calls C directly on the caller's memory.
func DirectHistogram1D(data, counts []float64, r fhist.Range) error {
	if len(counts) == 0 {
		return fhist.StatusInvalidBins.Err()
	}

	var pinnerV, pinnerC runtime.Pinner
	var ptrV *C.double
	if len(data) > 0 {
		pinnerV.Pin(&data[0])
		defer pinnerV.Unpin()
		ptrV = (*C.double)(unsafe.Pointer(&data[0]))
	}
	pinnerC.Pin(&counts[0])
	defer pinnerC.Unpin()

	status := fhist.Status(C.fhist_hist1d(ptrV, C.size_t(len(data)),
		(*C.double)(unsafe.Pointer(&counts[0])), C.long(len(counts)),
		C.double(r.Lower), C.double(r.Width), C.double(r.Upper)))
	return status.Err()
}
