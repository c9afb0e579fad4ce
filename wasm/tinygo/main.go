// TinyGo build of the fhist kernels for WASM.
//
// Uses pre-allocated static buffers to eliminate per-call allocation.
// The host copies values and bin counts into these buffers at known offsets,
// calls sum or hist1d, and copies the counts back.
//
// Build: tinygo build -o fhist.wasm -target=wasi -opt=2 main.go

package main

import (
	"math"
	"unsafe"

	fhist "github.com/paulstuart/cgo-fhist"
)

// Pre-allocated buffer capacity (128K f64 values = 1MB)
const capacity = 1 << 17

// Largest histogram the counts buffer can hold
const binsCapacity = 4096

// Static buffers - allocated once, stable addresses
var values [capacity]float64
var counts [binsCapacity]float64

// main is required but empty for WASM library
func main() {}

//export sum
func sum(n uint32) float64 {
	if n > capacity {
		return math.NaN()
	}
	return fhist.Sum(values[:n])
}

//export hist1d
func hist1d(n uint32, bins uint32, lower, width, upper float64) int32 {
	if n > capacity {
		return int32(fhist.StatusInvalidLength)
	}
	if bins == 0 || bins > binsCapacity {
		return int32(fhist.StatusInvalidBins)
	}
	err := fhist.Histogram1D(values[:n], counts[:bins], fhist.Range{
		Lower: lower,
		Width: width,
		Upper: upper,
	})
	return int32(fhist.StatusOf(err))
}

//export get_values_offset
func getValuesOffset() uint32 {
	return uint32(uintptr(unsafe.Pointer(&values[0])))
}

//export get_counts_offset
func getCountsOffset() uint32 {
	return uint32(uintptr(unsafe.Pointer(&counts[0])))
}

//export get_capacity
func getCapacity() uint32 {
	return capacity
}

//export get_bins_capacity
func getBinsCapacity() uint32 {
	return binsCapacity
}
