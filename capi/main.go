// Command capi builds the fhist kernels as a C shared library.
//
// Build: go build -buildmode=c-shared -o libfhist.so ./capi
//
// The generated libfhist.h declares:
//
//	double sum(double* values, long length);
//	int histogram1d(double* values, long n_values, double* bin_counts,
//	                long n_bins, double lower, double width, double upper);
//	int hist1d(...);  // same as histogram1d
//
// Buffers are borrowed for the duration of a call only; nothing is retained
// and no Go pointer is handed back. Errors are returned as status codes
// (see fhist.Status) or NaN, never as panics.
package main

/*
#cgo CFLAGS: -O2
*/
import "C"

import "unsafe"

func main() {}

//export sum
func sum(values *C.double, length C.long) C.double {
	return C.double(sumRaw((*float64)(unsafe.Pointer(values)), int64(length)))
}

//export histogram1d
func histogram1d(values *C.double, nValues C.long, binCounts *C.double, nBins C.long, lower, width, upper C.double) C.int {
	return C.int(histogramRaw(
		(*float64)(unsafe.Pointer(values)), int64(nValues),
		(*float64)(unsafe.Pointer(binCounts)), int64(nBins),
		float64(lower), float64(width), float64(upper),
	))
}

// hist1d is an alias of histogram1d under the name older ctypes
// harnesses bind.
//
//export hist1d
func hist1d(values *C.double, nValues C.long, binCounts *C.double, nBins C.long, lower, width, upper C.double) C.int {
	return histogram1d(values, nValues, binCounts, nBins, lower, width, upper)
}
