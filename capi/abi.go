package main

import (
	"math"
	"unsafe"

	fhist "github.com/paulstuart/cgo-fhist"
)

// view borrows n contiguous float64 values starting at p.
func view(p *float64, n int64) []float64 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(p, n)
}

// sumRaw implements the exported sum symbol over Go types.
// A negative length or a nil pointer with a positive length returns NaN.
func sumRaw(values *float64, length int64) (result float64) {
	defer func() {
		if recover() != nil {
			result = math.NaN()
		}
	}()

	switch {
	case length < 0:
		return math.NaN()
	case length == 0:
		return 0
	case values == nil:
		return math.NaN()
	}
	return fhist.Sum(view(values, length))
}

// histogramRaw implements the exported histogram1d symbol over Go types.
// Every contract violation is detected before bin_counts is written.
func histogramRaw(values *float64, nValues int64, binCounts *float64, nBins int64, lower, width, upper float64) (status fhist.Status) {
	defer func() {
		if recover() != nil {
			status = fhist.StatusInternal
		}
	}()

	switch {
	case nBins <= 0:
		return fhist.StatusInvalidBins
	case nValues < 0:
		return fhist.StatusInvalidLength
	case binCounts == nil, values == nil && nValues > 0:
		return fhist.StatusNilBuffer
	}

	err := fhist.Histogram1D(view(values, nValues), view(binCounts, nBins), fhist.Range{
		Lower: lower,
		Width: width,
		Upper: upper,
	})
	return fhist.StatusOf(err)
}
