package fhist

import (
	"fmt"
	"math"
)

// Range describes the half-open interval [Lower, Upper) split into bins of
// equal Width. Width is supplied by the caller, normally
// (Upper-Lower)/bins, so the caller controls its rounding.
type Range struct {
	Lower float64
	Width float64
	Upper float64
}

// NewRange returns the Range covering [lower, upper) with the given number
// of bins. The result is not validated; see Validate.
func NewRange(lower, upper float64, bins int) Range {
	return Range{
		Lower: lower,
		Width: (upper - lower) / float64(bins),
		Upper: upper,
	}
}

// Validate reports whether r and the bin count form a usable histogram.
// NaN and infinite parameters are rejected.
func (r Range) Validate(bins int) error {
	if bins <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBins, bins)
	}
	if !(r.Width > 0) || math.IsInf(r.Width, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidWidth, r.Width)
	}
	if math.IsInf(r.Lower, 0) || math.IsInf(r.Upper, 0) || !(r.Upper > r.Lower) {
		return fmt.Errorf("%w: got [%v, %v)", ErrInvalidRange, r.Lower, r.Upper)
	}
	return nil
}

// Contains reports whether v falls inside [Lower, Upper).
// NaN is never contained.
func (r Range) Contains(v float64) bool {
	return v >= r.Lower && v < r.Upper
}

// Bin returns the bin index of v for a histogram with the given number of
// bins. v must satisfy Contains; rounding in the division is absorbed by
// clamping to [0, bins-1].
func (r Range) Bin(v float64, bins int) int {
	f := (v - r.Lower) / r.Width
	switch {
	case !(f > 0):
		return 0
	case f >= float64(bins):
		return bins - 1
	}
	return int(f)
}

// Histogram1D adds one to counts[i] for every value in bin i of r, where
// len(counts) is the number of bins. Values outside [Lower, Upper), NaN and
// infinities are skipped.
//
// counts is typically zeroed by the caller; existing contents are
// incremented, so repeated calls accumulate. If the parameters are invalid
// an error wrapping one of ErrInvalidBins, ErrInvalidWidth or
// ErrInvalidRange is returned and counts is left untouched.
func Histogram1D(values, counts []float64, r Range) error {
	bins := len(counts)
	if err := r.Validate(bins); err != nil {
		return err
	}

	for _, v := range values {
		if !r.Contains(v) {
			continue
		}
		counts[r.Bin(v, bins)]++
	}
	return nil
}
