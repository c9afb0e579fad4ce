// Package reference holds the implementations fhist is compared against:
// plain Go loops, a SIMD reduction from go-highway, and gonum's vectorized
// floats and stat routines.
//
// None of these make fhist's numerical guarantees. They exist to measure
// speed and to check that results agree within tolerance.
package reference

import (
	"math"
	"slices"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NaiveSum computes the sum with a single left-to-right accumulator.
func NaiveSum(data []float64) float64 {
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum
}

// UnrolledSum uses loop unrolling for better performance.
func UnrolledSum(data []float64) float64 {
	var sum0, sum1, sum2, sum3 float64
	n := len(data)
	i := 0

	// Process 4 elements at a time
	for ; i+3 < n; i += 4 {
		sum0 += data[i]
		sum1 += data[i+1]
		sum2 += data[i+2]
		sum3 += data[i+3]
	}

	// Handle remainder
	for ; i < n; i++ {
		sum0 += data[i]
	}

	return sum0 + sum1 + sum2 + sum3
}

// VectorSum reduces with hwy vector lanes, using whatever SIMD width the
// CPU offers.
func VectorSum(data []float64) float64 {
	return vec.BaseSum(data)
}

// GonumSum is gonum's floats.Sum.
func GonumSum(data []float64) float64 {
	return floats.Sum(data)
}

// NaiveHistogram bins with the same linear index as fhist but without
// range validation or clamping. counts must be zeroed and bins > 0.
func NaiveHistogram(data, counts []float64, lower, upper float64) {
	bins := len(counts)
	scale := float64(bins) / (upper - lower)
	for _, v := range data {
		i := int(math.Floor((v - lower) * scale))
		if i >= 0 && i < bins {
			counts[i]++
		}
	}
}

// EdgeHistogram bins by comparison against explicit edges via gonum's
// stat.Histogram, the way general-purpose libraries do.
//
// Unlike fhist, the last bin is closed: a value equal to upper is counted
// in the last bin. counts must have len == bins and is overwritten.
// data is not modified.
func EdgeHistogram(data, counts []float64, lower, upper float64) []float64 {
	bins := len(counts)
	edges := floats.Span(make([]float64, bins+1), lower, upper)

	inRange := make([]float64, 0, len(data))
	var atUpper float64
	for _, v := range data {
		switch {
		case v >= lower && v < upper:
			inRange = append(inRange, v)
		case v == upper:
			atUpper++
		}
	}
	slices.Sort(inRange)

	clear(counts)
	stat.Histogram(counts, edges, inRange, nil)
	counts[bins-1] += atUpper
	return counts
}
