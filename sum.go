package fhist

import "math"

// PairwiseBlock is the length below which Sum stops splitting and
// accumulates sequentially.
const PairwiseBlock = 32

// Sum returns the sum of all elements using pairwise summation.
//
// Rounding error grows as O(log N * eps) instead of the O(N * eps) of a
// left-to-right loop. Returns 0 for an empty slice and values[0] unchanged
// for a single element. NaN and infinities propagate per IEEE-754.
func Sum(values []float64) float64 {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return values[0]
	}
	return pairwise(values)
}

func pairwise(values []float64) float64 {
	if len(values) <= PairwiseBlock {
		return sumBlock(values)
	}
	mid := len(values) / 2
	return pairwise(values[:mid]) + pairwise(values[mid:])
}

// sumBlock accumulates into four independent lanes so the adds pipeline.
func sumBlock(values []float64) float64 {
	n := len(values)
	if n < 4 {
		s := values[0]
		for _, v := range values[1:] {
			s += v
		}
		return s
	}

	sum0, sum1, sum2, sum3 := values[0], values[1], values[2], values[3]
	i := 4
	for ; i+3 < n; i += 4 {
		sum0 += values[i]
		sum1 += values[i+1]
		sum2 += values[i+2]
		sum3 += values[i+3]
	}
	for ; i < n; i++ {
		sum0 += values[i]
	}

	return (sum0 + sum1) + (sum2 + sum3)
}

// SumKahan returns the sum of all elements using Neumaier's variant of
// compensated summation. The error bound is independent of N, at the cost
// of four extra flops per element.
func SumKahan(values []float64) float64 {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return values[0]
	}

	var sum, c float64
	for _, v := range values {
		sum, c = kahanInc(v, sum, c)
	}
	// Once the running sum is infinite the compensation is meaningless.
	if math.IsInf(sum, 0) {
		return sum
	}
	return sum + c
}

func kahanInc(inc, sum, c float64) (float64, float64) {
	t := sum + inc
	switch {
	case math.IsInf(t, 0):
		c = 0
	case math.Abs(sum) >= math.Abs(inc):
		c += (sum - t) + inc
	default:
		c += (inc - t) + sum
	}
	return t, c
}
