package main

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhist "github.com/paulstuart/cgo-fhist"
)

func ptr(s []float64) *float64 {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

func TestSumRaw(t *testing.T) {
	data := []float64{1, 2, 3, 4.5}
	assert.Equal(t, 10.5, sumRaw(ptr(data), int64(len(data))))
	assert.Equal(t, 3.0, sumRaw(ptr(data), 2), "length bounds the view")
	assert.Equal(t, 0.0, sumRaw(nil, 0))
	assert.Equal(t, 0.0, sumRaw(ptr(data), 0))
	assert.Equal(t, 4.5, sumRaw(&data[3], 1))
}

func TestSumRawContractViolations(t *testing.T) {
	data := []float64{1, 2}
	assert.True(t, math.IsNaN(sumRaw(ptr(data), -1)))
	assert.True(t, math.IsNaN(sumRaw(nil, 5)))
}

func TestSumRawTenths(t *testing.T) {
	data := make([]float64, 10000)
	for i := range data {
		data[i] = 0.1
	}
	got := sumRaw(ptr(data), int64(len(data)))
	assert.LessOrEqual(t, math.Abs(got-1000)/1000, 1e-9)
}

func TestHistogramRaw(t *testing.T) {
	values := []float64{-0.5, 0.05, 0.15, 0.25, 0.35, 0.45, 0.55, 0.65, 0.75, 0.85, 0.95, 1.5, 0.0, 0.5, 1.0}
	counts := make([]float64, 10)

	status := histogramRaw(ptr(values), int64(len(values)), ptr(counts), int64(len(counts)), 0.0, 0.1, 1.0)
	require.Equal(t, fhist.StatusOK, status)
	assert.Equal(t, []float64{2, 1, 1, 1, 1, 2, 1, 1, 1, 1}, counts)
}

func TestHistogramRawEmptyInput(t *testing.T) {
	counts := []float64{3, 0, 1}
	status := histogramRaw(nil, 0, ptr(counts), 3, 0, 1, 3)
	require.Equal(t, fhist.StatusOK, status)
	assert.Equal(t, []float64{3, 0, 1}, counts)
}

func TestHistogramRawStatus(t *testing.T) {
	values := []float64{0.1, 0.2}

	tests := []struct {
		name                string
		values              *float64
		nValues, nBins      int64
		lower, width, upper float64
		want                fhist.Status
	}{
		{"zero bins", ptr(values), 2, 0, 0, 0.1, 1, fhist.StatusInvalidBins},
		{"negative bins", ptr(values), 2, -3, 0, 0.1, 1, fhist.StatusInvalidBins},
		{"zero width", ptr(values), 2, 4, 0, 0, 1, fhist.StatusInvalidWidth},
		{"NaN width", ptr(values), 2, 4, 0, math.NaN(), 1, fhist.StatusInvalidWidth},
		{"inverted", ptr(values), 2, 4, 1, 0.1, 0, fhist.StatusInvalidRange},
		{"equal bounds", ptr(values), 2, 4, 1, 0.1, 1, fhist.StatusInvalidRange},
		{"negative length", ptr(values), -1, 4, 0, 0.25, 1, fhist.StatusInvalidLength},
		{"nil values", nil, 2, 4, 0, 0.25, 1, fhist.StatusNilBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := []float64{7, 7, 7, 7}
			before := slices.Clone(counts)
			got := histogramRaw(tt.values, tt.nValues, ptr(counts), tt.nBins, tt.lower, tt.width, tt.upper)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, fhist.StatusOK, got)
			assert.Equal(t, before, counts)
		})
	}
}

func TestHistogramRawNilCounts(t *testing.T) {
	values := []float64{0.1}
	assert.Equal(t, fhist.StatusNilBuffer, histogramRaw(ptr(values), 1, nil, 10, 0, 0.1, 1))
}
