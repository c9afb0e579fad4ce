package bench

import (
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-vecmath/cpu"
	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	calls := 0
	s := Run(20, func() { calls++ })

	assert.Equal(t, 20, calls)
	assert.Equal(t, 20, s.N)
	assert.LessOrEqual(t, s.Min, s.Avg)
	assert.LessOrEqual(t, s.Min, s.P95)
	assert.LessOrEqual(t, s.P95, s.Max)

	assert.Equal(t, 1, Run(0, func() {}).N)
}

func TestRepeat(t *testing.T) {
	calls := 0
	s := Repeat(5, 3, func() { calls++ })

	assert.Equal(t, 15, calls)
	assert.Equal(t, 5, s.N)
	assert.LessOrEqual(t, s.Min, s.Max)
}

func TestSummarizeDividesPerCall(t *testing.T) {
	s := summarize([]time.Duration{40, 20, 60, 80}, 2)
	assert.Equal(t, time.Duration(10), s.Min)
	assert.Equal(t, time.Duration(40), s.Max)
	assert.Equal(t, time.Duration(25), s.Avg)
	assert.Equal(t, time.Duration(40), s.P95)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ns", FormatDuration(500))
	assert.Equal(t, "1.5µs", FormatDuration(1500))
	assert.Equal(t, "2.5ms", FormatDuration(2500*time.Microsecond))
	assert.Contains(t, Stats{}.String(), "avg=0ns")
}

func TestIsClose(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{1, 1, true},
		{1000, 1000.001, true},
		{1000, 1000.1, false},
		{0, 1e-9, true},
		{0, 1e-6, false},
		{math.Inf(1), math.Inf(1), true},
		{math.Inf(1), math.Inf(-1), false},
		{math.Inf(1), 1e308, false},
		{math.NaN(), math.NaN(), false},
		{1, math.NaN(), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsClose(tt.a, tt.b), "IsClose(%v, %v)", tt.a, tt.b)
	}
}

func TestAllClose(t *testing.T) {
	assert.True(t, AllClose([]float64{1, 2, 3}, []float64{1, 2, 3.00000001}))
	assert.False(t, AllClose([]float64{1, 2, 3}, []float64{1, 2, 4}))
	assert.False(t, AllClose([]float64{1, 2}, []float64{1, 2, 3}))
	assert.True(t, AllClose(nil, nil))
}

func TestDetectEnvironment(t *testing.T) {
	defer cpu.ResetDetection()

	cpu.SetForcedFeatures(cpu.Features{HasSSE2: true, HasAVX2: true, Architecture: "amd64"})
	env := DetectEnvironment()
	assert.Equal(t, "amd64", env.Arch)
	assert.Equal(t, cpu.SIMDAVX2, env.SIMD)
	assert.Positive(t, env.GOMAXPROCS)

	cpu.SetForcedFeatures(cpu.Features{HasNEON: true, Architecture: "arm64"})
	assert.Equal(t, cpu.SIMDNEON, DetectEnvironment().SIMD)

	cpu.SetForcedFeatures(cpu.Features{HasAVX2: true, ForceGeneric: true, Architecture: "amd64"})
	assert.Equal(t, cpu.SIMDNone, DetectEnvironment().SIMD)
}
