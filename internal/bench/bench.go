// Package bench times kernel implementations and compares their results.
package bench

import (
	"fmt"
	"math"
	"runtime"
	"slices"
	"time"

	"github.com/cwbudde/algo-vecmath/cpu"
)

// Stats holds timing statistics for a benchmark.
type Stats struct {
	Min   time.Duration
	Avg   time.Duration
	P95   time.Duration
	Max   time.Duration
	Total time.Duration
	N     int
}

// Run runs fn n times and collects per-call timing statistics.
func Run(n int, fn func()) Stats {
	n = max(n, 1)
	times := make([]time.Duration, n)

	for i := 0; i < n; i++ {
		start := time.Now()
		fn()
		times[i] = time.Since(start)
	}

	return summarize(times, 1)
}

// Repeat runs fn number times in a row, repeat times over, and reports
// per-call statistics of each batch. Min is the usual figure to quote:
// the other batches were slowed down by something other than fn.
func Repeat(repeat, number int, fn func()) Stats {
	repeat, number = max(repeat, 1), max(number, 1)
	times := make([]time.Duration, repeat)

	for r := 0; r < repeat; r++ {
		start := time.Now()
		for i := 0; i < number; i++ {
			fn()
		}
		times[r] = time.Since(start)
	}

	return summarize(times, number)
}

func summarize(times []time.Duration, per int) Stats {
	n := len(times)
	for i := range times {
		times[i] /= time.Duration(per)
	}
	slices.Sort(times)

	var total time.Duration
	for _, t := range times {
		total += t
	}

	p95idx := int(float64(n) * 0.95)
	if p95idx >= n {
		p95idx = n - 1
	}

	return Stats{
		Min:   times[0],
		Avg:   total / time.Duration(n),
		P95:   times[p95idx],
		Max:   times[n-1],
		Total: total,
		N:     n,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("avg=%-8s min=%-8s p95=%-8s max=%-8s",
		FormatDuration(s.Avg),
		FormatDuration(s.Min),
		FormatDuration(s.P95),
		FormatDuration(s.Max))
}

// FormatDuration prints d with a unit suited to kernel timings.
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1000)
	}
	return d.Round(time.Microsecond).String()
}

// Default tolerances, matching the usual numerical-library isclose.
const (
	DefaultRTol = 1e-5
	DefaultATol = 1e-8
)

// IsClose reports whether |a-b| <= atol + rtol*|b|. NaNs are never close;
// equal infinities are.
func IsClose(a, b float64) bool {
	return isClose(a, b, DefaultRTol, DefaultATol)
}

// AllClose applies IsClose element-wise. Slices of different length are
// not close.
func AllClose(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !isClose(a[i], b[i], DefaultRTol, DefaultATol) {
			return false
		}
	}
	return true
}

func isClose(a, b, rtol, atol float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= atol+rtol*math.Abs(b)
}

// Environment describes the machine a run happened on.
type Environment struct {
	Arch       string
	GOMAXPROCS int
	SIMD       cpu.SIMDLevel
	Features   cpu.Features
}

// DetectEnvironment reports the architecture and best SIMD level visible to
// the vectorized reference kernels.
func DetectEnvironment() Environment {
	f := cpu.DetectFeatures()
	return Environment{
		Arch:       f.Architecture,
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		SIMD:       bestSIMD(f),
		Features:   f,
	}
}

func bestSIMD(f cpu.Features) cpu.SIMDLevel {
	if f.ForceGeneric {
		return cpu.SIMDNone
	}
	for _, level := range []cpu.SIMDLevel{cpu.SIMDAVX512, cpu.SIMDAVX2, cpu.SIMDAVX, cpu.SIMDSSE2, cpu.SIMDNEON} {
		if cpu.Supports(f, level) {
			return level
		}
	}
	return cpu.SIMDNone
}
