package host

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	fhist "github.com/paulstuart/cgo-fhist"
)

// WASM module path (relative to test execution directory)
const wasmPath = "../tinygo/fhist.wasm"

var runtimes = []Runtime{RuntimeWasmtime, RuntimeWazero}

// Helper to create random test data
func makeData(n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = rand.Float64() * 100
	}
	return data
}

// loadKernels loads the WASM module if it has been built
func loadKernels(t testing.TB, rt Runtime) *Kernels {
	absPath, err := filepath.Abs(wasmPath)
	if err != nil {
		t.Skipf("cannot resolve path for %s: %v", wasmPath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		t.Skipf("WASM module not found: %s (build wasm/tinygo first)", absPath)
	}

	k, err := Load(context.Background(), rt, absPath, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err, "failed to load %s", rt)
	t.Cleanup(func() { assert.NoError(t, k.Close()) })
	return k
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, Runtime("v8"), wasmPath)
	assert.ErrorContains(t, err, "unknown WASM runtime")

	_, err = NewWazeroKernels(ctx, []byte("not wasm"))
	assert.Error(t, err)

	_, err = NewWasmtimeKernels([]byte("not wasm"))
	assert.Error(t, err)

	_, err = NewWazeroKernelsFromFile(ctx, filepath.Join(t.TempDir(), "missing.wasm"))
	assert.Error(t, err)
}

func TestFloat64Bytes(t *testing.T) {
	data := []float64{1, -2.5}
	b := float64Bytes(data)
	require.Len(t, b, 16)
	// 1.0 little-endian: 00 .. 00 f0 3f
	assert.Equal(t, byte(0xf0), b[6])
	assert.Equal(t, byte(0x3f), b[7])
	assert.Empty(t, float64Bytes(nil))
}

func TestSumCorrectness(t *testing.T) {
	for _, rt := range runtimes {
		t.Run(string(rt), func(t *testing.T) {
			k := loadKernels(t, rt)

			for _, n := range []int{0, 1, 1000, k.Capacity(), k.Capacity()*2 + 17} {
				data := makeData(n)
				want := fhist.Sum(data)
				got, err := k.Sum(data)
				require.NoError(t, err)
				assert.InDelta(t, want, got, 1e-9*math.Max(1, want), "n=%d", n)
			}

			got, err := k.Sum([]float64{1, math.NaN()})
			require.NoError(t, err)
			assert.True(t, math.IsNaN(got))
		})
	}
}

func TestHistogramCorrectness(t *testing.T) {
	for _, rt := range runtimes {
		t.Run(string(rt), func(t *testing.T) {
			k := loadKernels(t, rt)

			values := []float64{-0.5, 0.05, 0.15, 0.25, 0.35, 0.45, 0.55, 0.65, 0.75, 0.85, 0.95, 1.5, 0.0, 0.5, 1.0}
			counts := make([]float64, 10)
			require.NoError(t, k.Histogram1D(values, counts, fhist.Range{Lower: 0, Width: 0.1, Upper: 1}))
			assert.Equal(t, []float64{2, 1, 1, 1, 1, 2, 1, 1, 1, 1}, counts)

			data := makeData(k.Capacity() + 1000)
			want := make([]float64, 7)
			r := fhist.NewRange(10, 80, 7)
			require.NoError(t, fhist.Histogram1D(data, want, r))
			got := make([]float64, 7)
			require.NoError(t, k.Histogram1D(data, got, r))
			assert.Equal(t, want, got)
		})
	}
}

func TestHistogramInvalid(t *testing.T) {
	for _, rt := range runtimes {
		t.Run(string(rt), func(t *testing.T) {
			k := loadKernels(t, rt)

			counts := []float64{1, 2, 3}
			before := slices.Clone(counts)
			err := k.Histogram1D(makeData(10), counts, fhist.Range{Lower: 1, Width: 0.1, Upper: 0})
			assert.ErrorIs(t, err, fhist.ErrInvalidRange)
			assert.Equal(t, before, counts)

			err = k.Histogram1D(makeData(10), make([]float64, 5000), fhist.NewRange(0, 1, 5000))
			assert.ErrorIs(t, err, fhist.ErrInvalidBins)
		})
	}
}

// --- Benchmarks ---

func benchmarkWasmSum(b *testing.B, rt Runtime, n int) {
	k := loadKernels(b, rt)
	data := makeData(n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = k.Sum(data)
	}
}

func benchmarkWasmHistogram(b *testing.B, rt Runtime, n int) {
	k := loadKernels(b, rt)
	data := makeData(n)
	counts := make([]float64, 10)
	r := fhist.NewRange(0, 100, 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		clear(counts)
		_ = k.Histogram1D(data, counts, r)
	}
}

func BenchmarkSum_Wasm_Wasmtime_1000(b *testing.B)   { benchmarkWasmSum(b, RuntimeWasmtime, 1000) }
func BenchmarkSum_Wasm_Wasmtime_100000(b *testing.B) { benchmarkWasmSum(b, RuntimeWasmtime, 100000) }
func BenchmarkSum_Wasm_Wazero_1000(b *testing.B)     { benchmarkWasmSum(b, RuntimeWazero, 1000) }
func BenchmarkSum_Wasm_Wazero_100000(b *testing.B)   { benchmarkWasmSum(b, RuntimeWazero, 100000) }

func BenchmarkHistogram_Wasm_Wasmtime_100000(b *testing.B) {
	benchmarkWasmHistogram(b, RuntimeWasmtime, 100000)
}
func BenchmarkHistogram_Wasm_Wazero_100000(b *testing.B) {
	benchmarkWasmHistogram(b, RuntimeWazero, 100000)
}

// --- Overhead Benchmarks (small data to measure call overhead) ---
func BenchmarkOverhead_Wasm_Wasmtime(b *testing.B) { benchmarkWasmSum(b, RuntimeWasmtime, 10) }
func BenchmarkOverhead_Wasm_Wazero(b *testing.B)   { benchmarkWasmSum(b, RuntimeWazero, 10) }

func BenchmarkOverhead_Go_Ref(b *testing.B) {
	data := makeData(10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = fhist.Sum(data)
	}
}
