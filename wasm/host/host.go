// Package host runs the WASM build of the fhist kernels from Go.
//
// The module (wasm/tinygo) owns two static buffers, one for input values
// and one for bin counts. The host reads their offsets once at load time
// and caches them, so a call is:
//   - copy the input (and counts) into WASM linear memory
//   - call the export
//   - copy the counts back
//
// No malloc/free happens on the hot path. Inputs larger than the module's
// buffer are split into chunks on the host side.
//
// Two runtimes are supported behind the same Kernels type: wasmtime-go and
// wazero.
package host

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	fhist "github.com/paulstuart/cgo-fhist"
)

// Runtime identifies which WASM engine hosts the module.
type Runtime string

const (
	RuntimeWasmtime Runtime = "wasmtime"
	RuntimeWazero   Runtime = "wazero"
)

// Option configures Kernels.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for load-time diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// backend is one WASM engine's view of an instantiated module.
type backend interface {
	// exportU32 calls a no-argument export returning an i32.
	exportU32(name string) (uint32, error)
	memory() ([]byte, error)
	sum(n uint32) (float64, error)
	hist1d(n, bins uint32, r fhist.Range) (fhist.Status, error)
	close() error
}

// Kernels provides WASM-backed sum and histogram. It is safe for
// concurrent use; calls are serialized because they share module memory.
type Kernels struct {
	runtime Runtime
	be      backend
	logger  *zap.Logger

	// Pre-computed buffer offsets in WASM linear memory
	valuesOffset uint32
	countsOffset uint32
	capacity     uint32
	binsCapacity uint32

	mu sync.Mutex
}

// Load instantiates the module at path on the given runtime.
func Load(ctx context.Context, rt Runtime, path string, opts ...Option) (*Kernels, error) {
	switch rt {
	case RuntimeWasmtime:
		return NewWasmtimeKernelsFromFile(path, opts...)
	case RuntimeWazero:
		return NewWazeroKernelsFromFile(ctx, path, opts...)
	default:
		return nil, fmt.Errorf("unknown WASM runtime %q", rt)
	}
}

func newKernels(rt Runtime, be backend, o options) (*Kernels, error) {
	k := &Kernels{runtime: rt, be: be, logger: o.logger}

	offsets := []struct {
		name string
		dst  *uint32
	}{
		{"get_values_offset", &k.valuesOffset},
		{"get_counts_offset", &k.countsOffset},
		{"get_capacity", &k.capacity},
		{"get_bins_capacity", &k.binsCapacity},
	}
	for _, off := range offsets {
		v, err := be.exportU32(off.name)
		if err != nil {
			be.close()
			return nil, err
		}
		*off.dst = v
	}
	if k.capacity == 0 || k.binsCapacity == 0 {
		be.close()
		return nil, fmt.Errorf("module reports zero buffer capacity")
	}

	k.logger.Debug("loaded fhist module",
		zap.String("runtime", string(rt)),
		zap.Uint32("capacity", k.capacity),
		zap.Uint32("bins_capacity", k.binsCapacity),
		zap.Uint32("values_offset", k.valuesOffset),
		zap.Uint32("counts_offset", k.countsOffset))
	return k, nil
}

// Runtime returns the engine hosting the module.
func (k *Kernels) Runtime() Runtime {
	return k.runtime
}

// Capacity returns the maximum number of values passed per WASM call.
func (k *Kernels) Capacity() int {
	return int(k.capacity)
}

// Close releases WASM resources.
func (k *Kernels) Close() error {
	return k.be.close()
}

// Sum returns the pairwise sum of data computed inside the module.
func (k *Kernels) Sum(data []float64) (float64, error) {
	n := len(data)
	if n == 0 {
		return 0, nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if n <= int(k.capacity) {
		return k.sumChunk(data)
	}

	chunks := (n + int(k.capacity) - 1) / int(k.capacity)
	k.logger.Debug("chunking sum", zap.Int("n", n), zap.Int("chunks", chunks))

	partials := make([]float64, 0, chunks)
	for lo := 0; lo < n; lo += int(k.capacity) {
		hi := min(lo+int(k.capacity), n)
		s, err := k.sumChunk(data[lo:hi])
		if err != nil {
			return 0, err
		}
		partials = append(partials, s)
	}
	return fhist.Sum(partials), nil
}

func (k *Kernels) sumChunk(chunk []float64) (float64, error) {
	if err := k.copyToWasm(chunk, k.valuesOffset); err != nil {
		return 0, err
	}
	return k.be.sum(uint32(len(chunk)))
}

// Histogram1D increments counts inside the module; see fhist.Histogram1D
// for the contract. Invalid parameters are rejected before any memory is
// written, and counts is only updated after every chunk succeeded.
func (k *Kernels) Histogram1D(data, counts []float64, r fhist.Range) error {
	bins := len(counts)
	if err := r.Validate(bins); err != nil {
		return err
	}
	if bins > int(k.binsCapacity) {
		return fmt.Errorf("%w: %d bins exceeds module capacity %d", fhist.ErrInvalidBins, bins, k.binsCapacity)
	}
	if len(data) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.copyToWasm(counts, k.countsOffset); err != nil {
		return err
	}
	for lo := 0; lo < len(data); lo += int(k.capacity) {
		hi := min(lo+int(k.capacity), len(data))
		if err := k.copyToWasm(data[lo:hi], k.valuesOffset); err != nil {
			return err
		}
		status, err := k.be.hist1d(uint32(hi-lo), uint32(bins), r)
		if err != nil {
			return err
		}
		if status != fhist.StatusOK {
			return fmt.Errorf("hist1d: %w", status.Err())
		}
	}
	return k.copyFromWasm(counts, k.countsOffset)
}

// float64Bytes views data as raw bytes. WASM linear memory is
// little-endian, as are the supported hosts (amd64, arm64).
func float64Bytes(data []float64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*8)
}

// copyToWasm copies a float64 slice to WASM linear memory at offset.
func (k *Kernels) copyToWasm(data []float64, offset uint32) error {
	mem, err := k.be.memory()
	if err != nil {
		return err
	}
	end := uint64(offset) + uint64(len(data))*8
	if end > uint64(len(mem)) {
		return fmt.Errorf("write of %d values at %d overruns WASM memory", len(data), offset)
	}
	copy(mem[offset:end], float64Bytes(data))
	return nil
}

// copyFromWasm copies float64 values out of WASM linear memory.
func (k *Kernels) copyFromWasm(dst []float64, offset uint32) error {
	mem, err := k.be.memory()
	if err != nil {
		return err
	}
	end := uint64(offset) + uint64(len(dst))*8
	if end > uint64(len(mem)) {
		return fmt.Errorf("read of %d values at %d overruns WASM memory", len(dst), offset)
	}
	copy(float64Bytes(dst), mem[offset:end])
	return nil
}
