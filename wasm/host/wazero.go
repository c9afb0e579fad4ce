package host

import (
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	fhist "github.com/paulstuart/cgo-fhist"
)

const wasiModule = "wasi_snapshot_preview1"

// wazeroBackend hosts the module on wazero.
type wazeroBackend struct {
	ctx     context.Context
	runtime wazero.Runtime
	module  api.Module

	// Exported functions
	fnSum    api.Function
	fnHist1D api.Function
}

// NewWazeroKernelsFromFile loads a WASM module from a file path.
func NewWazeroKernelsFromFile(ctx context.Context, path string, opts ...Option) (*Kernels, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load module from %s: %w", path, err)
	}
	return NewWazeroKernels(ctx, wasmBytes, opts...)
}

// NewWazeroKernels compiles and instantiates wasmBytes on wazero.
// ctx is used for every later call into the module.
func NewWazeroKernels(ctx context.Context, wasmBytes []byte, opts ...Option) (*Kernels, error) {
	o := buildOptions(opts)
	runtime := wazero.NewRuntime(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	needsWasi := false
	for _, imp := range compiled.ImportedFunctions() {
		if mod, _, _ := imp.Import(); mod == wasiModule {
			needsWasi = true
			break
		}
	}
	o.logger.Debug("instantiating module", zap.String("runtime", string(RuntimeWazero)), zap.Bool("wasi", needsWasi))

	if needsWasi {
		wasi_snapshot_preview1.MustInstantiate(ctx, runtime)
	}

	// Start functions are skipped: the module is a library, not a command.
	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithStartFunctions())
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASM module: %w", err)
	}

	be := &wazeroBackend{ctx: ctx, runtime: runtime, module: module}

	if initialize := module.ExportedFunction("_initialize"); initialize != nil {
		if _, err := initialize.Call(ctx); err != nil {
			be.close()
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	be.fnSum = module.ExportedFunction("sum")
	be.fnHist1D = module.ExportedFunction("hist1d")
	if be.fnSum == nil || be.fnHist1D == nil || module.Memory() == nil {
		be.close()
		return nil, fmt.Errorf("missing required WASM exports")
	}

	return newKernels(RuntimeWazero, be, o)
}

func (b *wazeroBackend) exportU32(name string) (uint32, error) {
	fn := b.module.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("module does not export '%s'", name)
	}
	results, err := fn.Call(b.ctx)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", name, err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("%s returned %d results, want 1", name, len(results))
	}
	return api.DecodeU32(results[0]), nil
}

func (b *wazeroBackend) memory() ([]byte, error) {
	mem := b.module.Memory()
	data, ok := mem.Read(0, mem.Size())
	if !ok {
		return nil, fmt.Errorf("failed to read WASM memory")
	}
	return data, nil
}

func (b *wazeroBackend) sum(n uint32) (float64, error) {
	results, err := b.fnSum.Call(b.ctx, api.EncodeU32(n))
	if err != nil {
		return 0, fmt.Errorf("sum failed: %w", err)
	}
	return api.DecodeF64(results[0]), nil
}

func (b *wazeroBackend) hist1d(n, bins uint32, r fhist.Range) (fhist.Status, error) {
	results, err := b.fnHist1D.Call(b.ctx,
		api.EncodeU32(n), api.EncodeU32(bins),
		api.EncodeF64(r.Lower), api.EncodeF64(r.Width), api.EncodeF64(r.Upper))
	if err != nil {
		return fhist.StatusInternal, fmt.Errorf("hist1d failed: %w", err)
	}
	return fhist.Status(api.DecodeI32(results[0])), nil
}

func (b *wazeroBackend) close() error {
	return multierr.Append(b.module.Close(b.ctx), b.runtime.Close(b.ctx))
}
