package host

import (
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v39"
	"go.uber.org/zap"

	fhist "github.com/paulstuart/cgo-fhist"
)

// wasmtimeBackend hosts the module on wasmtime-go.
type wasmtimeBackend struct {
	engine   *wasmtime.Engine
	store    *wasmtime.Store
	instance *wasmtime.Instance
	mem      *wasmtime.Memory

	// Cached function references
	fnSum    *wasmtime.Func
	fnHist1D *wasmtime.Func
}

// NewWasmtimeKernels compiles and instantiates wasmBytes on wasmtime.
func NewWasmtimeKernels(wasmBytes []byte, opts ...Option) (*Kernels, error) {
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)

	module, err := wasmtime.NewModule(engine, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	return newWasmtimeKernels(engine, store, module, buildOptions(opts))
}

// NewWasmtimeKernelsFromFile loads a WASM module from a file path.
func NewWasmtimeKernelsFromFile(path string, opts ...Option) (*Kernels, error) {
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)

	module, err := wasmtime.NewModuleFromFile(engine, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load module from %s: %w", path, err)
	}

	return newWasmtimeKernels(engine, store, module, buildOptions(opts))
}

func newWasmtimeKernels(engine *wasmtime.Engine, store *wasmtime.Store, module *wasmtime.Module, o options) (*Kernels, error) {
	needsWasi := false
	for _, imp := range module.Imports() {
		if imp.Module() == wasiModule {
			needsWasi = true
			break
		}
	}
	o.logger.Debug("instantiating module", zap.String("runtime", string(RuntimeWasmtime)), zap.Bool("wasi", needsWasi))

	var instance *wasmtime.Instance
	var err error

	if needsWasi {
		linker := wasmtime.NewLinker(engine)
		if err := linker.DefineWasi(); err != nil {
			return nil, fmt.Errorf("failed to define WASI: %w", err)
		}
		store.SetWasi(wasmtime.NewWasiConfig())

		instance, err = linker.Instantiate(store, module)
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate module with WASI: %w", err)
		}
	} else {
		instance, err = wasmtime.NewInstance(store, module, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate module: %w", err)
		}
	}

	memExtern := instance.GetExport(store, "memory")
	if memExtern == nil {
		return nil, fmt.Errorf("module does not export 'memory'")
	}
	mem := memExtern.Memory()
	if mem == nil {
		return nil, fmt.Errorf("'memory' export is not a memory")
	}

	be := &wasmtimeBackend{
		engine:   engine,
		store:    store,
		instance: instance,
		mem:      mem,
	}

	// Reactors need their runtime initialized before any export is used.
	if initialize := instance.GetFunc(store, "_initialize"); initialize != nil {
		if _, err := initialize.Call(store); err != nil {
			be.close()
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	funcs := map[string]**wasmtime.Func{
		"sum":    &be.fnSum,
		"hist1d": &be.fnHist1D,
	}
	for name, ptr := range funcs {
		fn := instance.GetFunc(store, name)
		if fn == nil {
			be.close()
			return nil, fmt.Errorf("module does not export function '%s'", name)
		}
		*ptr = fn
	}

	return newKernels(RuntimeWasmtime, be, o)
}

func (b *wasmtimeBackend) exportU32(name string) (uint32, error) {
	fn := b.instance.GetFunc(b.store, name)
	if fn == nil {
		return 0, fmt.Errorf("module does not export '%s'", name)
	}
	result, err := fn.Call(b.store)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", name, err)
	}
	v, ok := result.(int32)
	if !ok {
		return 0, fmt.Errorf("%s returned %T, want i32", name, result)
	}
	return uint32(v), nil
}

func (b *wasmtimeBackend) memory() ([]byte, error) {
	return b.mem.UnsafeData(b.store), nil
}

func (b *wasmtimeBackend) sum(n uint32) (float64, error) {
	result, err := b.fnSum.Call(b.store, int32(n))
	if err != nil {
		return 0, fmt.Errorf("sum failed: %w", err)
	}
	return result.(float64), nil
}

func (b *wasmtimeBackend) hist1d(n, bins uint32, r fhist.Range) (fhist.Status, error) {
	result, err := b.fnHist1D.Call(b.store, int32(n), int32(bins), r.Lower, r.Width, r.Upper)
	if err != nil {
		return fhist.StatusInternal, fmt.Errorf("hist1d failed: %w", err)
	}
	return fhist.Status(result.(int32)), nil
}

func (b *wasmtimeBackend) close() error {
	b.store.Close()
	b.engine.Close()
	return nil
}
