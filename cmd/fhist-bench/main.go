// Command fhist-bench compares every fhist implementation for speed and
// agreement: pure Go, the worker-pool kernels, the C build through cgo,
// the TinyGo module on wasmtime and wazero, and the reference loops.
//
// Usage:
//
//	fhist-bench [-config bench.yaml] [-sizes 1000,100000] [-repeat 100] [-v]
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	fhist "github.com/paulstuart/cgo-fhist"
	"github.com/paulstuart/cgo-fhist/internal/bench"
	"github.com/paulstuart/cgo-fhist/internal/config"
	"github.com/paulstuart/cgo-fhist/native"
	"github.com/paulstuart/cgo-fhist/parallel"
	"github.com/paulstuart/cgo-fhist/reference"
	"github.com/paulstuart/cgo-fhist/wasm/host"
)

type sumImpl struct {
	name string
	fn   func([]float64) (float64, error)
}

type histImpl struct {
	name string
	fn   func(data, counts []float64) error
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		sizes      = flag.String("sizes", "", "comma-separated input sizes")
		repeat     = flag.Int("repeat", 0, "timing batches per implementation")
		workers    = flag.Int("workers", 0, "worker pool size (0 = GOMAXPROCS)")
		wasmModule = flag.String("wasm", "", "path to the TinyGo module")
		seed       = flag.Int64("seed", 0, "random seed")
		verbose    = flag.Bool("v", false, "development logging")
	)
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sizes":
			if cfg.Sizes, err = parseSizes(*sizes); err != nil {
				logger.Fatal("invalid -sizes", zap.Error(err))
			}
		case "repeat":
			cfg.Repeat = *repeat
		case "workers":
			cfg.Workers = *workers
		case "wasm":
			cfg.Wasm.Module = *wasmModule
		case "seed":
			cfg.Seed = *seed
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("implementations disagree", zap.Errors("mismatches", multierr.Errors(err)))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	env := bench.DetectEnvironment()
	logger.Info("environment",
		zap.String("arch", env.Arch),
		zap.Int("gomaxprocs", env.GOMAXPROCS),
		zap.Stringer("simd", env.SIMD),
		zap.Int("sizes", len(cfg.Sizes)),
		zap.Int("repeat", cfg.Repeat),
		zap.Int("bins", cfg.Histogram.Bins))

	pk := parallel.New(cfg.Workers)
	defer pk.Close()

	nk := native.NewKernels(slices.Max(cfg.Sizes), cfg.Histogram.Bins)
	defer nk.Close()

	sums := []sumImpl{
		{"fhist", wrap(fhist.Sum)},
		{"fhist-kahan", wrap(fhist.SumKahan)},
		{"parallel", wrap(pk.Sum)},
		{"native", wrap(nk.Sum)},
		{"native-direct", wrap(native.DirectSum)},
		{"naive", wrap(reference.NaiveSum)},
		{"unrolled", wrap(reference.UnrolledSum)},
		{"hwy-vec", wrap(reference.VectorSum)},
		{"gonum", wrap(reference.GonumSum)},
	}

	h := cfg.Histogram
	r := fhist.NewRange(h.Lower, h.Upper, h.Bins)
	hists := []histImpl{
		{"fhist", func(data, counts []float64) error { return fhist.Histogram1D(data, counts, r) }},
		{"parallel", func(data, counts []float64) error { return pk.Histogram1D(data, counts, r) }},
		{"native", func(data, counts []float64) error { return nk.Histogram1D(data, counts, r) }},
		{"native-direct", func(data, counts []float64) error { return native.DirectHistogram1D(data, counts, r) }},
		{"naive", func(data, counts []float64) error {
			reference.NaiveHistogram(data, counts, h.Lower, h.Upper)
			return nil
		}},
		{"gonum", func(data, counts []float64) error {
			reference.EdgeHistogram(data, counts, h.Lower, h.Upper)
			return nil
		}},
	}

	for _, wk := range loadWasm(ctx, cfg.Wasm, logger) {
		defer func() {
			if err := wk.Close(); err != nil {
				logger.Warn("failed to close WASM runtime", zap.String("runtime", string(wk.Runtime())), zap.Error(err))
			}
		}()
		name := "wasm-" + string(wk.Runtime())
		sums = append(sums, sumImpl{name, wk.Sum})
		hists = append(hists, histImpl{name, func(data, counts []float64) error {
			return wk.Histogram1D(data, counts, r)
		}})
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	var errs error
	for _, n := range cfg.Sizes {
		uniform := make([]float64, n)
		for i := range uniform {
			uniform[i] = rng.Float64()
		}
		normal := make([]float64, n)
		for i := range normal {
			normal[i] = rng.NormFloat64()*(h.Upper-h.Lower)/4 + (h.Lower+h.Upper)/2
		}

		fmt.Fprintf(w, "\nsum n=%d\t\t\t\n", n)
		errs = multierr.Append(errs, runSums(w, logger, cfg, uniform, sums))

		fmt.Fprintf(w, "\nhistogram n=%d bins=%d\t\t\t\n", n, h.Bins)
		errs = multierr.Append(errs, runHists(w, logger, cfg, normal, hists))
	}
	return errs
}

func wrap(fn func([]float64) float64) func([]float64) (float64, error) {
	return func(data []float64) (float64, error) { return fn(data), nil }
}

// loadWasm returns the module hosted on each configured runtime. A missing
// module disables the WASM implementations rather than failing the run.
func loadWasm(ctx context.Context, cfg config.WasmConfig, logger *zap.Logger) []*host.Kernels {
	if cfg.Module == "" {
		return nil
	}
	path, err := filepath.Abs(cfg.Module)
	if err != nil {
		logger.Warn("cannot resolve WASM module path", zap.String("module", cfg.Module), zap.Error(err))
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn("WASM module not found, skipping", zap.String("module", path))
		return nil
	}

	var loaded []*host.Kernels
	for _, name := range cfg.Runtimes {
		k, err := host.Load(ctx, host.Runtime(name), path, host.WithLogger(logger))
		if err != nil {
			logger.Warn("failed to load WASM module", zap.String("runtime", name), zap.Error(err))
			continue
		}
		loaded = append(loaded, k)
	}
	return loaded
}

func runSums(w *tabwriter.Writer, logger *zap.Logger, cfg config.Config, data []float64, impls []sumImpl) error {
	want := fhist.Sum(data)

	var errs error
	for _, impl := range impls {
		got, err := impl.fn(data)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sum %s n=%d: %w", impl.name, len(data), err))
			continue
		}
		if !bench.IsClose(got, want) {
			errs = multierr.Append(errs, fmt.Errorf("sum %s n=%d: got %v, want %v", impl.name, len(data), got, want))
		}

		stats := bench.Repeat(cfg.Repeat, cfg.SumNumber, func() { _, _ = impl.fn(data) })
		report(w, logger, "sum", impl.name, len(data), stats)
	}
	return errs
}

func runHists(w *tabwriter.Writer, logger *zap.Logger, cfg config.Config, data []float64, impls []histImpl) error {
	bins := cfg.Histogram.Bins
	want := make([]float64, bins)
	if err := fhist.Histogram1D(data, want, fhist.NewRange(cfg.Histogram.Lower, cfg.Histogram.Upper, bins)); err != nil {
		return fmt.Errorf("histogram baseline n=%d: %w", len(data), err)
	}

	var errs error
	counts := make([]float64, bins)
	for _, impl := range impls {
		clear(counts)
		if err := impl.fn(data, counts); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("histogram %s n=%d: %w", impl.name, len(data), err))
			continue
		}
		if !bench.AllClose(counts, want) {
			errs = multierr.Append(errs, fmt.Errorf("histogram %s n=%d: got %v, want %v", impl.name, len(data), counts, want))
		}

		stats := bench.Repeat(cfg.Repeat, cfg.HistNumber, func() {
			clear(counts)
			_ = impl.fn(data, counts)
		})
		report(w, logger, "histogram", impl.name, len(data), stats)
	}
	return errs
}

func report(w *tabwriter.Writer, logger *zap.Logger, op, name string, n int, stats bench.Stats) {
	fmt.Fprintf(w, "  %s\t%s\t%s\t\n", name, stats, throughput(n, stats.Min))
	logger.Debug("benchmark",
		zap.String("op", op),
		zap.String("impl", name),
		zap.Int("n", n),
		zap.Duration("min", stats.Min),
		zap.Duration("avg", stats.Avg),
		zap.Duration("p95", stats.P95),
		zap.Duration("max", stats.Max))
}

func throughput(n int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f Melem/s", float64(n)/d.Seconds()/1e6)
}
