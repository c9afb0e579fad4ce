// Package config holds the fhist-bench run configuration.
//
// A YAML file may override any subset of the defaults:
//
//	sizes: [1000, 10000, 100000, 1000000]
//	repeat: 500
//	sum_number: 5
//	hist_number: 2
//	histogram:
//	  bins: 10
//	  lower: 0.0
//	  upper: 1.0
//	workers: 0
//	wasm:
//	  module: wasm/tinygo/fhist.wasm
//	  runtimes: [wasmtime, wazero]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Sizes      []int           `yaml:"sizes"`
	Repeat     int             `yaml:"repeat"`
	SumNumber  int             `yaml:"sum_number"`
	HistNumber int             `yaml:"hist_number"`
	Histogram  HistogramConfig `yaml:"histogram"`
	Workers    int             `yaml:"workers"`
	Seed       int64           `yaml:"seed"`
	Wasm       WasmConfig      `yaml:"wasm"`
}

type HistogramConfig struct {
	Bins  int     `yaml:"bins"`
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

type WasmConfig struct {
	// Module is the path of the TinyGo build. Empty disables WASM runs.
	Module   string   `yaml:"module"`
	Runtimes []string `yaml:"runtimes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sizes:      []int{1_000, 10_000, 100_000, 1_000_000},
		Repeat:     500,
		SumNumber:  5,
		HistNumber: 2,
		Histogram: HistogramConfig{
			Bins:  10,
			Lower: 0.0,
			Upper: 1.0,
		},
		Seed: 1,
		Wasm: WasmConfig{
			Module:   "wasm/tinygo/fhist.wasm",
			Runtimes: []string{"wasmtime", "wazero"},
		},
	}
}

// Load reads path and overlays it onto Default. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs error
	if len(c.Sizes) == 0 {
		errs = multierr.Append(errs, errors.New("sizes must not be empty"))
	}
	for _, n := range c.Sizes {
		if n <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("size %d must be positive", n))
		}
	}
	if c.Repeat <= 0 {
		errs = multierr.Append(errs, errors.New("repeat must be positive"))
	}
	if c.SumNumber <= 0 || c.HistNumber <= 0 {
		errs = multierr.Append(errs, errors.New("sum_number and hist_number must be positive"))
	}
	if c.Histogram.Bins <= 0 {
		errs = multierr.Append(errs, errors.New("histogram.bins must be positive"))
	}
	if !(c.Histogram.Upper > c.Histogram.Lower) {
		errs = multierr.Append(errs, errors.New("histogram.upper must be greater than histogram.lower"))
	}
	if c.Workers < 0 {
		errs = multierr.Append(errs, errors.New("workers must not be negative"))
	}
	for _, rt := range c.Wasm.Runtimes {
		if rt != "wasmtime" && rt != "wazero" {
			errs = multierr.Append(errs, fmt.Errorf("unknown wasm runtime %q", rt))
		}
	}
	return errs
}
