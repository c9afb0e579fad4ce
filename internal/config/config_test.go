package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Histogram.Bins)
	assert.Equal(t, []string{"wasmtime", "wazero"}, cfg.Wasm.Runtimes)
}

func TestParseOverlay(t *testing.T) {
	cfg := Default()
	doc := `
sizes: [10, 20]
histogram:
  bins: 4
wasm:
  module: ""
`
	require.NoError(t, Parse([]byte(doc), &cfg))

	assert.Equal(t, []int{10, 20}, cfg.Sizes)
	assert.Equal(t, 4, cfg.Histogram.Bins)
	assert.Equal(t, 1.0, cfg.Histogram.Upper, "unset fields keep their defaults")
	assert.Equal(t, 500, cfg.Repeat)
	assert.Empty(t, cfg.Wasm.Module)
}

func TestParseEmpty(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse(nil, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestParseUnknownKey(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("bogus: 1\n"), &cfg)
	assert.ErrorContains(t, err, "bogus")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repeat: 7\nworkers: 2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Repeat)
	assert.Equal(t, 2, cfg.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("repeat: [1\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse "+bad)
}

func TestValidateReportsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Sizes = []int{100, -1}
	cfg.Repeat = 0
	cfg.Histogram.Bins = 0
	cfg.Histogram.Upper = cfg.Histogram.Lower
	cfg.Workers = -3
	cfg.Wasm.Runtimes = []string{"wazero", "v8"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	assert.ErrorContains(t, err, "size -1 must be positive")
	assert.ErrorContains(t, err, `unknown wasm runtime "v8"`)
}
