package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/rasterprefetch/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Prefetch.Enabled)
	assert.Equal(t, "tiled", cfg.Stream.Mode)
	assert.Equal(t, 256, cfg.Stream.TileSize)
	assert.Equal(t, "none", cfg.Filter.Kind)
	assert.Equal(t, "tiff", cfg.Output.Format)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: DEBUG
stream:
  mode: stripped
  tile_size: 128
prefetch:
  enabled: false
  max_bytes: 64Mi
source:
  latency: 25ms
filter:
  kind: mean
output:
  format: png
  workers: 3
metrics:
  enabled: true
  addr: 127.0.0.1:9999
report:
  path: run.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "stripped", cfg.Stream.Mode)
	assert.Equal(t, 128, cfg.Stream.TileSize)
	assert.False(t, cfg.Prefetch.Enabled)
	assert.Equal(t, 64*bytesize.MiB, cfg.Prefetch.MaxBytes)
	assert.Equal(t, 25*time.Millisecond, cfg.Source.Latency)
	assert.Equal(t, 32, cfg.Filter.Radius, "mean radius default")
	assert.Equal(t, "png", cfg.Output.Format)
	assert.Equal(t, 3, cfg.Output.Workers)
	assert.Equal(t, 85, cfg.Output.Quality)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Addr)
	assert.Equal(t, "run.json", cfg.Report.Path)
}

func TestLoad_NumericByteSize(t *testing.T) {
	cfg, err := Load(writeConfig(t, "prefetch:\n  max_bytes: 4096\n"))
	require.NoError(t, err)
	assert.Equal(t, bytesize.ByteSize(4096), cfg.Prefetch.MaxBytes)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("RASTERPREFETCH_STREAM_MODE", "hilbert")
	t.Setenv("RASTERPREFETCH_PREFETCH_MAX_BYTES", "1Gi")
	t.Setenv("RASTERPREFETCH_FILTER_RADIUS", "5")

	cfg, err := Load(writeConfig(t, "stream:\n  mode: tiled\nfilter:\n  kind: mean\n"))
	require.NoError(t, err)
	assert.Equal(t, "hilbert", cfg.Stream.Mode)
	assert.Equal(t, bytesize.GiB, cfg.Prefetch.MaxBytes)
	assert.Equal(t, 5, cfg.Filter.Radius)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad mode", "stream:\n  mode: spiral\n"},
		{"bad format", "output:\n  format: gif\n"},
		{"quality", "output:\n  quality: 101\n"},
		{"negative radius", "filter:\n  kind: mean\n  radius: -2\n"},
		{"bad size", "prefetch:\n  max_bytes: lots\n"},
		{"fraction", "prefetch:\n  memory_fraction: 2\n"},
		{"range", "output:\n  range_min: 10\n  range_max: 5\n"},
		{"yaml", "stream: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "not found")
}

func TestSaveAndReload(t *testing.T) {
	cfg := Default()
	cfg.Stream.Mode = "hilbert"
	cfg.Prefetch.MaxBytes = 3 * bytesize.MiB
	cfg.Filter = FilterConfig{Kind: "mean", Radius: 4}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_bytes: 3Mi")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
