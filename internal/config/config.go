// Package config loads the rasterprefetch configuration from a YAML file,
// RASTERPREFETCH_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pspoerri/rasterprefetch/internal/bytesize"
	"github.com/pspoerri/rasterprefetch/internal/logger"
)

// Config is the full run configuration.
//
// Precedence, highest first: CLI flags, RASTERPREFETCH_* environment
// variables, the configuration file, defaults.
type Config struct {
	Logging  logger.Config  `mapstructure:"logging" yaml:"logging"`
	Stream   StreamConfig   `mapstructure:"stream" yaml:"stream"`
	Prefetch PrefetchConfig `mapstructure:"prefetch" yaml:"prefetch"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Filter   FilterConfig   `mapstructure:"filter" yaml:"filter"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// StreamConfig selects the order in which output regions are requested.
type StreamConfig struct {
	Mode     string `mapstructure:"mode" yaml:"mode" validate:"oneof=tiled stripped hilbert"`
	TileSize int    `mapstructure:"tile_size" yaml:"tile_size" validate:"gt=0"`
}

// PrefetchConfig controls the predictive cache.
type PrefetchConfig struct {
	// Enabled=false runs every request synchronously, as a baseline.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MaxBytes drops predictions whose buffer would exceed this size.
	// Zero means no limit unless MemoryFraction is set.
	MaxBytes bytesize.ByteSize `mapstructure:"max_bytes" yaml:"max_bytes"`

	// MemoryFraction derives MaxBytes from physical RAM when MaxBytes is 0.
	MemoryFraction float64 `mapstructure:"memory_fraction" yaml:"memory_fraction" validate:"gte=0,lte=1"`
}

// SourceConfig tunes the upstream reader.
type SourceConfig struct {
	TileCacheEntries int `mapstructure:"tile_cache_entries" yaml:"tile_cache_entries" validate:"gte=0"`

	// Latency is added to every upstream fetch to emulate a remote source.
	Latency time.Duration `mapstructure:"latency" yaml:"latency" validate:"gte=0"`
}

// FilterConfig selects the downstream filter.
type FilterConfig struct {
	Kind   string `mapstructure:"kind" yaml:"kind" validate:"oneof=none mean"`
	Radius int    `mapstructure:"radius" yaml:"radius" validate:"gte=0"`
}

// OutputConfig controls how filtered regions are written.
type OutputConfig struct {
	Format      string  `mapstructure:"format" yaml:"format" validate:"oneof=tiff png jpeg webp terrarium"`
	Quality     int     `mapstructure:"quality" yaml:"quality" validate:"gte=1,lte=100"`
	Workers     int     `mapstructure:"workers" yaml:"workers" validate:"gte=0"`
	DataType    string  `mapstructure:"data_type" yaml:"data_type" validate:"oneof=float32 uint8"`
	Compression string  `mapstructure:"compression" yaml:"compression" validate:"oneof=none deflate"`
	RangeMin    float32 `mapstructure:"range_min" yaml:"range_min"`
	RangeMax    float32 `mapstructure:"range_max" yaml:"range_max"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
}

// ReportConfig controls the JSON run report.
type ReportConfig struct {
	// Path of the JSON report; empty disables it.
	Path string `mapstructure:"path" yaml:"path"`
}

// Load reads configPath (optional; empty skips the file), overlays the
// environment and applies defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// setupViper wires the environment and, if given, the config file. Every key
// is bound explicitly so that environment variables apply even without a
// config file.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("RASTERPREFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys(reflect.TypeOf(Config{}), "") {
		_ = v.BindEnv(key)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

// keys lists the dotted mapstructure keys of the leaves of t.
func keys(t reflect.Type, prefix string) []string {
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			out = append(out, keys(f.Type, name)...)
			continue
		}
		out = append(out, name)
	}
	return out
}

// configDecodeHooks handles ByteSize and time.Duration values.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// byteSizeDecodeHook converts strings like "64Mi" or "1GB" and plain numbers
// to bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if cfg.Output.RangeMax < cfg.Output.RangeMin {
		return fmt.Errorf("output.range_max %v is below output.range_min %v", cfg.Output.RangeMax, cfg.Output.RangeMin)
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
