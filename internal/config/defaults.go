package config

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{
		Prefetch: PrefetchConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values. Booleans are left alone, since false is
// a meaningful setting.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(cfg)
	applyStreamDefaults(&cfg.Stream)
	applySourceDefaults(&cfg.Source)
	applyFilterDefaults(&cfg.Filter)
	applyOutputDefaults(&cfg.Output)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

func applyStreamDefaults(cfg *StreamConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "tiled"
	}
	if cfg.TileSize == 0 {
		cfg.TileSize = 256
	}
}

func applySourceDefaults(cfg *SourceConfig) {
	if cfg.TileCacheEntries == 0 {
		cfg.TileCacheEntries = 256
	}
}

func applyFilterDefaults(cfg *FilterConfig) {
	if cfg.Kind == "" {
		cfg.Kind = "none"
	}
	if cfg.Kind == "mean" && cfg.Radius == 0 {
		cfg.Radius = 32
	}
}

func applyOutputDefaults(cfg *OutputConfig) {
	if cfg.Format == "" {
		cfg.Format = "tiff"
	}
	if cfg.Quality == 0 {
		cfg.Quality = 85
	}
	if cfg.DataType == "" {
		cfg.DataType = "float32"
	}
	if cfg.Compression == "" {
		cfg.Compression = "deflate"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
}
