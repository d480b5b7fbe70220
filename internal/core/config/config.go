package config

import (
	"time"
)

const DefaultFileName = "overrides.toml"

type Config struct {
	Version       int           `toml:"version"`
	SourcePaths   []string      `toml:"source_paths"`
	Index         Index         `toml:"index"`
	DB            Database      `toml:"db"`
	Resolver      Resolver      `toml:"resolver"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Index struct {
	Extensions   []string `toml:"extensions"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
	Workers      int      `toml:"workers"`
	MaxFileBytes int64    `toml:"max_file_bytes"`
}

type Database struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	ProjectKey    string `toml:"project_key"`
	KeepSnapshots int    `toml:"keep_snapshots"`
}

type Resolver struct {
	TestVisibility bool   `toml:"test_visibility"`
	FocusType      string `toml:"focus_type"`

	// CacheSize bounds the LRU in front of persisted hierarchies.
	CacheSize int `toml:"cache_size"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`

	// MaxReindexPerSecond caps re-index runs triggered by file events;
	// zero means no cap.
	MaxReindexPerSecond float64 `toml:"max_reindex_per_second"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`

	// OTLPEndpoint enables span export over OTLP/gRPC when set.
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
}

// DefaultConfig is the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
