package config

import (
	"os"
	"overrides/internal/core/errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML file, fills defaults, applies OVERRIDES_* environment
// overrides and validates the result. Relative source and database paths
// are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	normalize(&cfg)
	resolveRelative(&cfg, filepath.Dir(path))

	if err := Validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.SourcePaths) == 0 {
		cfg.SourcePaths = []string{"."}
	}

	if len(cfg.Index.Extensions) == 0 {
		cfg.Index.Extensions = []string{".java"}
	}
	if cfg.Index.ExcludeDirs == nil {
		cfg.Index.ExcludeDirs = []string{".git", "build", "target", "out", "node_modules"}
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = filepath.Join(".overrides", "hierarchy.db")
	}
	if strings.TrimSpace(cfg.DB.ProjectKey) == "" {
		cfg.DB.ProjectKey = "default"
	}
	if cfg.DB.KeepSnapshots == 0 {
		cfg.DB.KeepSnapshots = 5
	}

	if cfg.Resolver.CacheSize == 0 {
		cfg.Resolver.CacheSize = 4096
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalize(cfg *Config) {
	cfg.SourcePaths = trimAll(cfg.SourcePaths)
	cfg.Index.Extensions = trimAll(cfg.Index.Extensions)
	cfg.Index.ExcludeDirs = trimAll(cfg.Index.ExcludeDirs)
	cfg.Index.ExcludeFiles = trimAll(cfg.Index.ExcludeFiles)
	cfg.DB.Path = strings.TrimSpace(cfg.DB.Path)
	cfg.DB.ProjectKey = strings.TrimSpace(cfg.DB.ProjectKey)
	cfg.Resolver.FocusType = strings.TrimSpace(cfg.Resolver.FocusType)
	cfg.Observability.MetricsAddress = strings.TrimSpace(cfg.Observability.MetricsAddress)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func resolveRelative(cfg *Config, baseDir string) {
	for i, p := range cfg.SourcePaths {
		cfg.SourcePaths[i] = ResolveRelative(baseDir, p)
	}
	cfg.DB.Path = ResolveRelative(baseDir, cfg.DB.Path)
}

// ResolveRelative joins p onto base unless p is already absolute.
func ResolveRelative(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
