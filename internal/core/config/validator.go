package config

import (
	"fmt"
	"net"
	"overrides/internal/core/errors"
	"overrides/internal/shared/util"
)

// Validate checks every section and returns the first problem found as a
// VALIDATION_ERROR.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateSources,
		validateIndex,
		validateDatabase,
		validateResolver,
		validateWatch,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.CodeValidationError, fmt.Sprintf(format, args...))
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateSources(cfg *Config) error {
	if len(cfg.SourcePaths) == 0 {
		return invalid("source_paths must list at least one directory")
	}
	return nil
}

func validateIndex(cfg *Config) error {
	if cfg.Index.Workers < 0 {
		return invalid("index.workers must be >= 0, got %d", cfg.Index.Workers)
	}
	if cfg.Index.MaxFileBytes < 0 {
		return invalid("index.max_file_bytes must be >= 0, got %d", cfg.Index.MaxFileBytes)
	}
	if len(cfg.Index.Extensions) == 0 {
		return invalid("index.extensions must not be empty")
	}
	if _, err := util.NewPathFilter(cfg.Index.Extensions, cfg.Index.ExcludeDirs, cfg.Index.ExcludeFiles); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "index exclude pattern does not compile")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if cfg.DB.Path == "" {
		return invalid("db.path must not be empty when db.enabled is set")
	}
	if cfg.DB.KeepSnapshots < 0 {
		return invalid("db.keep_snapshots must be >= 0, got %d", cfg.DB.KeepSnapshots)
	}
	return nil
}

func validateResolver(cfg *Config) error {
	if cfg.Resolver.CacheSize < 0 {
		return invalid("resolver.cache_size must be >= 0, got %d", cfg.Resolver.CacheSize)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxReindexPerSecond < 0 {
		return invalid("watch.max_reindex_per_second must be >= 0, got %v", cfg.Watch.MaxReindexPerSecond)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if addr := cfg.Observability.MetricsAddress; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "observability.metrics_address must be host:port")
		}
	}
	if endpoint := cfg.Observability.OTLPEndpoint; endpoint != "" {
		if _, _, err := net.SplitHostPort(endpoint); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "observability.otlp_endpoint must be host:port")
		}
	}
	return nil
}
