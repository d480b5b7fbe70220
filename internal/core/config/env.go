package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: OVERRIDES_[SECTION]_[KEY] (e.g., OVERRIDES_DB_PATH).
func ApplyEnvOverrides(cfg *Config) {
	if val, ok := os.LookupEnv("OVERRIDES_SOURCE_PATHS"); ok {
		slog.Info("applying env override", "key", "OVERRIDES_SOURCE_PATHS", "value", val)
		cfg.SourcePaths = strings.Split(val, string(os.PathListSeparator))
	}

	setEnvInt(&cfg.Index.Workers, "OVERRIDES_INDEX_WORKERS")

	setEnvBool(&cfg.DB.Enabled, "OVERRIDES_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "OVERRIDES_DB_PATH")
	setEnvString(&cfg.DB.ProjectKey, "OVERRIDES_DB_PROJECT_KEY")

	setEnvBool(&cfg.Resolver.TestVisibility, "OVERRIDES_RESOLVER_TEST_VISIBILITY")
	setEnvString(&cfg.Resolver.FocusType, "OVERRIDES_RESOLVER_FOCUS_TYPE")
	setEnvInt(&cfg.Resolver.CacheSize, "OVERRIDES_RESOLVER_CACHE_SIZE")

	setEnvDuration(&cfg.Watch.Debounce, "OVERRIDES_WATCH_DEBOUNCE")

	setEnvString(&cfg.Observability.MetricsAddress, "OVERRIDES_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "OVERRIDES_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "OVERRIDES_OBSERVABILITY_OTLP_INSECURE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Info("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
