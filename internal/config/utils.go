package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// resolveEnvString resolves environment variable if value is in format "os.environ/VAR_NAME"
func resolveEnvString(value string) string {
	const prefix = "os.environ/"
	if strings.HasPrefix(value, prefix) {
		envVar := strings.TrimPrefix(value, prefix)
		if envValue := os.Getenv(envVar); envValue != "" {
			return envValue
		}
		slog.Warn("environment variable not set, returning empty string",
			"env_var", envVar,
			"pattern", value,
		)
		return ""
	}
	return value
}

// parseFunc is a function type that parses a string value into the desired type
type parseFunc[T any] func(string) (T, error)

// parseField resolves env variable and parses value with proper error context
func parseField[T any](tempValue string, defaultValue T, parser parseFunc[T], fieldPath string) (T, error) {
	if tempValue == "" {
		return defaultValue, nil
	}

	resolved := resolveEnvString(tempValue)
	if resolved == "" {
		return defaultValue, nil
	}
	parsed, err := parser(resolved)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", fieldPath, err)
	}
	return parsed, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PrintConfig outputs the configuration in a structured, readable format to the logger
func PrintConfig(logger *slog.Logger, cfg *Config) {
	logger.Debug("=== Configuration Loaded ===")

	logger.Debug("logging",
		"level", cfg.LoggingLevel,
		"format", cfg.LogFormat,
	)

	logger.Debug("fetch",
		"timeout", cfg.Fetch.Timeout.String(),
		"max_download_mb", cfg.Fetch.MaxDownloadMB,
		"download_chunk_size", cfg.Fetch.DownloadChunkSize,
		"sniff_chunk_size", cfg.Fetch.SniffChunkSize,
		"max_redirects", cfg.Fetch.MaxRedirects,
		"user_agent", cfg.Fetch.UserAgent,
	)

	if cfg.Cache.Enabled {
		logger.Debug("cache (ENABLED)",
			"size", cfg.Cache.Size,
			"ttl", cfg.Cache.TTL.String(),
		)
	} else {
		logger.Debug("cache", "status", "DISABLED")
	}

	logger.Debug("segment",
		"remote", cfg.Segment.Remote,
		"base_dir", cfg.Segment.BaseDir,
	)

	logger.Debug("cost",
		"version", cfg.Cost.Version,
		"detail", cfg.Cost.Detail,
		"model", cfg.Cost.Model,
	)

	logger.Debug("monitoring",
		"prometheus_enabled", cfg.Monitoring.PrometheusEnabled,
		"metrics_file", cfg.Monitoring.MetricsFile,
	)

	logger.Debug("=== Configuration Ready ===")
}
