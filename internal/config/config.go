package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mixaill76/auto_ai_vision/internal/tokencost"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LoggingLevel string           `yaml:"logging_level"`
	LogFormat    string           `yaml:"log_format"`
	Fetch        FetchConfig      `yaml:"fetch"`
	Cache        CacheConfig      `yaml:"cache"`
	Segment      SegmentConfig    `yaml:"segment"`
	Cost         CostConfig       `yaml:"cost"`
	Monitoring   MonitoringConfig `yaml:"monitoring"`
}

type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxDownloadMB     int           `yaml:"max_download_mb"`
	DownloadChunkSize int           `yaml:"download_chunk_size"`
	SniffChunkSize    int           `yaml:"sniff_chunk_size"`
	MaxRedirects      int           `yaml:"max_redirects"`
	UserAgent         string        `yaml:"user_agent"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type SegmentConfig struct {
	// Remote keeps URLs as metadata-only references instead of downloading them.
	Remote  bool   `yaml:"remote"`
	BaseDir string `yaml:"base_dir"`
}

type CostConfig struct {
	Version string `yaml:"version"`
	Detail  string `yaml:"detail"`
	Model   string `yaml:"model"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	// MetricsFile receives the collected metrics in text format when the command exits.
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns a complete configuration for running without a config file.
func Default() *Config {
	return &Config{
		LoggingLevel: "info",
		LogFormat:    "text",
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			MaxDownloadMB:     20,
			DownloadChunkSize: 4096,
			SniffChunkSize:    256,
			MaxRedirects:      10,
			UserAgent:         "visionctl",
		},
		Cache: CacheConfig{
			Enabled: false,
			Size:    1024,
			TTL:     10 * time.Minute,
		},
		Segment: SegmentConfig{
			Remote: true,
		},
		Cost: CostConfig{
			Version: "b",
			Detail:  "auto",
		},
	}
}

// UnmarshalYAML implements custom unmarshaling for FetchConfig.
// Every field accepts an os.environ/VAR reference.
func (f *FetchConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Timeout           string `yaml:"timeout"`
		MaxDownloadMB     string `yaml:"max_download_mb"`
		DownloadChunkSize string `yaml:"download_chunk_size"`
		SniffChunkSize    string `yaml:"sniff_chunk_size"`
		MaxRedirects      string `yaml:"max_redirects"`
		UserAgent         string `yaml:"user_agent"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	defaults := Default().Fetch
	var err error
	if f.Timeout, err = parseField(temp.Timeout, defaults.Timeout, time.ParseDuration, "fetch.timeout"); err != nil {
		return err
	}
	if f.MaxDownloadMB, err = parseField(temp.MaxDownloadMB, defaults.MaxDownloadMB, strconv.Atoi, "fetch.max_download_mb"); err != nil {
		return err
	}
	if f.DownloadChunkSize, err = parseField(temp.DownloadChunkSize, defaults.DownloadChunkSize, strconv.Atoi, "fetch.download_chunk_size"); err != nil {
		return err
	}
	if f.SniffChunkSize, err = parseField(temp.SniffChunkSize, defaults.SniffChunkSize, strconv.Atoi, "fetch.sniff_chunk_size"); err != nil {
		return err
	}
	if f.MaxRedirects, err = parseField(temp.MaxRedirects, defaults.MaxRedirects, strconv.Atoi, "fetch.max_redirects"); err != nil {
		return err
	}

	f.UserAgent = defaults.UserAgent
	if temp.UserAgent != "" {
		f.UserAgent = resolveEnvString(temp.UserAgent)
	}
	return nil
}

// UnmarshalYAML implements custom unmarshaling for CacheConfig
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Enabled string `yaml:"enabled"`
		Size    string `yaml:"size"`
		TTL     string `yaml:"ttl"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	defaults := Default().Cache
	var err error
	if c.Enabled, err = parseField(temp.Enabled, defaults.Enabled, strconv.ParseBool, "cache.enabled"); err != nil {
		return err
	}
	if c.Size, err = parseField(temp.Size, defaults.Size, strconv.Atoi, "cache.size"); err != nil {
		return err
	}
	if c.TTL, err = parseField(temp.TTL, defaults.TTL, time.ParseDuration, "cache.ttl"); err != nil {
		return err
	}
	return nil
}

// UnmarshalYAML implements custom unmarshaling for SegmentConfig; remote defaults to true.
func (s *SegmentConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Remote  string `yaml:"remote"`
		BaseDir string `yaml:"base_dir"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	var err error
	if s.Remote, err = parseField(temp.Remote, true, strconv.ParseBool, "segment.remote"); err != nil {
		return err
	}
	s.BaseDir = resolveEnvString(temp.BaseDir)
	return nil
}

// Load reads the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Normalize cleans up configuration values
func (c *Config) Normalize() {
	c.LoggingLevel = normalizeName(c.LoggingLevel)
	c.LogFormat = normalizeName(c.LogFormat)
	c.Cost.Version = normalizeName(resolveEnvString(c.Cost.Version))
	c.Cost.Detail = normalizeName(resolveEnvString(c.Cost.Detail))
	c.Cost.Model = resolveEnvString(c.Cost.Model)
	c.Monitoring.MetricsFile = resolveEnvString(c.Monitoring.MetricsFile)

	if c.LoggingLevel == "" {
		c.LoggingLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Cost.Version == "" {
		c.Cost.Version = "b"
	}
	if c.Cost.Detail == "" {
		c.Cost.Detail = "auto"
	}
}

func (c *Config) Validate() error {
	validLevels := map[string]bool{"info": true, "debug": true, "error": true}
	if !validLevels[c.LoggingLevel] {
		return fmt.Errorf("invalid logging_level: %s (must be info, debug, or error)", c.LoggingLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", c.LogFormat)
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("invalid fetch.timeout: %v", c.Fetch.Timeout)
	}
	if c.Fetch.MaxDownloadMB <= 0 {
		return fmt.Errorf("invalid fetch.max_download_mb: %d", c.Fetch.MaxDownloadMB)
	}
	if c.Fetch.DownloadChunkSize <= 0 {
		return fmt.Errorf("invalid fetch.download_chunk_size: %d", c.Fetch.DownloadChunkSize)
	}
	if c.Fetch.SniffChunkSize <= 0 {
		return fmt.Errorf("invalid fetch.sniff_chunk_size: %d", c.Fetch.SniffChunkSize)
	}

	if c.Cache.Enabled {
		if c.Cache.Size <= 0 {
			return fmt.Errorf("invalid cache.size: %d", c.Cache.Size)
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache.ttl: %v", c.Cache.TTL)
		}
	}

	if _, _, err := c.Cost.Parse(); err != nil {
		return err
	}

	return nil
}

// MaxDownloadBytes returns the download limit in bytes.
func (f FetchConfig) MaxDownloadBytes() int64 {
	return int64(f.MaxDownloadMB) * 1024 * 1024
}

// Parse converts the configured cost version and detail.
func (c CostConfig) Parse() (tokencost.Version, tokencost.Detail, error) {
	version, err := tokencost.ParseVersion(c.Version)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cost.version: %w", err)
	}
	detail, err := tokencost.ParseDetail(c.Detail)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cost.detail: %w", err)
	}
	return version, detail, nil
}
