package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth for /api routes. Empty disables auth.
	APIKey string

	// Template
	TemplatePath  string
	WatchTemplate bool

	// Rendering
	EscapeHTML bool

	// Upload limits
	MaxUploadBytes int64

	// Result retention
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	StatsWindow     time.Duration

	// Logging
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// source resolves a key from the environment first, then from the optional
// YAML file named by CONFIG_FILE.
type source struct {
	file map[string]string
}

// Load reads configuration from the environment and CONFIG_FILE.
func Load() (Config, error) {
	src := source{file: map[string]string{}}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = values
	}

	cfg := Config{
		Port: src.str("PORT", "8090"),

		APIKey: src.str("TBLMAKER_API_KEY", ""),

		TemplatePath:  src.str("TEMPLATE_PATH", "template.json"),
		WatchTemplate: src.boolean("WATCH_TEMPLATE", true),

		EscapeHTML: src.boolean("ESCAPE_HTML", false),

		MaxUploadBytes: src.integer64("MAX_UPLOAD_BYTES", 5242880), // 5MB

		ResultTTL:       src.duration("RESULT_TTL", 1*time.Hour),
		CleanupInterval: src.duration("CLEANUP_INTERVAL", 5*time.Minute),
		StatsWindow:     src.duration("STATS_WINDOW", 1*time.Hour),

		LogFile:       src.str("LOG_FILE", ""),
		LogMaxSizeMB:  src.integer("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: src.integer("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: src.integer("LOG_MAX_AGE_DAYS", 10),
	}

	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 1 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.TemplatePath == "" {
		return fmt.Errorf("TEMPLATE_PATH is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.LogFile != "" && c.LogMaxSizeMB <= 0 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be positive")
	}
	return nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) str(key, fallback string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return fallback
}

func (s source) integer(key string, fallback int) int {
	if v := s.lookup(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (s source) integer64(key string, fallback int64) int64 {
	if v := s.lookup(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func (s source) boolean(key string, fallback bool) bool {
	if v := s.lookup(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func (s source) duration(key string, fallback time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
