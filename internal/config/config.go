// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/bears-chj7/studying-vibe/internal/registry"
	"github.com/bears-chj7/studying-vibe/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete vibe configuration.
type Config struct {
	Version string `toml:"version" yaml:"version" json:"version"`

	// Backend connection
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`

	// Ingestion task behavior
	Ingest IngestConfig `toml:"ingest" yaml:"ingest" json:"ingest"`

	// Local persistence
	Storage StorageConfig `toml:"storage" yaml:"storage" json:"storage"`

	// Logging
	Log LogConfig `toml:"log" yaml:"log" json:"log"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// URL is the backend base URL
	URL string `toml:"url" yaml:"url" json:"url"`

	// Username identifies the caller on every request
	Username string `toml:"username" yaml:"username" json:"username"`

	// RequestTimeoutSecs bounds non-streaming requests
	RequestTimeoutSecs int `toml:"request_timeout_secs" yaml:"request_timeout_secs" json:"request_timeout_secs"`

	// StreamDeadlineSecs bounds one ingestion task (0 = no deadline)
	StreamDeadlineSecs int `toml:"stream_deadline_secs" yaml:"stream_deadline_secs" json:"stream_deadline_secs"`

	// RequestsPerSecond and Burst configure the client-side rate limiter
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `toml:"burst" yaml:"burst" json:"burst"`
}

// RequestTimeout returns RequestTimeoutSecs as a duration.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// StreamDeadline returns StreamDeadlineSecs as a duration. Zero disables the deadline.
func (s ServerConfig) StreamDeadline() time.Duration {
	return time.Duration(s.StreamDeadlineSecs) * time.Second
}

// IngestConfig contains ingestion task settings.
type IngestConfig struct {
	// CompletionMarker settles re-ingest tasks when found in a success message
	CompletionMarker string `toml:"completion_marker" yaml:"completion_marker" json:"completion_marker"`

	// DefaultLimit is the initial document page size (10, 20, 50 or 100)
	DefaultLimit int `toml:"default_limit" yaml:"default_limit" json:"default_limit"`

	// HistorySize is the number of settled tasks kept in memory
	HistorySize int `toml:"history_size" yaml:"history_size" json:"history_size"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	// SettingsDB is the SQLite file for ingestion settings (empty = config dir)
	SettingsDB string `toml:"settings_db" yaml:"settings_db" json:"settings_db"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error
	Level string `toml:"level" yaml:"level" json:"level"`

	// Format is "console" or "json"
	Format string `toml:"format" yaml:"format" json:"format"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			URL:                "http://localhost:5000",
			RequestTimeoutSecs: 30,
			StreamDeadlineSecs: 30 * 60,
			RequestsPerSecond:  10,
			Burst:              20,
		},
		Ingest: IngestConfig{
			CompletionMarker: "Completed re-ingestion",
			DefaultLimit:     registry.DefaultLimit,
			HistorySize:      20,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory. VIBE_CONFIG_DIR overrides it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("VIBE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".studying-vibe"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return configPath("config.toml")
}

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) {
	return configPath("config.yaml")
}

// SettingsDBPath returns the settings database path, defaulting into the config dir.
func (c *Config) SettingsDBPath() (string, error) {
	if c.Storage.SettingsDB != "" {
		return c.Storage.SettingsDB, nil
	}
	return configPath("settings.db")
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then YAML, and falls back to defaults.
// .env files and environment overrides are applied last.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := Default()
	var loadErr error

	for _, candidate := range []struct {
		path func() (string, error)
		load func(*Config, string) error
	}{
		{ConfigPathTOML, LoadTOML},
		{ConfigPathYAML, LoadYAML},
	} {
		path, err := candidate.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if err := candidate.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load config %s: %w", path, err)
			cfg = Default()
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	// Defaults, with any load error for informational purposes
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := LoadYAML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load YAML config from %s: %w", path, err)
		}
	default:
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// finish applies env overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg.
func LoadYAML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// loadDotEnv reads .env from the working directory and the config dir.
// Variables already set in the environment win.
func loadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", path, err)
		}
	}
}

// fillDefaults fills in missing values with defaults.
// StreamDeadlineSecs is left alone: zero is a valid setting.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Server.URL == "" {
		cfg.Server.URL = defaults.Server.URL
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = defaults.Server.RequestTimeoutSecs
	}
	if cfg.Server.RequestsPerSecond == 0 {
		cfg.Server.RequestsPerSecond = defaults.Server.RequestsPerSecond
	}
	if cfg.Server.Burst == 0 {
		cfg.Server.Burst = defaults.Server.Burst
	}

	if cfg.Ingest.CompletionMarker == "" {
		cfg.Ingest.CompletionMarker = defaults.Ingest.CompletionMarker
	}
	if cfg.Ingest.DefaultLimit == 0 {
		cfg.Ingest.DefaultLimit = defaults.Ingest.DefaultLimit
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# vibe configuration file")
	fmt.Fprintln(&buf, "# Generated by vibe - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// TOML renders the configuration as TOML.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.String(), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"server.url", fmt.Sprintf("must be an http(s) URL, got %q", c.Server.URL)})
	}
	if strings.ContainsAny(c.Server.Username, " \t\r\n") {
		errs = append(errs, ValidationError{"server.username", "must not contain whitespace"})
	}
	if c.Server.RequestTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{"server.request_timeout_secs", "must be positive"})
	}
	if c.Server.StreamDeadlineSecs < 0 {
		errs = append(errs, ValidationError{"server.stream_deadline_secs", "must be 0 (disabled) or positive"})
	}
	if c.Server.RequestsPerSecond <= 0 {
		errs = append(errs, ValidationError{"server.requests_per_second", "must be positive"})
	}
	if c.Server.Burst <= 0 {
		errs = append(errs, ValidationError{"server.burst", "must be positive"})
	}

	if strings.TrimSpace(c.Ingest.CompletionMarker) == "" {
		errs = append(errs, ValidationError{"ingest.completion_marker", "must not be empty"})
	}
	if !registry.ValidLimit(c.Ingest.DefaultLimit) {
		errs = append(errs, ValidationError{"ingest.default_limit", fmt.Sprintf("must be one of %v", registry.Limits)})
	}
	if c.Ingest.HistorySize < 0 {
		errs = append(errs, ValidationError{"ingest.history_size", "must not be negative"})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || c.Log.Level == "" {
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("unknown level %q", c.Log.Level)})
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, ValidationError{"log.format", "must be console or json"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - VIBE_SERVER_URL: overrides server.url
//   - VIBE_USERNAME: overrides server.username
//   - VIBE_STREAM_DEADLINE: overrides server.stream_deadline_secs ("45m", "90s" or seconds)
//   - VIBE_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("VIBE_SERVER_URL"); u != "" {
		c.Server.URL = u
	}
	if user := os.Getenv("VIBE_USERNAME"); user != "" {
		c.Server.Username = user
	}
	if deadline := os.Getenv("VIBE_STREAM_DEADLINE"); deadline != "" {
		if secs, err := parseSeconds(deadline); err == nil {
			c.Server.StreamDeadlineSecs = secs
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring VIBE_STREAM_DEADLINE=%q: %v\n", deadline, err)
		}
	}
	if level := os.Getenv("VIBE_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

// parseSeconds accepts a Go duration or a plain number of seconds.
func parseSeconds(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ingest.default_limit").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("field '%s' is a section, not a value", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the dotted key down the struct tree.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation, derived from TOML tags.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone creates a copy of the configuration. Config holds only value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
