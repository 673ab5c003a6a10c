// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears VIBE_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VIBE_CONFIG_DIR", dir)
	for _, key := range []string{"VIBE_SERVER_URL", "VIBE_USERNAME", "VIBE_STREAM_DEADLINE", "VIBE_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:5000", cfg.Server.URL)
	assert.Equal(t, 30*time.Minute, cfg.Server.StreamDeadline())
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout())
	assert.Equal(t, "Completed re-ingestion", cfg.Ingest.CompletionMarker)
	assert.Equal(t, 10, cfg.Ingest.DefaultLimit)
}

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	content := `
[server]
url = "http://docs.internal:8080/"
username = "alice"
stream_deadline_secs = 0

[ingest]
default_limit = 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://docs.internal:8080", cfg.Server.URL)
	assert.Equal(t, "alice", cfg.Server.Username)
	assert.Equal(t, time.Duration(0), cfg.Server.StreamDeadline(), "explicit zero disables the deadline")
	assert.Equal(t, 50, cfg.Ingest.DefaultLimit)
	assert.Equal(t, 30, cfg.Server.RequestTimeoutSecs, "unset fields keep defaults")

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	content := "server:\n  username: bob\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Server.Username)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_BrokenTOMLFallsBack(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[server\nurl="), 0600))

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Server.URL, cfg.Server.URL)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[ingest]\ndefault_limit = 25\n"), 0600))

	_, err := Load()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "ingest.default_limit", verrs[0].Field)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("VIBE_SERVER_URL", "https://rag.example.com")
	t.Setenv("VIBE_USERNAME", "carol")
	t.Setenv("VIBE_STREAM_DEADLINE", "45m")
	t.Setenv("VIBE_LOG_LEVEL", "INFO")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://rag.example.com", cfg.Server.URL)
	assert.Equal(t, "carol", cfg.Server.Username)
	assert.Equal(t, 45*time.Minute, cfg.Server.StreamDeadline())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("VIBE_USERNAME")
	t.Cleanup(func() { os.Unsetenv("VIBE_USERNAME") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VIBE_USERNAME=dave\n"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dave", cfg.Server.Username)
}

func TestParseSeconds(t *testing.T) {
	tests := map[string]int{"90": 90, "90s": 90, "2m": 120, "0": 0}
	for in, want := range tests {
		got, err := parseSeconds(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseSeconds("soon")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.Server.URL = "localhost:5000" }, "server.url"},
		{"ftp url", func(c *Config) { c.Server.URL = "ftp://host" }, "server.url"},
		{"username spaces", func(c *Config) { c.Server.Username = "a b" }, "server.username"},
		{"timeout", func(c *Config) { c.Server.RequestTimeoutSecs = 0 }, "server.request_timeout_secs"},
		{"negative deadline", func(c *Config) { c.Server.StreamDeadlineSecs = -1 }, "server.stream_deadline_secs"},
		{"rps", func(c *Config) { c.Server.RequestsPerSecond = 0 }, "server.requests_per_second"},
		{"burst", func(c *Config) { c.Server.Burst = 0 }, "server.burst"},
		{"marker", func(c *Config) { c.Ingest.CompletionMarker = " " }, "ingest.completion_marker"},
		{"history", func(c *Config) { c.Ingest.HistorySize = -1 }, "ingest.history_size"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("server.url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", v)

	require.NoError(t, cfg.Set("ingest.default_limit", "20"))
	assert.Equal(t, 20, cfg.Ingest.DefaultLimit)

	require.NoError(t, cfg.Set("server.requests-per-second", "2.5"))
	assert.Equal(t, 2.5, cfg.Server.RequestsPerSecond)

	require.NoError(t, cfg.Set("storage.settings_db", "/tmp/s.db"))
	assert.Equal(t, "/tmp/s.db", cfg.Storage.SettingsDB)

	assert.Error(t, cfg.Set("ingest.default_limit", "many"))
	assert.Error(t, cfg.Set("server", "x"))
	assert.Error(t, cfg.Set("server.nope", "x"))
	assert.Error(t, cfg.Set("version.deep", "x"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	assert.Contains(t, keys, "server.url")
	assert.Contains(t, keys, "server.stream_deadline_secs")
	assert.Contains(t, keys, "ingest.completion_marker")
	assert.Contains(t, keys, "log.format")

	cfg := Default()
	for _, key := range keys {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	cfg.Server.Username = "erin"
	cfg.Server.StreamDeadlineSecs = 0
	cfg.Ingest.DefaultLimit = 100
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSettingsDBPath(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	path, err := cfg.SettingsDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "settings.db"), path)

	cfg.Storage.SettingsDB = "/var/lib/vibe.db"
	path, err = cfg.SettingsDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/vibe.db", path)
}
