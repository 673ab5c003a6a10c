// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bears-chj7/studying-vibe/internal/config"
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

func configArgs(raw ...string) Args {
	return Args{Name: "config", Raw: raw}
}

func TestConfigSetThenGet(t *testing.T) {
	dir := isolate(t)
	var out bytes.Buffer

	require.NoError(t, runConfig(configArgs("set", "server.username", "alice"), &out))
	assert.Contains(t, out.String(), "[OK] Set server.username = alice")

	saved, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(saved), `username = "alice"`)

	out.Reset()
	require.NoError(t, runConfig(configArgs("get", "server.username"), &out))
	assert.Equal(t, "alice\n", out.String())
}

func TestConfigSet_DoesNotPersistEnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("VIBE_SERVER_URL", "http://from-env:9000")
	var out bytes.Buffer

	require.NoError(t, runConfig(configArgs("set", "log.level", "debug"), &out))

	saved, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(saved), "from-env")
	assert.Contains(t, string(saved), `level = "debug"`)
}

func TestConfigSet_Rejections(t *testing.T) {
	isolate(t)

	tests := []struct {
		name     string
		args     Args
		wantExit int
	}{
		{"missing value", configArgs("set", "server.url"), ExitUsageError},
		{"unknown key", configArgs("set", "server.nope", "x"), ExitUsageError},
		{"invalid url", configArgs("set", "server.url", "ftp://example"), ExitConfigError},
		{"yaml target", Args{ConfigPath: "vibe.yaml", Raw: []string{"set", "log.level", "info"}}, ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runConfig(tt.args, &out)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err), "error: %v", err)
		})
	}
}

func TestConfigShow(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	require.NoError(t, runConfig(configArgs(), &out))

	text := out.String()
	assert.Contains(t, text, "[server]")
	assert.Contains(t, text, "server.url")
	assert.Contains(t, text, "http://localhost:5000")
	assert.Contains(t, text, "Config file:")
}

func TestConfigShow_TOML(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	require.NoError(t, runConfig(configArgs("set", "server.username", "carol"), &out))

	out.Reset()
	require.NoError(t, runConfig(Args{Server: "https://docs.example.com", Raw: []string{"show", "--toml"}}, &out))

	var cfg config.Config
	_, err := toml.Decode(out.String(), &cfg)
	require.NoError(t, err, "output:\n%s", out.String())
	assert.Equal(t, "carol", cfg.Server.Username)
	assert.Equal(t, "https://docs.example.com", cfg.Server.URL)
	assert.NotContains(t, out.String(), "Config file:")
}

func TestConfigSet_UnchangedValueWritesNothing(t *testing.T) {
	dir := isolate(t)
	var out bytes.Buffer

	require.NoError(t, runConfig(configArgs("set", "log.level", "warn"), &out))
	assert.Contains(t, out.String(), "[!] log.level is already warn")
	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	out.Reset()
	require.NoError(t, runConfig(Args{JSON: true, Raw: []string{"set", "log.level", "error"}}, &out))
	var data map[string]any
	decodeEnvelope(t, &out, &data)
	assert.Equal(t, true, data["changed"])

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestConfigShow_JSONAppliesFlags(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	args := Args{JSON: true, User: "bob", Server: "https://docs.example.com", Raw: []string{"show"}}
	require.NoError(t, runConfig(args, &out))

	var cfg config.Config
	resp := decodeEnvelope(t, &out, &cfg)
	assert.True(t, resp.Success)
	assert.Equal(t, "bob", cfg.Server.Username)
	assert.Equal(t, "https://docs.example.com", cfg.Server.URL)
}

func TestConfigResetAndPath(t *testing.T) {
	dir := isolate(t)
	var out bytes.Buffer

	require.NoError(t, runConfig(configArgs("path"), &out))
	assert.True(t, strings.HasPrefix(out.String(), filepath.Join(dir, "config.toml")+"\n"))
	assert.Contains(t, out.String(), "does not exist yet")

	require.NoError(t, runConfig(configArgs("set", "ingest.default_limit", "50"), &out))
	require.NoError(t, runConfig(configArgs("reset"), &out))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Default().Ingest.DefaultLimit, cfg.Ingest.DefaultLimit)

	out.Reset()
	require.NoError(t, runConfig(Args{JSON: true, Raw: []string{"path"}}, &out))
	var data map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &struct {
		Data *map[string]any `json:"data"`
	}{&data}))
	assert.Equal(t, true, data["exists"])
}

func TestConfig_UnknownSubcommand(t *testing.T) {
	isolate(t)
	err := runConfig(configArgs("sho"), &bytes.Buffer{})
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, err.Error(), "did you mean 'show'?")
}
