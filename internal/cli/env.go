// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Wiring of config, backend client, registry, settings and tasks.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/config"
	"github.com/bears-chj7/studying-vibe/internal/logging"
	"github.com/bears-chj7/studying-vibe/internal/registry"
	"github.com/bears-chj7/studying-vibe/internal/settings"
	"github.com/bears-chj7/studying-vibe/internal/tasks"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
)

// The document list reloads itself after every ingestion task.
var _ tasks.Refresher = (*registry.View)(nil)

// Env is everything a command handler needs.
type Env struct {
	Config    *config.Config
	Client    *backend.Client
	Documents *registry.View
	Settings  *settings.Store
	Tasks     *tasks.Controller

	Out io.Writer
	Err io.Writer

	// JSON selects machine-readable output
	JSON bool

	// Interactive enables the live progress view
	Interactive bool

	// Width is the terminal width used for tables
	Width int
}

// NewEnv loads configuration, sets up logging and opens the settings store.
func NewEnv(args Args) (*Env, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return nil, err
	}
	if args.Verbose {
		logging.Verbose()
	}
	applyColorProfile()

	kv, err := openKV(cfg, args.Ephemeral)
	if err != nil {
		return nil, err
	}

	env := newEnv(cfg, kv, os.Stdout, os.Stderr)
	env.JSON = args.JSON
	env.Interactive = Interactive() && !args.JSON
	env.Width = GetTerminalWidth()
	return env, nil
}

// loadConfig reads the config file and applies --user and --server.
func loadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, styles.RenderWarning(fmt.Sprintf("%v (using defaults)", err)))
		}
	}

	if args.User != "" {
		cfg.Server.Username = args.User
	}
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openKV(cfg *config.Config, ephemeral bool) (settings.KV, error) {
	if ephemeral {
		return settings.NewMemoryKV(), nil
	}
	path, err := cfg.SettingsDBPath()
	if err != nil {
		return nil, err
	}
	kv, err := settings.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	return kv, nil
}

// newEnv builds the component graph over an already-open KV.
func newEnv(cfg *config.Config, kv settings.KV, out, errOut io.Writer) *Env {
	client := backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:           cfg.Server.URL,
		Timeout:           cfg.Server.RequestTimeout(),
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
	})

	docs := registry.NewView(client, cfg.Server.Username, cfg.Ingest.DefaultLimit)

	ctrl := tasks.NewController(client, docs, tasks.Options{
		Username:         cfg.Server.Username,
		CompletionMarker: cfg.Ingest.CompletionMarker,
		StreamDeadline:   cfg.Server.StreamDeadline(),
		HistorySize:      cfg.Ingest.HistorySize,
	})

	return &Env{
		Config:    cfg,
		Client:    client,
		Documents: docs,
		Settings:  settings.NewStore(kv),
		Tasks:     ctrl,
		Out:       out,
		Err:       errOut,
	}
}

// Close cancels running tasks, waits for them and closes the settings store.
func (e *Env) Close() error {
	e.Tasks.CancelAll()
	e.Tasks.Wait()
	log.Debug().Str("tasks", e.Tasks.Summary()).Msg("closing")
	if err := e.Settings.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close settings store")
		return err
	}
	return nil
}

// requireUser fails early with a helpful message when no username is configured.
func (e *Env) requireUser() error {
	if e.Config.Server.Username == "" {
		return errors.New("no username configured: pass --user NAME, set VIBE_USERNAME, or run 'vibe config set server.username NAME'")
	}
	return nil
}
