// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - "vibe config": view and modify the configuration file.
//
// Subcommands:
//   show (default)      Display the effective configuration
//   show --toml         Print it as a TOML document
//   get <key>           Print one value
//   set <key> <value>   Set a value and save the TOML file
//   reset               Write the default configuration
//   path                Show configuration file path
//
// Keys use dot notation: server.url, server.username,
// server.stream_deadline_secs, ingest.default_limit, log.level, ...
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bears-chj7/studying-vibe/internal/config"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
)

var (
	configKeyStyle   = lipgloss.NewStyle().Foreground(styles.TextMuted).Width(30)
	configValueStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	return runConfig(args, os.Stdout)
}

func runConfig(args Args, out io.Writer) error {
	p := NewArgParser(args.Raw, "toml")

	switch p.Subcommand() {
	case "", "show":
		return configShow(args, out, p.BoolFlag("toml"))
	case "get":
		key, err := requirePositional(p, 1, "KEY")
		if err != nil {
			return &UsageError{Message: err.Error() + " (usage: vibe config get KEY)"}
		}
		return configGet(args, out, key)
	case "set":
		key, err := requirePositional(p, 1, "KEY")
		if err != nil || p.PositionalCount() < 3 {
			return usageErrorf("usage: vibe config set KEY VALUE")
		}
		return configSet(args, out, key, strings.Join(p.PositionalFrom(2), " "))
	case "reset":
		return configReset(args, out)
	case "path":
		return configPathCmd(args, out)
	default:
		return unknownSubcommand("config", p.Subcommand(), "show", "get", "set", "reset", "path")
	}
}

// configFile returns the file "config set" and "config reset" write to.
func configFile(args Args) (string, error) {
	if args.ConfigPath == "" {
		return config.ConfigPathTOML()
	}
	switch strings.ToLower(filepath.Ext(args.ConfigPath)) {
	case ".yaml", ".yml":
		return "", fmt.Errorf("%s: only TOML config files can be written", args.ConfigPath)
	}
	return args.ConfigPath, nil
}

func configShow(args Args, out io.Writer, asTOML bool) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config show", cfg).Write(out)
	}
	if asTOML {
		text, err := cfg.TOML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	}

	section := ""
	for _, key := range config.GetAllKeys() {
		if head, _, ok := strings.Cut(key, "."); ok && head != section {
			section = head
			fmt.Fprintln(out, styles.Header.Render("["+section+"]"))
		}
		value, _ := cfg.Get(key)
		fmt.Fprintf(out, "  %s%s\n", configKeyStyle.Render(key), configValueStyle.Render(fmt.Sprint(value)))
	}

	if path, err := configFile(args); err == nil {
		fmt.Fprintf(out, "\nConfig file: %s\n", styles.Muted.Render(path))
	}
	return nil
}

func configGet(args Args, out io.Writer, key string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]any{"key": key, "value": value}).Write(out)
	}
	fmt.Fprintln(out, value)
	return nil
}

func configSet(args Args, out io.Writer, key, value string) error {
	path, err := configFile(args)
	if err != nil {
		return err
	}

	current, err := loadForWrite(path)
	if err != nil {
		return err
	}
	cfg := current.Clone()
	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	changed := *cfg != *current
	if changed {
		if err := config.SaveTOML(cfg, path); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]any{"key": key, "value": value, "path": path, "changed": changed}).Write(out)
	}
	if !changed {
		fmt.Fprintln(out, styles.RenderWarning(fmt.Sprintf("%s is already %s (nothing written)", key, value)))
		return nil
	}
	fmt.Fprintln(out, styles.RenderSuccess(fmt.Sprintf("Set %s = %s", key, value)))
	return nil
}

// loadForWrite reads only the file at path, without environment overrides,
// so values from VIBE_* variables are not persisted by accident.
func loadForWrite(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

func configReset(args Args, out io.Writer) error {
	path, err := configFile(args)
	if err != nil {
		return err
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if args.JSON {
		return NewJSONResponse("config reset", map[string]string{"path": path}).Write(out)
	}
	fmt.Fprintln(out, styles.RenderSuccess("Configuration reset to defaults"))
	fmt.Fprintf(out, "Config file: %s\n", styles.Muted.Render(path))
	return nil
}

func configPathCmd(args Args, out io.Writer) error {
	path, err := configFile(args)
	if err != nil {
		path = args.ConfigPath
	}
	if args.JSON {
		_, statErr := os.Stat(path)
		return NewJSONResponse("config path", map[string]any{"path": path, "exists": statErr == nil}).Write(out)
	}
	fmt.Fprintln(out, path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, styles.Muted.Render("(file does not exist yet; 'vibe config set' creates it)"))
	}
	return nil
}
