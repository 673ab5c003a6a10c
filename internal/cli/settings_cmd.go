// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// settings_cmd.go - "vibe settings": saved ingestion settings and chat model.
//
// Subcommands:
//   show (default)              Display chunk size, overlap and model
//   set chunk-size N            Save a new chunk size
//   set chunk-overlap N         Save a new chunk overlap
//   set model NAME              Select the chat model (ollama, gemini)
//   reset                       Restore the defaults
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bears-chj7/studying-vibe/internal/settings"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
)

// HandleSettings handles the "settings" command.
func HandleSettings(args Args) error {
	env, err := NewEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	return runSettings(env, args.Raw)
}

func runSettings(env *Env, raw []string) error {
	p := NewArgParser(raw)

	switch p.Subcommand() {
	case "", "show":
		return settingsShow(env)
	case "set":
		if p.PositionalCount() < 3 {
			return usageErrorf("usage: vibe settings set chunk-size|chunk-overlap|model VALUE")
		}
		return settingsSet(env, p.Positional(1), p.Positional(2))
	case "reset":
		if err := env.Settings.Save(settings.Defaults()); err != nil {
			return err
		}
		if err := env.Settings.SetModel(settings.DefaultModel); err != nil {
			return err
		}
		return settingsShow(env)
	default:
		return unknownSubcommand("settings", p.Subcommand(), "show", "set", "reset")
	}
}

func settingsShow(env *Env) error {
	s := env.Settings.Load()
	model := env.Settings.Model()

	if env.JSON {
		return NewJSONResponse("settings show", newSettingsData(s, model)).Write(env.Out)
	}
	fmt.Fprintf(env.Out, "  %s%d\n", configKeyStyle.Render("chunk-size"), s.ChunkSize)
	fmt.Fprintf(env.Out, "  %s%d\n", configKeyStyle.Render("chunk-overlap"), s.ChunkOverlap)
	fmt.Fprintf(env.Out, "  %s%s\n", configKeyStyle.Render("model"), model)
	return nil
}

func settingsSet(env *Env, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))

	if key == "model" {
		if err := env.Settings.SetModel(value); err != nil {
			return err
		}
		return settingsConfirm(env, "model", strings.ToLower(strings.TrimSpace(value)))
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return usageErrorf("%s must be an integer, got %q", key, value)
	}

	s := env.Settings.Load()
	switch key {
	case "chunk-size", "chunk_size", "chunksize":
		s.ChunkSize = n
	case "chunk-overlap", "chunk_overlap", "chunkoverlap":
		s.ChunkOverlap = n
	default:
		return usageErrorf("unknown setting %q (want chunk-size, chunk-overlap or model)", key)
	}

	if err := env.Settings.Save(s); err != nil {
		return err
	}
	return settingsConfirm(env, key, strconv.Itoa(n))
}

func settingsConfirm(env *Env, key, value string) error {
	if env.JSON {
		return NewJSONResponse("settings set", newSettingsData(env.Settings.Load(), env.Settings.Model())).Write(env.Out)
	}
	fmt.Fprintln(env.Out, styles.RenderSuccess(fmt.Sprintf("Saved %s = %s", key, value)))
	return nil
}
