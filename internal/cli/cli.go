// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command routing, global flags and help text for vibe.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdDocs
	CmdAsk
	CmdSettings
	CmdConfig
	CmdVersion
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config PATH
	User       string // --user NAME
	Server     string // --server URL
	Verbose    bool
	Ephemeral  bool // keep settings in memory only
	JSON       bool

	// Name is the command word as typed, for error messages
	Name string

	// Raw holds everything after the command word
	Raw []string
}

const usageText = `vibe - document ingestion client

Manage the documents of a document-assistant backend and follow
ingestion tasks as they stream progress.

Usage:
  vibe docs list [--page N] [--limit N]     List documents (limit: 10, 20, 50, 100)
  vibe docs upload FILE [--plain]           Upload a PDF and follow its ingestion
  vibe docs create FILE [--description T]   Upload a PDF without progress streaming
  vibe docs reingest ID [--plain]           Re-ingest one document
  vibe docs reingest-all [--plain]          Re-ingest every document
  vibe docs describe ID TEXT                Set a document description
  vibe docs delete ID                       Delete a document
  vibe docs chunks ID [--out FILE]          Show the stored chunks of a document

  vibe ask TEXT [--model NAME] [--raw]      Ask the chat model (question also read from stdin)

  vibe settings show                        Show ingestion settings and chat model
  vibe settings set chunk-size N
  vibe settings set chunk-overlap N
  vibe settings set model NAME              One of: ollama, gemini
  vibe settings reset                       Restore default settings

  vibe config show                          Show configuration
  vibe config get KEY                       Get one value (e.g. server.url)
  vibe config set KEY VALUE                 Set and save one value
  vibe config reset                         Write the default configuration
  vibe config path                          Show config file location

  vibe version
  vibe help

Ingest flags (upload, create, reingest, reingest-all):
  --chunk-size N       Override the saved chunk size for this run
  --chunk-overlap N    Override the saved chunk overlap for this run
  --plain              Print progress line by line instead of the live view

Global Flags:
  --config PATH        Use this config file instead of ~/.studying-vibe/config.toml
  --user NAME          Username sent with every request
  --server URL         Backend base URL
  --json               Output in JSON format
  --ephemeral          Keep settings in memory (nothing is written to disk)
  -v, --verbose        Debug logging

Environment:
  VIBE_SERVER_URL, VIBE_USERNAME, VIBE_STREAM_DEADLINE, VIBE_LOG_LEVEL,
  VIBE_CONFIG_DIR. A .env file in the working or config directory is read first.

Examples:
  vibe --user alice docs upload ./report.pdf
  vibe docs list --limit 20 --page 2
  vibe docs reingest 42 --chunk-size 800
  vibe settings set chunk-overlap 150
  vibe ask --model gemini "Summarize the onboarding guide"

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fprintUsage(os.Stdout)
}

func fprintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("vibe version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}).Write(os.Stdout)
	}
	PrintVersion()
	return nil
}

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdHelp, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	parsedArgs.Name = cmd
	parsedArgs.Raw = remaining[1:]

	switch cmd {
	case "docs", "doc", "documents", "d":
		return CmdDocs, parsedArgs
	case "ask", "chat":
		return CmdAsk, parsedArgs
	case "settings", "prefs":
		return CmdSettings, parsedArgs
	case "config", "cfg":
		return CmdConfig, parsedArgs
	case "version", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from anywhere in args and returns
// the remaining args in order.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	valueFlags := map[string]*string{
		"--config": &parsedArgs.ConfigPath,
		"--user":   &parsedArgs.User,
		"--server": &parsedArgs.Server,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-v", "--verbose":
			parsedArgs.Verbose = true
			continue
		case "--ephemeral":
			parsedArgs.Ephemeral = true
			continue
		case "--json":
			parsedArgs.JSON = true
			continue
		}

		if target, ok := valueFlags[arg]; ok {
			if i+1 < len(args) {
				i++
				*target = args[i]
			}
			continue
		}

		if name, value, ok := strings.Cut(arg, "="); ok {
			if target, known := valueFlags[name]; known {
				*target = value
				continue
			}
		}

		remaining = append(remaining, arg)
	}

	return remaining, parsedArgs
}

// UnknownCommandError builds the error for an unrecognized command word.
func UnknownCommandError(name string) error {
	if hint := SuggestCommand(name); hint != "" {
		return usageErrorf("unknown command: %s (did you mean '%s'?)", name, hint)
	}
	return usageErrorf("unknown command: %s (see 'vibe help')", name)
}

// unknownSubcommand builds the error for an unrecognized subcommand.
// candidates feed the "did you mean" hint.
func unknownSubcommand(command, sub string, candidates ...string) error {
	if sub == "" {
		return usageErrorf("%s: missing subcommand (see 'vibe help')", command)
	}
	if hint := Suggest(sub, candidates); hint != "" {
		return usageErrorf("unknown %s subcommand: %s (did you mean '%s'?)", command, sub, hint)
	}
	return usageErrorf("unknown %s subcommand: %s (see 'vibe help')", command, sub)
}
