// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the vibe command line.
//
// # Key Types
//
//   - Command: the top-level command selected by Parse
//   - Args: global flags plus the raw arguments of the command
//   - Env: the wired component graph (backend client, document list,
//     settings store, task controller) a handler works against
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdDocs:
//	    err = cli.HandleDocs(args)
//	case cli.CmdSettings:
//	    err = cli.HandleSettings(args)
//	// ... other commands
//	}
//	cli.HandleErrorAndExit(err, args.JSON)
//
// # Commands Overview
//
//   - docs: list, upload, create, reingest, reingest-all, describe, delete, chunks
//   - ask: one question to the selected chat model, rendered as markdown
//   - settings: saved chunking parameters and chat model
//   - config: configuration file management
//
// All commands support --json. Streamed ingestion shows a live bubbletea
// view on a terminal and plain lines otherwise (or with --plain).
package cli
