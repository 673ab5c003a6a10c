// vibe - command line client for a document-assistant backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/bears-chj7/studying-vibe/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	var err error
	switch cmd {
	case cli.CmdDocs:
		err = cli.HandleDocs(args)
	case cli.CmdAsk:
		err = cli.HandleAsk(args)
	case cli.CmdSettings:
		err = cli.HandleSettings(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		err = cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		err = cli.UnknownCommandError(args.Name)
	}

	cli.HandleErrorAndExit(err, args.JSON)
}
