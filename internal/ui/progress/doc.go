// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress renders the live state of one ingestion task.
//
// Model is a bubbletea program with a spinner, a scrolling log viewport and
// a status footer; Run drives it. Plain prints the same information line by
// line for pipes and non-interactive terminals.
//
// # Usage
//
//	updates, unsubscribe := ctrl.Updates(64)
//	defer unsubscribe()
//	task, err := ctrl.SubmitReingest(ctx, id, ingest)
//	if err != nil {
//	    return err
//	}
//	snap, err := progress.Run(ctx, task, updates, func() { ctrl.Cancel(task.ID) })
package progress
