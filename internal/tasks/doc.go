// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks runs streamed ingestion operations and tracks their progress.
//
// Each submitted operation becomes a Task that moves forward through
// Pending, Streaming and then Succeeded or Failed. The Controller consumes the
// backend's progress stream in a goroutine per task, appends info lines to the
// task log, and settles the task on the first terminal event.
//
// # Key Types
//
//   - Task: one upload or re-ingest run with its log and terminal message
//   - Snapshot: immutable copy of a task, delivered to observers
//   - Controller: submits, cancels and retries tasks
//   - Tracker: submitted tasks with bounded history
//   - Hub: fans snapshots out to observers
//
// # Usage
//
//	ctrl := tasks.NewController(client, view, opts)
//	task, err := ctrl.SubmitReingestAll(ctx, store.Load())
//	if err != nil {
//	    return err // invalid request, nothing was sent
//	}
//	snap, _ := task.Wait(ctx)
//	fmt.Println(snap.State, snap.TerminalMessage)
//
// Re-ingest runs only succeed on a success event containing the completion
// marker; other success events are progress. Upload runs succeed on any
// success event.
package tasks
