// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

func TestNewTask(t *testing.T) {
	task := newTask(KindReingestOne, "5", nil)

	if task.ID == "" {
		t.Error("Task ID should not be empty")
	}
	if task.State() != StatePending {
		t.Errorf("Expected state pending, got %s", task.State())
	}
	if len(task.Log()) != 0 {
		t.Errorf("Expected empty log, got %v", task.Log())
	}
}

func TestTaskTransitions(t *testing.T) {
	task := newTask(KindUpload, "", nil)

	if task.succeed("too early") {
		t.Error("Pending task should not succeed directly")
	}
	if !task.start() {
		t.Fatal("Pending task should start")
	}
	if task.start() {
		t.Error("Streaming task should not start again")
	}
	if !task.succeed("done") {
		t.Fatal("Streaming task should succeed")
	}
	if task.fail(backend.ErrTypeServerRejected, "late") {
		t.Error("Succeeded task should not fail")
	}
	if task.State() != StateSucceeded || task.TerminalMessage() != "done" {
		t.Errorf("Expected succeeded/done, got %s/%s", task.State(), task.TerminalMessage())
	}
}

func TestTaskFailReplacesMessage(t *testing.T) {
	task := newTask(KindUpload, "", nil)
	task.start()

	task.fail(backend.ErrTypeServerRejected, "first")
	ended := task.Snapshot().EndedAt
	time.Sleep(time.Millisecond)
	task.fail(backend.ErrTypeServerRejected, "second")

	s := task.Snapshot()
	if s.TerminalMessage != "second" {
		t.Errorf("Expected message 'second', got '%s'", s.TerminalMessage)
	}
	if !s.EndedAt.Equal(ended) {
		t.Error("EndedAt should be set once")
	}
	if task.succeed("ok") {
		t.Error("Failed task should not succeed")
	}
}

func TestTaskAbortFreezes(t *testing.T) {
	task := newTask(KindReingestAll, "", nil)
	canceled := false
	task.setCancelFunc(func() { canceled = true })
	task.start()
	task.appendLog("line 1")

	if !task.abort() {
		t.Fatal("Streaming task should abort")
	}
	if !canceled {
		t.Error("abort should call the cancel function")
	}
	if task.appendLog("line 2") {
		t.Error("Aborted task should reject log lines")
	}
	if task.fail(backend.ErrTypeConnection, "x") {
		t.Error("Aborted task should reject failures")
	}
	if task.abort() {
		t.Error("abort should only succeed once")
	}

	s := task.Snapshot()
	if s.ErrorType != backend.ErrTypeCanceled || s.TerminalMessage != "task canceled" {
		t.Errorf("Unexpected terminal state %s/%s", s.ErrorType, s.TerminalMessage)
	}
	if len(s.Log) != 1 {
		t.Errorf("Expected 1 log line, got %d", len(s.Log))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	task := newTask(KindUpload, "", nil)
	task.start()
	task.appendLog("a")

	s := task.Snapshot()
	task.appendLog("b")

	if len(s.Log) != 1 {
		t.Errorf("Snapshot log changed after append: %v", s.Log)
	}
	s2 := task.Snapshot()
	s2.Log = append(s2.Log, "mutated")
	if got := task.Log(); len(got) != 2 || got[1] != "b" {
		t.Errorf("Task log affected by snapshot append: %v", got)
	}
}

func TestTaskWait(t *testing.T) {
	task := newTask(KindUpload, "", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := task.Wait(ctx); err == nil {
		t.Error("Wait should time out for an unfinished task")
	}

	task.markDone()
	task.markDone()
	if _, err := task.Wait(context.Background()); err != nil {
		t.Errorf("Wait returned %v", err)
	}
}

func TestStateTerminal(t *testing.T) {
	if StatePending.Terminal() || StateStreaming.Terminal() {
		t.Error("Pending/Streaming should not be terminal")
	}
	if !StateSucceeded.Terminal() || !StateFailed.Terminal() {
		t.Error("Succeeded/Failed should be terminal")
	}
}
