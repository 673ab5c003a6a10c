// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/upload"
)

// =============================================================================
// TASK STATE
// =============================================================================

// State represents the lifecycle position of an ingestion task.
type State string

const (
	// StatePending indicates the task was accepted but its request is not open yet
	StatePending State = "pending"

	// StateStreaming indicates progress events are being consumed
	StateStreaming State = "streaming"

	// StateSucceeded indicates the backend reported completion
	StateSucceeded State = "succeeded"

	// StateFailed indicates an error event, a transport failure, truncation,
	// timeout or cancellation
	StateFailed State = "failed"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether s is Succeeded or Failed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Kind identifies which ingestion operation a task runs.
type Kind string

const (
	KindUpload      Kind = "upload"
	KindReingestOne Kind = "reingest-one"
	KindReingestAll Kind = "reingest-all"
)

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task is one streamed ingestion operation. All accessors are thread-safe.
type Task struct {
	// ID is a unique identifier for this task
	ID string

	// Kind is the operation this task runs
	Kind Kind

	// DocumentID is the target of a reingest-one task
	DocumentID string

	// file is the payload of an upload task, kept for Retry
	file *upload.File

	state     State
	log       []string
	message   string
	errType   backend.ErrorType
	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time

	// canceled freezes the task: no further log or state mutation
	canceled bool
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	mu sync.RWMutex
}

// Snapshot is an immutable copy of a task's observable state.
type Snapshot struct {
	ID              string
	Kind            Kind
	DocumentID      string
	FileName        string
	State           State
	Log             []string
	TerminalMessage string
	ErrorType       backend.ErrorType
	CreatedAt       time.Time
	StartedAt       time.Time
	EndedAt         time.Time
}

// Duration returns how long the task ran, or has been running.
func (s Snapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Summary returns a one-line summary of the task.
func (s Snapshot) Summary() string {
	target := s.FileName
	if s.DocumentID != "" {
		target = "document " + s.DocumentID
	}
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}

	summary := fmt.Sprintf("[%s] %s", id, s.Kind)
	if target != "" {
		summary += " " + target
	}
	summary += " - " + string(s.State)
	if d := s.Duration(); d > 0 && s.State.Terminal() {
		summary += fmt.Sprintf(" (%.1fs)", d.Seconds())
	}
	return summary
}

// =============================================================================
// TASK CREATION
// =============================================================================

func newTask(kind Kind, documentID string, file *upload.File) *Task {
	return &Task{
		ID:         uuid.New().String(),
		Kind:       kind,
		DocumentID: documentID,
		file:       file,
		state:      StatePending,
		log:        []string{},
		createdAt:  time.Now(),
		done:       make(chan struct{}),
	}
}

// =============================================================================
// TASK ACCESSORS
// =============================================================================

// State returns the current state.
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Log returns a copy of the progress log.
func (t *Task) Log() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.log...)
}

// TerminalMessage returns the success or failure message, empty until one is known.
func (t *Task) TerminalMessage() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.message
}

// ErrorType returns the failure category of a failed task.
func (t *Task) ErrorType() backend.ErrorType {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.errType
}

// Snapshot returns an immutable copy of the task.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// snapshotLocked shares the log through a clipped slice. The log is
// append-only, so the snapshot never observes later appends.
func (t *Task) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:              t.ID,
		Kind:            t.Kind,
		DocumentID:      t.DocumentID,
		State:           t.state,
		Log:             t.log[:len(t.log):len(t.log)],
		TerminalMessage: t.message,
		ErrorType:       t.errType,
		CreatedAt:       t.createdAt,
		StartedAt:       t.startedAt,
		EndedAt:         t.endedAt,
	}
	if t.file != nil {
		s.FileName = t.file.Name
	}
	return s
}

// Done is closed once the task is settled and the follow-up refresh has run.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task is done or ctx expires.
func (t *Task) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-t.done:
		return t.Snapshot(), nil
	case <-ctx.Done():
		return t.Snapshot(), ctx.Err()
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// isValidTransition checks if a state transition is valid (must be called with lock held).
// Failed -> Failed is allowed so a later error can replace the message.
func isValidTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateStreaming || to == StateFailed
	case StateStreaming:
		return to == StateSucceeded || to == StateFailed
	case StateFailed:
		return to == StateFailed
	default:
		return false
	}
}

// start moves Pending to Streaming with a fresh log.
func (t *Task) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled || !isValidTransition(t.state, StateStreaming) {
		return false
	}
	t.state = StateStreaming
	t.log = []string{}
	t.startedAt = time.Now()
	return true
}

// appendLog adds a progress line. Returns false once the task is canceled.
func (t *Task) appendLog(line string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return false
	}
	t.log = append(t.log, line)
	return true
}

// succeed settles the task as Succeeded.
func (t *Task) succeed(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled || !isValidTransition(t.state, StateSucceeded) {
		return false
	}
	t.state = StateSucceeded
	t.message = message
	t.endedAt = time.Now()
	return true
}

// fail settles the task as Failed, or replaces the message of a failed task.
// A succeeded task stays succeeded.
func (t *Task) fail(errType backend.ErrorType, message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled || !isValidTransition(t.state, StateFailed) {
		return false
	}
	t.state = StateFailed
	t.message = message
	t.errType = errType
	if t.endedAt.IsZero() {
		t.endedAt = time.Now()
	}
	return true
}

// abort settles a non-terminal task as canceled and freezes it.
func (t *Task) abort() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled || t.state.Terminal() {
		return false
	}
	t.canceled = true
	t.state = StateFailed
	t.message = backend.ErrCanceled.Message
	t.errType = backend.ErrTypeCanceled
	t.endedAt = time.Now()
	if t.cancel != nil {
		t.cancel()
	}
	return true
}

// setCancelFunc stores the context cancel function. Called once, before the task runs.
func (t *Task) setCancelFunc(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = cancel
}

func (t *Task) isTerminal() bool {
	return t.State().Terminal()
}

func (t *Task) markDone() {
	t.doneOnce.Do(func() { close(t.done) })
}
