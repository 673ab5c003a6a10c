// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"fmt"
	"sync"
)

// =============================================================================
// TASK TRACKER
// =============================================================================

// Tracker keeps submitted tasks in submission order with a bounded history.
type Tracker struct {
	// tasks is the list of all tasks (both running and settled)
	tasks []*Task

	// byID indexes tasks by ID
	byID map[string]*Task

	// maxHistory is the maximum number of settled tasks to keep (0 = unlimited)
	maxHistory int

	mu sync.RWMutex
}

// NewTracker creates a new tracker.
// maxHistory sets the maximum number of settled tasks to keep (0 = unlimited).
func NewTracker(maxHistory int) *Tracker {
	return &Tracker{
		tasks:      make([]*Task, 0),
		byID:       make(map[string]*Task),
		maxHistory: maxHistory,
	}
}

// add registers a newly submitted task.
func (tr *Tracker) add(task *Task) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.tasks = append(tr.tasks, task)
	tr.byID[task.ID] = task
	tr.cleanupLocked()
}

// settled is called when a task reaches a terminal state.
func (tr *Tracker) settled() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.cleanupLocked()
}

// Get retrieves a task by ID. Returns nil if the task is not tracked.
func (tr *Tracker) Get(id string) *Task {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.byID[id]
}

// Current returns the most recently submitted task, or nil.
func (tr *Tracker) Current() *Task {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if len(tr.tasks) == 0 {
		return nil
	}
	return tr.tasks[len(tr.tasks)-1]
}

// All returns snapshots of every tracked task, oldest first.
func (tr *Tracker) All() []Snapshot {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	result := make([]Snapshot, len(tr.tasks))
	for i, task := range tr.tasks {
		result[i] = task.Snapshot()
	}
	return result
}

// Active returns the tasks that have not settled yet.
func (tr *Tracker) Active() []*Task {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	result := make([]*Task, 0)
	for _, task := range tr.tasks {
		if !task.isTerminal() {
			result = append(result, task)
		}
	}
	return result
}

// Discard forgets a settled task. Running tasks cannot be discarded.
func (tr *Tracker) Discard(id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	task, ok := tr.byID[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	if !task.isTerminal() {
		return fmt.Errorf("task %s is still %s", id, task.State())
	}

	delete(tr.byID, id)
	for i, t := range tr.tasks {
		if t == task {
			tr.tasks = append(tr.tasks[:i], tr.tasks[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the total number of tracked tasks.
func (tr *Tracker) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.tasks)
}

// =============================================================================
// CLEANUP
// =============================================================================

// cleanupLocked removes the oldest settled tasks beyond maxHistory.
// Must be called with lock held. The most recent task is never removed.
func (tr *Tracker) cleanupLocked() {
	if tr.maxHistory <= 0 {
		return
	}

	settled := 0
	for _, task := range tr.tasks {
		if task.isTerminal() {
			settled++
		}
	}
	if settled <= tr.maxHistory {
		return
	}

	toRemove := settled - tr.maxHistory
	kept := make([]*Task, 0, len(tr.tasks)-toRemove)
	last := len(tr.tasks) - 1
	for i, task := range tr.tasks {
		if toRemove > 0 && i != last && task.isTerminal() {
			toRemove--
			delete(tr.byID, task.ID)
			continue
		}
		kept = append(kept, task)
	}
	tr.tasks = kept
}

// =============================================================================
// FORMATTING
// =============================================================================

// Summary returns a formatted summary of the tracked tasks.
func (tr *Tracker) Summary() string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	var running, succeeded, failed int
	for _, task := range tr.tasks {
		switch task.State() {
		case StatePending, StateStreaming:
			running++
		case StateSucceeded:
			succeeded++
		case StateFailed:
			failed++
		}
	}

	return fmt.Sprintf("Running: %d | Succeeded: %d | Failed: %d", running, succeeded, failed)
}
