// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bears-chj7/studying-vibe/internal/tasks"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
)

// Run shows the interactive progress view until the task settles and returns
// its final snapshot. If the program stops early (ctx canceled, terminal
// gone), Run waits for the task so the caller always gets a settled result.
func Run(ctx context.Context, source Source, updates <-chan tasks.Snapshot, cancel func(), opts ...tea.ProgramOption) (tasks.Snapshot, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(source, updates, cancel), opts...)

	final, err := p.Run()
	if m, ok := final.(Model); ok && m.Done() {
		return m.Snapshot(), nil
	}
	if err != nil && cancel != nil {
		cancel()
	}
	<-source.Done()
	return source.Snapshot(), err
}

// Plain follows the task without a TUI: each new log line is written to w as
// it arrives, then one status line. Intermediate snapshots may be skipped by
// the channel; the log is cumulative so no line is lost.
func Plain(ctx context.Context, w io.Writer, source Source, updates <-chan tasks.Snapshot) (tasks.Snapshot, error) {
	id := source.Snapshot().ID
	printed := 0

	emit := func(s tasks.Snapshot) {
		for _, line := range s.Log[min(printed, len(s.Log)):] {
			fmt.Fprintln(w, line)
		}
		printed = max(printed, len(s.Log))
	}

	finish := func() tasks.Snapshot {
		s := source.Snapshot()
		emit(s)
		fmt.Fprintln(w, styles.RenderStatus(s.State == tasks.StateSucceeded, s.TerminalMessage))
		return s
	}

	for {
		select {
		case s, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if s.ID != id {
				continue
			}
			emit(s)
		case <-source.Done():
			return finish(), nil
		case <-ctx.Done():
			return source.Snapshot(), ctx.Err()
		}
	}
}
