// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bears-chj7/studying-vibe/internal/tasks"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
)

// Source is the task being watched. *tasks.Task satisfies it.
type Source interface {
	Snapshot() tasks.Snapshot
	Done() <-chan struct{}
}

// =============================================================================
// MESSAGES
// =============================================================================

// SnapshotMsg carries a new snapshot of the watched task.
type SnapshotMsg struct {
	Snapshot tasks.Snapshot
}

// =============================================================================
// MODEL
// =============================================================================

const (
	defaultWidth  = 80
	defaultHeight = 12
	// header line + blank line above the footer + footer line
	chromeLines = 3
)

// Model is a bubbletea model that follows one task until it settles.
// The log scrolls in a viewport that sticks to the bottom.
type Model struct {
	source  Source
	updates <-chan tasks.Snapshot
	cancel  func()

	snap      tasks.Snapshot
	spinner   spinner.Model
	viewport  viewport.Model
	canceling bool
	done      bool
}

// New creates a progress model. updates should be subscribed before the
// task was submitted; cancel is called once when the user presses q or ctrl+c.
func New(source Source, updates <-chan tasks.Snapshot, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = styles.Warning

	m := Model{
		source:   source,
		updates:  updates,
		cancel:   cancel,
		snap:     source.Snapshot(),
		spinner:  s,
		viewport: viewport.New(defaultWidth, defaultHeight),
	}
	m.syncViewport()
	return m
}

// Init starts the spinner and the first wait for a snapshot.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

// waitForSnapshot blocks until the next snapshot of this task arrives.
// Snapshots of other tasks are skipped. When the task finishes while no
// snapshot is queued, its final state is read directly.
func (m Model) waitForSnapshot() tea.Cmd {
	id := m.snap.ID
	updates := m.updates
	source := m.source
	return func() tea.Msg {
		for {
			select {
			case s, ok := <-updates:
				if !ok {
					<-source.Done()
					return SnapshotMsg{Snapshot: source.Snapshot()}
				}
				if s.ID != id {
					continue
				}
				return SnapshotMsg{Snapshot: s}
			case <-source.Done():
				return SnapshotMsg{Snapshot: source.Snapshot()}
			}
		}
	}
}

// Update handles snapshots, keys, resizes and spinner ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		return m.handleSnapshot(msg.Snapshot)

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeLines, 1)
		m.syncViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.canceling && !m.done {
				m.canceling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSnapshot(s tasks.Snapshot) (tea.Model, tea.Cmd) {
	// A late intermediate snapshot must not overwrite a settled one.
	if m.snap.State.Terminal() && !s.State.Terminal() {
		return m, m.waitForSnapshot()
	}
	m.snap = s
	m.syncViewport()

	if s.State.Terminal() {
		m.done = true
		return m, tea.Quit
	}
	return m, m.waitForSnapshot()
}

func (m *Model) syncViewport() {
	m.viewport.SetContent(strings.Join(m.snap.Log, "\n"))
	m.viewport.GotoBottom()
}

// Snapshot returns the last snapshot the model has seen.
func (m Model) Snapshot() tasks.Snapshot {
	return m.snap
}

// Done reports whether the task has settled.
func (m Model) Done() bool {
	return m.done
}

// =============================================================================
// VIEW
// =============================================================================

// View renders header, log and footer.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	indicator := m.spinner.View()
	switch m.snap.State {
	case tasks.StateSucceeded:
		indicator = styles.Success.Render(styles.IndicatorSuccess)
	case tasks.StateFailed:
		indicator = styles.Error.Render(styles.IndicatorError)
	case tasks.StatePending:
		indicator = styles.Muted.Render(styles.IndicatorPending)
	}
	elapsed := styles.Muted.Render(formatElapsed(m.snap.Duration()))
	return fmt.Sprintf("%s %s %s", indicator, styles.Header.Render(m.snap.Summary()), elapsed)
}

func (m Model) footer() string {
	switch {
	case m.snap.State == tasks.StateSucceeded:
		return styles.RenderSuccess(m.snap.TerminalMessage)
	case m.snap.State == tasks.StateFailed:
		return styles.RenderError(m.snap.TerminalMessage)
	case m.canceling:
		return styles.Muted.Render("canceling...")
	default:
		return styles.Muted.Render("q: cancel  up/down: scroll")
	}
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Truncate(time.Second).String()
}
