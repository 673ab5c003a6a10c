// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/settings"
	"github.com/bears-chj7/studying-vibe/internal/stream"
	"github.com/bears-chj7/studying-vibe/internal/upload"
)

// DefaultCompletionMarker is the substring that makes a re-ingest success terminal.
const DefaultCompletionMarker = "Completed re-ingestion"

// DefaultStreamDeadline bounds a single task.
const DefaultStreamDeadline = 30 * time.Minute

// refreshTimeout bounds the list refresh that follows every task.
const refreshTimeout = 30 * time.Second

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Transport opens the streamed ingestion requests. *backend.Client implements it.
type Transport interface {
	OpenUpload(ctx context.Context, username string, file backend.UploadFile, params backend.IngestParams) (io.ReadCloser, error)
	OpenReingest(ctx context.Context, username, id string, params backend.IngestParams) (io.ReadCloser, error)
	OpenReingestAll(ctx context.Context, username string, params backend.IngestParams) (io.ReadCloser, error)
}

// Refresher reloads the document list after a task settles.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Options configure a Controller.
type Options struct {
	// Username is sent with every request
	Username string

	// CompletionMarker is matched against re-ingest success messages (default: DefaultCompletionMarker)
	CompletionMarker string

	// StreamDeadline bounds each task (0 = no deadline)
	StreamDeadline time.Duration

	// HistorySize is the number of settled tasks to keep (0 = unlimited)
	HistorySize int
}

// DefaultOptions returns the default controller options.
func DefaultOptions() Options {
	return Options{
		CompletionMarker: DefaultCompletionMarker,
		StreamDeadline:   DefaultStreamDeadline,
		HistorySize:      20,
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller starts ingestion tasks, consumes their progress streams and
// publishes every change to observers.
type Controller struct {
	transport Transport
	refresher Refresher
	opts      Options
	tracker   *Tracker
	hub       *Hub
	wg        sync.WaitGroup
}

// NewController creates a controller. refresher may be nil.
func NewController(transport Transport, refresher Refresher, opts Options) *Controller {
	if opts.CompletionMarker == "" {
		opts.CompletionMarker = DefaultCompletionMarker
	}
	if opts.StreamDeadline < 0 {
		opts.StreamDeadline = 0
	}
	return &Controller{
		transport: transport,
		refresher: refresher,
		opts:      opts,
		tracker:   NewTracker(opts.HistorySize),
		hub:       NewHub(),
	}
}

// opener opens the stream for one task.
type opener func(ctx context.Context, params backend.IngestParams) (io.ReadCloser, error)

// SubmitUpload starts uploading file. It fails with an InvalidRequest error,
// creating no task, when the file or settings are unusable.
func (c *Controller) SubmitUpload(ctx context.Context, file *upload.File, s settings.IngestSettings) (*Task, error) {
	if file == nil || file.Name == "" || len(file.Data) == 0 {
		return nil, backend.NewInvalidRequest("no file selected")
	}
	if err := c.validate(s); err != nil {
		return nil, err
	}

	task := newTask(KindUpload, "", file)
	open := func(ctx context.Context, params backend.IngestParams) (io.ReadCloser, error) {
		return c.transport.OpenUpload(ctx, c.opts.Username, file.UploadFile(), params)
	}
	c.launch(ctx, task, s, open)
	return task, nil
}

// SubmitReingest starts re-ingesting one document.
func (c *Controller) SubmitReingest(ctx context.Context, documentID string, s settings.IngestSettings) (*Task, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, backend.NewInvalidRequest("document id is required")
	}
	if err := c.validate(s); err != nil {
		return nil, err
	}

	task := newTask(KindReingestOne, documentID, nil)
	open := func(ctx context.Context, params backend.IngestParams) (io.ReadCloser, error) {
		return c.transport.OpenReingest(ctx, c.opts.Username, documentID, params)
	}
	c.launch(ctx, task, s, open)
	return task, nil
}

// SubmitReingestAll starts re-ingesting every document of the user.
func (c *Controller) SubmitReingestAll(ctx context.Context, s settings.IngestSettings) (*Task, error) {
	if err := c.validate(s); err != nil {
		return nil, err
	}

	task := newTask(KindReingestAll, "", nil)
	open := func(ctx context.Context, params backend.IngestParams) (io.ReadCloser, error) {
		return c.transport.OpenReingestAll(ctx, c.opts.Username, params)
	}
	c.launch(ctx, task, s, open)
	return task, nil
}

// Retry re-submits the operation of a settled task with the given settings.
func (c *Controller) Retry(ctx context.Context, id string, s settings.IngestSettings) (*Task, error) {
	prev := c.tracker.Get(id)
	if prev == nil {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if !prev.isTerminal() {
		return nil, fmt.Errorf("task %s is still %s", id, prev.State())
	}

	switch prev.Kind {
	case KindUpload:
		return c.SubmitUpload(ctx, prev.file, s)
	case KindReingestOne:
		return c.SubmitReingest(ctx, prev.DocumentID, s)
	default:
		return c.SubmitReingestAll(ctx, s)
	}
}

// Cancel stops a task that has not settled. The task becomes Failed with
// "task canceled"; its log is kept. Returns false if nothing was canceled.
func (c *Controller) Cancel(id string) bool {
	task := c.tracker.Get(id)
	if task == nil || !task.abort() {
		return false
	}
	log.Info().Str("task_id", task.ID).Str("kind", string(task.Kind)).Msg("task canceled")
	c.publish(task)
	return true
}

// CancelAll cancels every task that has not settled.
func (c *Controller) CancelAll() {
	for _, task := range c.tracker.Active() {
		c.Cancel(task.ID)
	}
}

// Wait blocks until every started task has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Get returns a tracked task by ID.
func (c *Controller) Get(id string) *Task {
	return c.tracker.Get(id)
}

// Current returns the most recently submitted task, or nil.
func (c *Controller) Current() *Task {
	return c.tracker.Current()
}

// All returns snapshots of every tracked task.
func (c *Controller) All() []Snapshot {
	return c.tracker.All()
}

// Summary counts tracked tasks by state.
func (c *Controller) Summary() string {
	return c.tracker.Summary()
}

// Discard forgets a settled task.
func (c *Controller) Discard(id string) error {
	return c.tracker.Discard(id)
}

// Subscribe registers an observer for every task mutation.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	return c.hub.Subscribe(o)
}

// Updates subscribes a buffered snapshot channel.
func (c *Controller) Updates(buffer int) (<-chan Snapshot, func()) {
	return c.hub.Channel(buffer)
}

// =============================================================================
// TASK EXECUTION
// =============================================================================

func (c *Controller) validate(s settings.IngestSettings) error {
	if strings.TrimSpace(c.opts.Username) == "" {
		return backend.NewInvalidRequest("username is required")
	}
	if err := s.Validate(); err != nil {
		return backend.NewInvalidRequest(err.Error())
	}
	return nil
}

// launch registers the task and starts consuming it in its own goroutine.
func (c *Controller) launch(ctx context.Context, task *Task, s settings.IngestSettings, open opener) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if c.opts.StreamDeadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.opts.StreamDeadline)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	task.setCancelFunc(cancel)

	c.tracker.add(task)
	c.publish(task)

	log.Info().
		Str("task_id", task.ID).
		Str("kind", string(task.Kind)).
		Str("doc_id", task.DocumentID).
		Int("chunk_size", s.ChunkSize).
		Int("chunk_overlap", s.ChunkOverlap).
		Msg("task submitted")

	c.wg.Add(1)
	go c.run(runCtx, cancel, task, s.Params(), open)
}

// run executes one task to completion.
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, task *Task, params backend.IngestParams, open opener) {
	defer c.wg.Done()
	defer task.markDone()
	defer c.refresh(ctx, task)
	defer c.tracker.settled()
	defer cancel()

	if task.start() {
		c.publish(task)
	}

	body, err := open(ctx, params)
	if err != nil {
		c.settleError(ctx, task, err)
		return
	}

	// Closing the body unblocks a pending read once ctx is done.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer func() {
		stop()
		body.Close()
	}()

	reader := stream.NewReader(body)
	err = reader.Process(ctx, func(ev stream.Event) {
		if c.apply(task, ev) {
			c.publish(task)
		}
	})

	if dec := reader.Decoder(); dec.Dropped() > 0 || dec.Discarded() > 0 {
		log.Debug().
			Str("task_id", task.ID).
			Int("dropped_lines", dec.Dropped()).
			Int("discarded_bytes", dec.Discarded()).
			Msg("ignored malformed stream data")
	}

	if err != nil || ctx.Err() != nil {
		if err == nil {
			err = ctx.Err()
		}
		c.settleError(ctx, task, err)
		return
	}

	if !task.isTerminal() {
		if task.fail(backend.ErrTypeStreamTruncated, backend.ErrStreamTruncated.Message) {
			c.publish(task)
		}
	}
	c.logSettled(task)
}

// apply folds one event into the task. Returns true if the task changed.
func (c *Controller) apply(task *Task, ev stream.Event) bool {
	switch ev.Kind {
	case stream.KindInfo:
		return task.appendLog(ev.Message)

	case stream.KindSuccess:
		if task.State() == StateStreaming && c.isCompletion(task.Kind, ev.Message) {
			return task.succeed(ev.Message)
		}
		return task.appendLog(ev.Message)

	case stream.KindError:
		if task.State() == StateSucceeded {
			return task.appendLog(ev.Message)
		}
		return task.fail(backend.ErrTypeServerRejected, ev.Message)
	}
	return false
}

// isCompletion reports whether a success event settles a task of kind.
// Upload successes are always terminal; re-ingest needs the marker.
func (c *Controller) isCompletion(kind Kind, message string) bool {
	if kind == KindUpload {
		return true
	}
	return strings.Contains(message, c.opts.CompletionMarker)
}

// settleError maps a failure of the request or stream onto the task.
func (c *Controller) settleError(ctx context.Context, task *Task, err error) {
	clientErr := backend.ClassifyTransportError(ctx, err)

	switch clientErr.Type {
	case backend.ErrTypeCanceled:
		task.abort()
	case backend.ErrTypeTimeout:
		msg := "task timed out"
		if c.opts.StreamDeadline > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("task timed out after %s", c.opts.StreamDeadline)
		}
		task.fail(backend.ErrTypeTimeout, msg)
	default:
		task.fail(clientErr.Type, clientErr.Error())
	}
	c.publish(task)
	c.logSettled(task)
}

// refresh reloads the document list once per task, whatever the outcome.
func (c *Controller) refresh(ctx context.Context, task *Task) {
	if c.refresher == nil {
		return
	}
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()

	if err := c.refresher.Refresh(refreshCtx); err != nil {
		log.Warn().Err(err).Str("task_id", task.ID).Msg("document list refresh failed")
	}
}

func (c *Controller) publish(task *Task) {
	c.hub.Publish(task.Snapshot())
}

func (c *Controller) logSettled(task *Task) {
	s := task.Snapshot()
	event := log.Info()
	if s.State == StateFailed {
		event = log.Warn().Str("error_type", s.ErrorType.String())
	}
	event.
		Str("task_id", s.ID).
		Str("kind", string(s.Kind)).
		Str("state", string(s.State)).
		Int("log_lines", len(s.Log)).
		Dur("duration", s.Duration()).
		Msg(s.TerminalMessage)
}
