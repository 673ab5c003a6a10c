// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry keeps the paginated document list in sync with the backend.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

// Limits are the page sizes the backend accepts.
var Limits = []int{10, 20, 50, 100}

// DefaultLimit is the initial page size.
const DefaultLimit = 10

// ValidLimit reports whether n is one of Limits.
func ValidLimit(n int) bool {
	for _, l := range Limits {
		if l == n {
			return true
		}
	}
	return false
}

// Transport is the subset of the backend client the view uses.
type Transport interface {
	ListDocuments(ctx context.Context, username string, page, limit int) (*backend.ListResult, error)
	CreateDocument(ctx context.Context, username string, file backend.UploadFile, params backend.IngestParams, description string) (string, error)
	UpdateDocument(ctx context.Context, username, id string, update backend.DocumentUpdate) error
	DeleteDocument(ctx context.Context, username, id string) error
}

// =============================================================================
// PAGINATION
// =============================================================================

// Pagination is the position of the view in the document list.
type Pagination struct {
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

// String renders the pagination the way the list footer shows it.
func (p Pagination) String() string {
	pages := p.TotalPages
	if pages < 1 {
		pages = 1
	}
	return fmt.Sprintf("Page %d of %d (%d documents, %d per page)", p.Page, pages, p.TotalItems, p.Limit)
}

// clampPage bounds page to [1, max(totalPages, 1)].
func clampPage(page, totalPages int) int {
	upper := totalPages
	if upper < 1 {
		upper = 1
	}
	if page > upper {
		page = upper
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Snapshot is a copy of the view state for presentation.
type Snapshot struct {
	Documents  []backend.Document
	Pagination Pagination
	Err        error
}

// =============================================================================
// VIEW
// =============================================================================

// View holds the current page of documents. It is safe for concurrent use;
// responses to superseded list requests are discarded.
type View struct {
	transport Transport
	username  string

	mu         sync.Mutex
	pagination Pagination
	documents  []backend.Document
	lastErr    error
	seq        uint64

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewView creates a view on page 1. An invalid limit falls back to DefaultLimit.
func NewView(transport Transport, username string, limit int) *View {
	if !ValidLimit(limit) {
		limit = DefaultLimit
	}
	return &View{
		transport:  transport,
		username:   username,
		pagination: Pagination{Page: 1, Limit: limit},
		documents:  []backend.Document{},
		observers:  make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	return Snapshot{
		Documents:  append([]backend.Document(nil), v.documents...),
		Pagination: v.pagination,
		Err:        v.lastErr,
	}
}

// Documents returns the last successfully listed page.
func (v *View) Documents() []backend.Document {
	return v.Snapshot().Documents
}

// Pagination returns the current pagination state.
func (v *View) Pagination() Pagination {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pagination
}

// LastError returns the error of the latest refresh, nil after a success.
func (v *View) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// pageCount trusts total_pages only when it agrees with the item total.
func pageCount(result *backend.ListResult, limit int) int {
	if result.Unpaginated {
		return result.TotalPages
	}
	want := 0
	if limit > 0 {
		want = (result.Total + limit - 1) / limit
	}
	if result.TotalPages != want {
		log.Debug().Int("server", result.TotalPages).Int("derived", want).Msg("total_pages disagrees with total")
	}
	return want
}

// Refresh lists the current page again. On failure the previous list is kept.
func (v *View) Refresh(ctx context.Context) error {
	return v.refresh(ctx, true)
}

func (v *View) refresh(ctx context.Context, allowClamp bool) error {
	if v.username == "" {
		return backend.NewInvalidRequest("username is required")
	}

	v.mu.Lock()
	v.seq++
	seq := v.seq
	page, limit := v.pagination.Page, v.pagination.Limit
	v.mu.Unlock()

	result, err := v.transport.ListDocuments(ctx, v.username, page, limit)

	v.mu.Lock()
	if seq != v.seq {
		v.mu.Unlock()
		log.Debug().Uint64("seq", seq).Int("page", page).Msg("discarded superseded document list")
		return err
	}

	if err != nil {
		v.lastErr = err
		snap := v.snapshotLocked()
		v.mu.Unlock()
		log.Warn().Err(err).Int("page", page).Int("limit", limit).Msg("failed to list documents")
		v.notify(snap)
		return err
	}

	v.lastErr = nil
	v.documents = result.Documents
	if v.documents == nil {
		v.documents = []backend.Document{}
	}
	pages := pageCount(result, limit)
	v.pagination.TotalItems = result.Total
	v.pagination.TotalPages = pages

	clamped := clampPage(page, pages)
	refetch := allowClamp && clamped != page
	v.pagination.Page = clamped
	snap := v.snapshotLocked()
	v.mu.Unlock()

	if refetch {
		// The list shrank below the current page.
		return v.refresh(ctx, false)
	}
	v.notify(snap)
	return nil
}

// SetLimit changes the page size, returns to page 1 and lists once.
func (v *View) SetLimit(ctx context.Context, limit int) error {
	if !ValidLimit(limit) {
		return backend.NewInvalidRequest(fmt.Sprintf("invalid page size %d (allowed: %s)", limit, limitList()))
	}

	v.mu.Lock()
	v.pagination.Limit = limit
	v.pagination.Page = 1
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// SetPage moves to page p, clamped to the known page range.
// The list is fetched only when the page actually changes.
func (v *View) SetPage(ctx context.Context, p int) error {
	v.mu.Lock()
	target := clampPage(p, v.pagination.TotalPages)
	if target == v.pagination.Page {
		v.mu.Unlock()
		return nil
	}
	v.pagination.Page = target
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// Next moves to the following page.
func (v *View) Next(ctx context.Context) error {
	return v.SetPage(ctx, v.Pagination().Page+1)
}

// Prev moves to the preceding page.
func (v *View) Prev(ctx context.Context) error {
	return v.SetPage(ctx, v.Pagination().Page-1)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create uploads a document without progress reporting, then refreshes.
func (v *View) Create(ctx context.Context, file backend.UploadFile, params backend.IngestParams, description string) (string, error) {
	msg, err := v.transport.CreateDocument(ctx, v.username, file, params, description)
	if err != nil {
		return "", err
	}
	v.refreshAfter(ctx, "create")
	return msg, nil
}

// Update changes a document's description, then refreshes.
func (v *View) Update(ctx context.Context, id, description string) error {
	if err := v.transport.UpdateDocument(ctx, v.username, id, backend.DocumentUpdate{Description: &description}); err != nil {
		return err
	}
	v.refreshAfter(ctx, "update")
	return nil
}

// Delete removes a document, then refreshes.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.transport.DeleteDocument(ctx, v.username, id); err != nil {
		return err
	}
	v.refreshAfter(ctx, "delete")
	return nil
}

// refreshAfter refreshes following a successful mutation. A refresh failure
// is recorded in LastError; the mutation itself already happened.
func (v *View) refreshAfter(ctx context.Context, op string) {
	if err := v.Refresh(ctx); err != nil {
		log.Debug().Err(err).Str("op", op).Msg("refresh after mutation failed")
	}
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers fn for every applied list result or failure.
func (v *View) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	v.obsMu.Lock()
	id := v.nextObs
	v.nextObs++
	v.observers[id] = fn
	v.obsMu.Unlock()

	return func() {
		v.obsMu.Lock()
		delete(v.observers, id)
		v.obsMu.Unlock()
	}
}

func (v *View) notify(s Snapshot) {
	v.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(v.observers))
	for id := 0; id < v.nextObs; id++ {
		if fn, ok := v.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	v.obsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func limitList() string {
	parts := make([]string, len(Limits))
	for i, l := range Limits {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, ", ")
}
