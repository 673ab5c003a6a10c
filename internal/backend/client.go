// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the document-assistant backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/bears-chj7/studying-vibe/internal/stream"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://localhost:5000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s).
	// Streaming requests are bounded by their context only.
	Timeout time.Duration

	// RequestsPerSecond limits outgoing requests (default: 10)
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default: 20)
	Burst int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://localhost:5000",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the document backend.
// It covers the document list, metadata updates, chunk inspection and the
// streamed ingestion endpoints.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		// No client timeout: a stream may legitimately run for a long time.
		// Deadlines come from the request context.
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// ListDocuments retrieves one page of the caller's documents.
func (c *Client) ListDocuments(ctx context.Context, username string, page, limit int) (*ListResult, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/documents", query), nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.do(ctx, c.httpClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransportError(ctx, err)
	}

	result, err := decodeListResult(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeServerRejected, Message: "failed to decode document list", StatusCode: resp.StatusCode, Cause: err}
	}
	return result, nil
}

// UpdateDocument applies a partial update to one document.
func (c *Client) UpdateDocument(ctx context.Context, username, id string, update DocumentUpdate) error {
	if id == "" {
		return NewInvalidRequest("document id is required")
	}

	body, err := json.Marshal(update)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to marshal request", Cause: err}
	}

	query := url.Values{}
	query.Set("username", username)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint("/api/documents/"+url.PathEscape(id), query), bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, c.httpClient, req)
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}

// DeleteDocument removes one document and its vectors.
func (c *Client) DeleteDocument(ctx context.Context, username, id string) error {
	if id == "" {
		return NewInvalidRequest("document id is required")
	}

	query := url.Values{}
	query.Set("username", username)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/api/documents/"+url.PathEscape(id), query), nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.do(ctx, c.httpClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload errorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		log.Debug().Str("doc_id", id).Str("message", payload.Message).Msg("document deleted")
	}
	return nil
}

// ListChunks retrieves the vector chunks stored for one document.
func (c *Client) ListChunks(ctx context.Context, username, id string) ([]Chunk, error) {
	if id == "" {
		return nil, NewInvalidRequest("document id is required")
	}

	query := url.Values{}
	query.Set("username", username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/documents/"+url.PathEscape(id)+"/chunks", query), nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.do(ctx, c.httpClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chunks []Chunk
	if err := json.NewDecoder(resp.Body).Decode(&chunks); err != nil {
		return nil, &ClientError{Type: ErrTypeServerRejected, Message: "failed to decode chunks", StatusCode: resp.StatusCode, Cause: err}
	}
	if chunks == nil {
		chunks = []Chunk{}
	}
	return chunks, nil
}

// CreateDocument uploads a file and waits for its ingestion to finish.
// It is the blocking counterpart of OpenUpload, used where no progress
// log is shown. The returned string is the backend's success message.
func (c *Client) CreateDocument(ctx context.Context, username string, file UploadFile, params IngestParams, description string) (string, error) {
	extra := map[string]string{}
	if description != "" {
		extra["description"] = description
	}

	body, err := c.openIngest(ctx, "/api/documents", username, params, &file, extra)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var (
		success  string
		failure  string
		finished bool
	)
	err = stream.NewReader(body).Process(ctx, func(ev stream.Event) {
		switch ev.Kind {
		case stream.KindSuccess:
			success, finished = ev.Message, true
		case stream.KindError:
			failure = ev.Message
		}
	})
	if err != nil {
		return "", ClassifyTransportError(ctx, err)
	}
	if failure != "" {
		return "", &ClientError{Type: ErrTypeServerRejected, Message: failure, StatusCode: http.StatusOK}
	}
	if !finished {
		return "", ErrStreamTruncated
	}
	return success, nil
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends one message to the given model and returns its answer.
// Generation can be slow, so only ctx bounds the request.
func (c *Client) Chat(ctx context.Context, message, model string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", NewInvalidRequest("message is required")
	}
	if model == "" {
		return "", NewInvalidRequest("model is required")
	}

	body, err := json.Marshal(ChatRequest{Message: message, Model: model})
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/chat", nil), bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, c.streamClient, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", &ClientError{Type: ErrTypeServerRejected, Message: "failed to decode chat reply", StatusCode: resp.StatusCode, Cause: err}
	}
	if reply.Response == nil {
		msg := reply.Error
		if msg == "" {
			msg = "chat reply has no response"
		}
		return "", newRejected(resp.StatusCode, msg)
	}
	return *reply.Response, nil
}

// =============================================================================
// STREAMED INGESTION
// =============================================================================

// OpenUpload posts a new file for ingestion and returns the progress stream.
// The caller owns the returned body and must close it.
func (c *Client) OpenUpload(ctx context.Context, username string, file UploadFile, params IngestParams) (io.ReadCloser, error) {
	if file.Name == "" || len(file.Data) == 0 {
		return nil, NewInvalidRequest("no file selected")
	}
	return c.openIngest(ctx, "/api/documents", username, params, &file, nil)
}

// OpenReingest re-ingests one document and returns the progress stream.
func (c *Client) OpenReingest(ctx context.Context, username, id string, params IngestParams) (io.ReadCloser, error) {
	if id == "" {
		return nil, NewInvalidRequest("document id is required")
	}
	return c.openIngest(ctx, "/api/documents/"+url.PathEscape(id)+"/reingest", username, params, nil, nil)
}

// OpenReingestAll re-ingests every document of the caller and returns the progress stream.
func (c *Client) OpenReingestAll(ctx context.Context, username string, params IngestParams) (io.ReadCloser, error) {
	return c.openIngest(ctx, "/api/documents/reingest-all", username, params, nil, nil)
}

// openIngest builds the multipart body shared by all ingestion endpoints.
func (c *Client) openIngest(ctx context.Context, path, username string, params IngestParams, file *UploadFile, extra map[string]string) (io.ReadCloser, error) {
	if username == "" {
		return nil, NewInvalidRequest("username is required")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if file != nil {
		part, err := form.CreateFormFile("file", file.Name)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to build upload", Cause: err}
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to build upload", Cause: err}
		}
	}
	fields := map[string]string{
		"username":      username,
		"chunk_size":    strconv.Itoa(params.ChunkSize),
		"chunk_overlap": strconv.Itoa(params.ChunkOverlap),
	}
	for k, v := range extra {
		fields[k] = v
	}
	for _, k := range []string{"username", "chunk_size", "chunk_overlap", "description"} {
		v, ok := fields[k]
		if !ok {
			continue
		}
		if err := form.WriteField(k, v); err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to build upload", Cause: err}
		}
	}
	if err := form.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to build upload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &buf)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.do(ctx, c.streamClient, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (c *Client) endpoint(path string, query url.Values) string {
	if len(query) == 0 {
		return c.config.BaseURL + path
	}
	return c.config.BaseURL + path + "?" + query.Encode()
}

// do waits for the limiter, sends the request and converts failures to ClientError.
// On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, hc *http.Client, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ClassifyTransportError(ctx, ctx.Err())
		}
		return nil, &ClientError{Type: ErrTypeTimeout, Message: "rate limit wait exceeds deadline", Cause: err}
	}

	log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("backend request")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, ClassifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, newRejected(resp.StatusCode, rejectionMessage(body))
	}
	return resp, nil
}

// rejectionMessage extracts a human-readable message from an error body.
// Structured {error|message} payloads win; otherwise the raw text is used.
func rejectionMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return string(body)
}

// ClassifyTransportError maps a network or context failure onto a ClientError.
func ClassifyTransportError(ctx context.Context, err error) *ClientError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	default:
		return &ClientError{Type: ErrTypeConnection, Message: "connection to backend failed", Cause: err}
	}
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
