// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings persists the user's ingestion parameters and chat model choice.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

// Storage keys. They match the keys the web client uses.
const (
	KeyIngest = "ingestSettings"
	KeyModel  = "chatModel"
)

// Default values used when nothing valid is stored.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultModel        = "ollama"
)

// KnownModels lists the chat models the backend can serve.
var KnownModels = []string{"ollama", "gemini"}

// =============================================================================
// INGEST SETTINGS
// =============================================================================

// IngestSettings are the chunking parameters sent with every ingestion.
type IngestSettings struct {
	ChunkSize    int `json:"chunkSize"`
	ChunkOverlap int `json:"chunkOverlap"`
}

// Defaults returns the default ingestion settings.
func Defaults() IngestSettings {
	return IngestSettings{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
}

// Validate checks ChunkSize > 0 and 0 <= ChunkOverlap < ChunkSize.
func (s IngestSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", s.ChunkOverlap)
	}
	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", s.ChunkOverlap, s.ChunkSize)
	}
	return nil
}

// Params converts the settings to the form the backend client sends.
func (s IngestSettings) Params() backend.IngestParams {
	return backend.IngestParams{ChunkSize: s.ChunkSize, ChunkOverlap: s.ChunkOverlap}
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes settings through a KV.
type Store struct {
	kv KV
}

// NewStore creates a Store on top of kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the stored ingestion settings.
// Missing, unreadable or invalid values yield the defaults.
func (s *Store) Load() IngestSettings {
	raw, err := s.kv.Get(KeyIngest)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Msg("failed to read ingest settings, using defaults")
		}
		return Defaults()
	}

	var stored IngestSettings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Warn().Err(err).Msg("stored ingest settings are malformed, using defaults")
		return Defaults()
	}
	if err := stored.Validate(); err != nil {
		log.Warn().Err(err).Msg("stored ingest settings are invalid, using defaults")
		return Defaults()
	}
	return stored
}

// Save validates and persists the ingestion settings.
func (s *Store) Save(settings IngestSettings) error {
	if err := settings.Validate(); err != nil {
		return backend.NewInvalidRequest(err.Error())
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode ingest settings: %w", err)
	}
	return s.kv.Set(KeyIngest, string(data))
}

// Model returns the selected chat model.
func (s *Store) Model() string {
	raw, err := s.kv.Get(KeyModel)
	if err != nil {
		return DefaultModel
	}
	model := strings.TrimSpace(raw)
	if !IsKnownModel(model) {
		return DefaultModel
	}
	return model
}

// SetModel persists the selected chat model.
func (s *Store) SetModel(model string) error {
	model = strings.ToLower(strings.TrimSpace(model))
	if !IsKnownModel(model) {
		return backend.NewInvalidRequest(fmt.Sprintf("unknown model %q (known: %s)", model, strings.Join(KnownModels, ", ")))
	}
	// Stored as the bare name, the same way the web client does.
	return s.kv.Set(KeyModel, model)
}

// IsKnownModel reports whether model is one of KnownModels.
func IsKnownModel(model string) bool {
	for _, m := range KnownModels {
		if m == model {
			return true
		}
	}
	return false
}

// Close releases the underlying KV.
func (s *Store) Close() error {
	return s.kv.Close()
}
