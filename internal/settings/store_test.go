// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

func TestIngestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      IngestSettings
		wantErr bool
	}{
		{"defaults", Defaults(), false},
		{"zero overlap", IngestSettings{ChunkSize: 500, ChunkOverlap: 0}, false},
		{"zero size", IngestSettings{ChunkSize: 0, ChunkOverlap: 0}, true},
		{"negative overlap", IngestSettings{ChunkSize: 500, ChunkOverlap: -1}, true},
		{"overlap equals size", IngestSettings{ChunkSize: 500, ChunkOverlap: 500}, true},
		{"overlap above size", IngestSettings{ChunkSize: 500, ChunkOverlap: 600}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore_DefaultsWhenEmpty(t *testing.T) {
	store := NewStore(NewMemoryKV())
	assert.Equal(t, IngestSettings{ChunkSize: 1000, ChunkOverlap: 200}, store.Load())
	assert.Equal(t, "ollama", store.Model())
}

func TestStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   IngestSettings
	}{
		{"smallest", IngestSettings{ChunkSize: 1, ChunkOverlap: 0}},
		{"overlap just below size", IngestSettings{ChunkSize: 2, ChunkOverlap: 1}},
		{"default size with max overlap", IngestSettings{ChunkSize: 1000, ChunkOverlap: 999}},
		{"typical", IngestSettings{ChunkSize: 500, ChunkOverlap: 50}},
		{"large", IngestSettings{ChunkSize: math.MaxInt32, ChunkOverlap: math.MaxInt32 - 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore(NewMemoryKV())
			require.NoError(t, store.Save(tc.in))
			assert.Equal(t, tc.in, store.Load())

			sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "settings.db"))
			require.NoError(t, err)
			persisted := NewStore(sqlite)
			defer persisted.Close()
			require.NoError(t, persisted.Save(tc.in))
			assert.Equal(t, tc.in, persisted.Load())
		})
	}
}

func TestStore_StoredFormat(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv)
	require.NoError(t, store.Save(IngestSettings{ChunkSize: 800, ChunkOverlap: 80}))

	raw, err := kv.Get(KeyIngest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunkSize":800,"chunkOverlap":80}`, raw)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv)

	err := store.Save(IngestSettings{ChunkSize: 100, ChunkOverlap: 100})
	require.Error(t, err)
	assert.True(t, backend.IsInvalidRequest(err))

	_, err = kv.Get(KeyIngest)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CorruptValueFallsBack(t *testing.T) {
	for _, raw := range []string{"not json", `{"chunkSize":0,"chunkOverlap":0}`, `[]`} {
		kv := NewMemoryKV()
		require.NoError(t, kv.Set(KeyIngest, raw))
		assert.Equal(t, Defaults(), NewStore(kv).Load(), "raw=%q", raw)
	}
}

func TestStore_Model(t *testing.T) {
	store := NewStore(NewMemoryKV())

	require.NoError(t, store.SetModel(" Gemini "))
	assert.Equal(t, "gemini", store.Model())

	err := store.SetModel("gpt")
	assert.True(t, backend.IsInvalidRequest(err))
	assert.Equal(t, "gemini", store.Model())
}

func TestStore_UnknownStoredModel(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(KeyModel, "mystery"))
	assert.Equal(t, DefaultModel, NewStore(kv).Model())
}

func TestSQLiteKV_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")

	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	store := NewStore(kv)
	require.NoError(t, store.Save(IngestSettings{ChunkSize: 1200, ChunkOverlap: 100}))
	require.NoError(t, store.SetModel("gemini"))
	require.NoError(t, store.Close())

	kv, err = OpenSQLite(path)
	require.NoError(t, err)
	defer kv.Close()

	reopened := NewStore(kv)
	assert.Equal(t, IngestSettings{ChunkSize: 1200, ChunkOverlap: 100}, reopened.Load())
	assert.Equal(t, "gemini", reopened.Model())
}

func TestSQLiteKV_Overwrite(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer kv.Close()

	_, err = kv.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set("k", "one"))
	require.NoError(t, kv.Set("k", "two"))
	v, err := kv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
