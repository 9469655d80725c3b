// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestFSRoundTrip(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, s.WriteJSON(ctx, "papers/a/metadata.json", doc{Name: "x", Count: 3}))

	var got doc
	require.NoError(t, s.ReadJSON(ctx, "papers/a/metadata.json", &got))
	assert.Equal(t, doc{Name: "x", Count: 3}, got)
}

func TestFSReadMissingKey(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = s.ReadBytes(context.Background(), "papers/missing/document.json")
	assert.ErrorIs(t, err, ErrNotExist)

	var v map[string]any
	err = s.ReadJSON(context.Background(), "papers/missing/document.json", &v)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestFSExists(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "variants/v1/aggregate.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WriteBytes(ctx, "variants/v1/aggregate.json", []byte("{}")))

	ok, err = s.Exists(ctx, "variants/v1/aggregate.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFSWriteBytesCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root)
	require.NoError(t, err)

	key := "variants/v1/annotated/10.1%2Fx.pdf"
	require.NoError(t, s.WriteBytes(context.Background(), key, []byte("%PDF-1.7")))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)
}

func TestFSOverwriteIsIdempotent(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.WriteBytes(ctx, "k.json", []byte(`{"a":1}`)))
	require.NoError(t, s.WriteBytes(ctx, "k.json", []byte(`{"a":1}`)))

	data, err := s.ReadBytes(ctx, "k.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), data)
}

func TestFSLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root)
	require.NoError(t, err)

	require.NoError(t, s.WriteBytes(context.Background(), "a/b.json", []byte("{}")))

	entries, err := os.ReadDir(filepath.Join(root, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.json", entries[0].Name())
}

func TestNewDefaultsToFS(t *testing.T) {
	s, err := New(types.StorageConfig{Root: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FS{}, s)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(types.StorageConfig{Backend: "ftp"}, nil)
	assert.Error(t, err)
}

func TestEncodeRef(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "PMC1234567", "PMC1234567"},
		{"doi slash", "10.1038/s41586-020-2308-7", "10.1038%2Fs41586-020-2308-7"},
		{"unreserved kept", "a-b_c.d~e", "a-b_c.d~e"},
		{"space and colon", "a b:c", "a%20b%3Ac"},
		{"doi with parens", "10.1002/(SICI)1096", "10.1002%2F%28SICI%291096"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeRef(tt.in))
		})
	}
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "papers/10.1%2Fx/document.json", DocumentKey("10.1/x"))
	assert.Equal(t, "papers/10.1%2Fx/source.pdf", SourceKey("10.1/x"))
	assert.Equal(t, "papers/10.1%2Fx/metadata.json", MetadataKey("10.1/x"))
	assert.Equal(t, "variants/v1/details.json", VariantDetailsKey("v1"))
	assert.Equal(t, "variants/v1/extractions/10.1%2Fx.json", ExtractionKey("v1", "10.1/x"))
	assert.Equal(t, "variants/v1/extractions/10.1%2Fx_raw.json", ExtractionRawKey("v1", "10.1/x"))
	assert.Equal(t, "variants/v1/aggregate.json", AggregateKey("v1"))
	assert.Equal(t, "variants/v1/aggregate_raw.json", AggregateRawKey("v1"))
	assert.Equal(t, "variants/v1/aggregate_papers.json", AggregatePapersKey("v1"))
	assert.Equal(t, "variants/v1/annotated/10.1%2Fx.pdf", AnnotatedKey("v1", "10.1/x"))
}
