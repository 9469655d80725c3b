// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	calls     [][]types.PromptMessage
}

func (c *scriptedCompleter) Complete(_ context.Context, messages []types.PromptMessage, _ llm.Options) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]types.PromptMessage, len(messages))
	copy(copied, messages)
	c.calls = append(c.calls, copied)

	if len(c.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

const docJSON = `{
	"body": {"children": [{"$ref": "#/texts/0"}]},
	"texts": [{"self_ref": "#/texts/0", "label": "text", "text": "Evidence.",
		"prov": [{"page_no": 3, "bbox": {"l": 10, "t": 20, "r": 30, "b": 40, "coord_origin": "TOPLEFT"}}]}]
}`

func newTestEngine(t *testing.T, completer llm.Completer) (*Engine, store.Store) {
	t.Helper()

	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)

	shape, err := llm.GetShape("generic")
	require.NoError(t, err)

	return &Engine{
		Store:     s,
		Completer: completer,
		Shape:     shape,
		Config:    types.AggregationConfig{AIConfig: types.AIConfig{Model: "test-model"}},
		Log:       zap.NewNop(),
	}, s
}

// seedQualifyingPaper stores a document, metadata, and a discussed extraction.
func seedQualifyingPaper(t *testing.T, s store.Store, variantID, ref, authors, date string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.WriteBytes(ctx, store.DocumentKey(ref), []byte(docJSON)))
	require.NoError(t, s.WriteJSON(ctx, store.MetadataKey(ref), types.PaperMetadata{
		SchemaVersion: types.MetadataSchemaVersion,
		PMID:          "12345",
		Title:         "A paper",
		Authors:       authors,
		Date:          date,
	}))
	require.NoError(t, s.WriteJSON(ctx, store.ExtractionKey(variantID, ref), types.ExtractionResult{
		SchemaVersion:    types.ExtractionSchemaVersion,
		PaperRef:         ref,
		VariantDiscussed: true,
		Evidence: []types.EvidenceFinding{
			{Finding: "observed", Citations: []types.Citation{{BoxID: 1, Commentary: "obs"}}},
		},
	}))
}

func validAggregate(paper string) string {
	return fmt.Sprintf(`{
		"results": {
			"assessment": {
				"classification": "VUS",
				"classification_rationale": "limited evidence",
				"description": "desc",
				"notes": "notes citing %s",
				"citations": [{"paper": "%s", "box_id": 1, "commentary": "supports"}]
			}
		}
	}`, paper, paper)
}

func TestAggregatePersistsEnrichedResult(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{validAggregate("Smith2020")}}
	e, s := newTestEngine(t, completer)
	ctx := context.Background()

	require.NoError(t, s.WriteBytes(ctx, store.VariantDetailsKey("v1"), []byte(`{"gene": "GAA"}`)))
	seedQualifyingPaper(t, s, "v1", "10.1/x", "Smith, Jane", "2020-03-01")

	status, err := e.Aggregate(ctx, "v1", []string{"10.1/x"})
	require.NoError(t, err)
	assert.Equal(t, StatusAggregated, status)

	var result types.AggregateResult
	require.NoError(t, s.ReadJSON(ctx, store.AggregateKey("v1"), &result))
	assert.Equal(t, types.AggregateSchemaVersion, result.SchemaVersion)
	require.Contains(t, result.Results, "assessment")

	cat := result.Results["assessment"]
	assert.Equal(t, "VUS", cat.Classification)
	require.Len(t, cat.Citations, 1)

	c := cat.Citations[0]
	assert.Equal(t, "Smith2020", c.Paper)
	assert.Equal(t, "10.1/x", c.DurableID)
	assert.Equal(t, "12345", c.PMID)
	assert.Equal(t, 3, c.Page)
	require.NotNil(t, c.Bbox)
	assert.Equal(t, types.Rect{L: 10, T: 20, R: 30, B: 40}, *c.Bbox)
	assert.Equal(t, types.OriginTopLeft, c.CoordOrigin)

	var xref types.PaperXref
	require.NoError(t, s.ReadJSON(ctx, store.AggregatePapersKey("v1"), &xref))
	assert.Equal(t, types.PaperXrefEntry{DurableID: "10.1/x", PMID: "12345"}, xref.Papers["Smith2020"])

	var transcript types.Transcript
	require.NoError(t, s.ReadJSON(ctx, store.AggregateRawKey("v1"), &transcript))
	assert.Equal(t, "test-model", transcript.Model)
	assert.Len(t, transcript.Messages, 2)
}

func TestAggregateCachedMakesNoModelCall(t *testing.T) {
	completer := &scriptedCompleter{}
	e, s := newTestEngine(t, completer)
	ctx := context.Background()

	require.NoError(t, s.WriteJSON(ctx, store.AggregateKey("v1"), types.AggregateResult{
		SchemaVersion: types.AggregateSchemaVersion,
	}))

	status, err := e.Aggregate(ctx, "v1", []string{"10.1/x"})
	require.NoError(t, err)
	assert.Equal(t, StatusCached, status)
	assert.Equal(t, 0, completer.callCount())
}

func TestAggregateNoQualifyingPapersPersistsEmpty(t *testing.T) {
	completer := &scriptedCompleter{}
	e, s := newTestEngine(t, completer)
	ctx := context.Background()

	// One paper with no extraction, one extracted but not discussed.
	require.NoError(t, s.WriteJSON(ctx, store.ExtractionKey("v1", "10.1/b"), types.ExtractionResult{
		SchemaVersion: types.ExtractionSchemaVersion,
		PaperRef:      "10.1/b",
	}))

	status, err := e.Aggregate(ctx, "v1", []string{"10.1/a", "10.1/b"})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, status)
	assert.Equal(t, 0, completer.callCount())

	var result types.AggregateResult
	require.NoError(t, s.ReadJSON(ctx, store.AggregateKey("v1"), &result))
	assert.NotNil(t, result.Results)
	assert.Empty(t, result.Results)

	var xref types.PaperXref
	require.NoError(t, s.ReadJSON(ctx, store.AggregatePapersKey("v1"), &xref))
	assert.Empty(t, xref.Papers)

	exists, err := s.Exists(ctx, store.AggregateRawKey("v1"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAggregateOrdersPapersMostRecentFirst(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{validAggregate("Newer2021")}}
	e, s := newTestEngine(t, completer)
	ctx := context.Background()

	require.NoError(t, s.WriteBytes(ctx, store.VariantDetailsKey("v1"), []byte(`{}`)))
	seedQualifyingPaper(t, s, "v1", "10.1/old", "Older, Pat", "2019-01-01")
	seedQualifyingPaper(t, s, "v1", "10.1/new", "Newer, Sam", "2021-06-01")

	_, err := e.Aggregate(ctx, "v1", []string{"10.1/old", "10.1/new"})
	require.NoError(t, err)

	require.Equal(t, 1, completer.callCount())
	prompt := completer.calls[0][0].Content

	marker := strings.Index(prompt, "Evidence extractions")
	require.GreaterOrEqual(t, marker, 0)
	tail := prompt[marker:]
	start := strings.Index(tail, "[")
	end := strings.LastIndex(tail, "]")
	require.True(t, start >= 0 && end > start)

	var blocks []promptPaper
	require.NoError(t, json.Unmarshal([]byte(tail[start:end+1]), &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, "Newer2021", blocks[0].Paper)
	assert.Equal(t, "Older2019", blocks[1].Paper)
}

func TestAggregateRetriesOnInvalidCitation(t *testing.T) {
	invalid := `{"results": {"assessment": {"classification": "VUS",
		"classification_rationale": "r", "description": "d", "notes": "n",
		"citations": [{"paper": "Nobody1999", "box_id": 1, "commentary": "c"}]}}}`
	completer := &scriptedCompleter{responses: []string{invalid, validAggregate("Smith2020")}}
	e, s := newTestEngine(t, completer)
	ctx := context.Background()

	require.NoError(t, s.WriteBytes(ctx, store.VariantDetailsKey("v1"), []byte(`{}`)))
	seedQualifyingPaper(t, s, "v1", "10.1/x", "Smith, Jane", "2020-03-01")

	status, err := e.Aggregate(ctx, "v1", []string{"10.1/x"})
	require.NoError(t, err)
	assert.Equal(t, StatusAggregated, status)
	require.Equal(t, 2, completer.callCount())

	second := completer.calls[1]
	require.Len(t, second, 3)
	assert.Contains(t, second[2].Content, "Nobody1999")
}

func TestAggregateExhaustsAttempts(t *testing.T) {
	invalid := `{"results": {"assessment": {"classification": "VUS",
		"classification_rationale": "r", "description": "d", "notes": "n",
		"citations": [{"paper": "Smith2020", "box_id": 99, "commentary": "c"}]}}}`
	completer := &scriptedCompleter{responses: []string{invalid, invalid, invalid}}
	e, s := newTestEngine(t, completer)
	ctx := context.Background()

	require.NoError(t, s.WriteBytes(ctx, store.VariantDetailsKey("v1"), []byte(`{}`)))
	seedQualifyingPaper(t, s, "v1", "10.1/x", "Smith, Jane", "2020-03-01")

	_, err := e.Aggregate(ctx, "v1", []string{"10.1/x"})
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 3, completer.callCount())

	exists, err := s.Exists(ctx, store.AggregateKey("v1"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAggregateCollisionShortIDs(t *testing.T) {
	// Two Smith 2020 papers: letters assigned by durable id order, so the
	// model sees Smith2020a and Smith2020b.
	completer := &scriptedCompleter{responses: []string{validAggregate("Smith2020a")}}
	e, s := newTestEngine(t, completer)
	ctx := context.Background()

	require.NoError(t, s.WriteBytes(ctx, store.VariantDetailsKey("v1"), []byte(`{}`)))
	seedQualifyingPaper(t, s, "v1", "10.1/a", "Smith, Jane", "2020-03-01")
	seedQualifyingPaper(t, s, "v1", "10.1/b", "Smith, John", "2020-07-01")

	status, err := e.Aggregate(ctx, "v1", []string{"10.1/b", "10.1/a"})
	require.NoError(t, err)
	assert.Equal(t, StatusAggregated, status)

	var xref types.PaperXref
	require.NoError(t, s.ReadJSON(ctx, store.AggregatePapersKey("v1"), &xref))
	assert.Equal(t, "10.1/a", xref.Papers["Smith2020a"].DurableID)
	assert.Equal(t, "10.1/b", xref.Papers["Smith2020b"].DurableID)

	var result types.AggregateResult
	require.NoError(t, s.ReadJSON(ctx, store.AggregateKey("v1"), &result))
	c := result.Results["assessment"].Citations[0]
	assert.Equal(t, "10.1/a", c.DurableID)
}
