// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare object", `{"a": 1}`},
		{"markdown fence", "```json\n{\"a\": 1}\n```"},
		{"surrounding prose", "Here is the result:\n{\"a\": 1}\nLet me know if you need more."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v map[string]int
			require.NoError(t, DecodeJSON(tt.raw, &v))
			assert.Equal(t, map[string]int{"a": 1}, v)
		})
	}
}

func TestDecodeJSONNoObject(t *testing.T) {
	var v map[string]int
	assert.Error(t, DecodeJSON("no json here", &v))
	assert.Error(t, DecodeJSON("", &v))
}

func TestAnthropicComplete(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{
			{Type: "thinking", Text: "hmm"},
			{Type: "text", Text: `{"ok": `},
			{Type: "text", Text: `true}`},
		}})
	}))
	defer srv.Close()

	origURL := anthropicAPIURL
	anthropicAPIURL = srv.URL
	defer func() { anthropicAPIURL = origURL }()

	a := &Anthropic{APIKey: "test-key", Model: "claude-sonnet-4-5", Client: srv.Client()}
	text, err := a.Complete(context.Background(), []types.PromptMessage{
		{Role: "user", Content: "hello"},
	}, Options{System: "sys", MaxTokens: 1000, ThinkingBudget: 500})

	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)

	assert.Equal(t, "claude-sonnet-4-5", gotReq.Model)
	assert.Equal(t, "sys", gotReq.System)
	assert.Equal(t, 1000, gotReq.MaxTokens)
	require.NotNil(t, gotReq.Thinking)
	assert.Equal(t, "enabled", gotReq.Thinking.Type)
	assert.Equal(t, 500, gotReq.Thinking.BudgetTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicCompleteOmitsThinkingWhenZero(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{
			{Type: "text", Text: "ok"},
		}})
	}))
	defer srv.Close()

	origURL := anthropicAPIURL
	anthropicAPIURL = srv.URL
	defer func() { anthropicAPIURL = origURL }()

	a := &Anthropic{APIKey: "k", Model: "m", Client: srv.Client()}
	_, err := a.Complete(context.Background(), []types.PromptMessage{{Role: "user", Content: "x"}}, Options{})

	require.NoError(t, err)
	assert.Nil(t, gotReq.Thinking)
}

func TestAnthropicCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	origURL := anthropicAPIURL
	anthropicAPIURL = srv.URL
	defer func() { anthropicAPIURL = origURL }()

	a := &Anthropic{APIKey: "k", Model: "m", Client: srv.Client()}
	_, err := a.Complete(context.Background(), []types.PromptMessage{{Role: "user", Content: "x"}}, Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGetShape(t *testing.T) {
	s, err := GetShape("generic")
	require.NoError(t, err)
	assert.Equal(t, []string{"assessment"}, s.Categories)

	s, err = GetShape("")
	require.NoError(t, err)
	assert.Equal(t, "generic", s.Name)

	s, err = GetShape("acmg-criteria")
	require.NoError(t, err)
	assert.Len(t, s.Categories, 4)

	_, err = GetShape("nope")
	assert.Error(t, err)
}

func TestShapeNames(t *testing.T) {
	assert.Equal(t, []string{"acmg-criteria", "generic"}, ShapeNames())
}

func TestExtractionPromptInterpolation(t *testing.T) {
	s, err := GetShape("generic")
	require.NoError(t, err)

	prompt, err := s.ExtractionPrompt(ExtractionPromptData{
		VariantDetails: `{"gene": "BRCA1"}`,
		PaperRef:       "10.1/x",
		FullText:       `<b id=1>The variant was observed.</b>`,
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, `{"gene": "BRCA1"}`)
	assert.Contains(t, prompt, "10.1/x")
	assert.Contains(t, prompt, "<b id=1>The variant was observed.</b>")
	assert.Contains(t, prompt, "variant_discussed")
}

func TestAggregationPromptInterpolation(t *testing.T) {
	for _, name := range ShapeNames() {
		t.Run(name, func(t *testing.T) {
			s, err := GetShape(name)
			require.NoError(t, err)

			prompt, err := s.AggregationPrompt(AggregationPromptData{
				VariantDetails:      `{"gene": "BRCA1"}`,
				EvidenceExtractions: `[{"paper": "Smith2020"}]`,
			})
			require.NoError(t, err)

			assert.Contains(t, prompt, `{"gene": "BRCA1"}`)
			assert.Contains(t, prompt, `[{"paper": "Smith2020"}]`)
			for _, cat := range s.Categories {
				assert.Contains(t, prompt, cat)
			}
		})
	}
}
