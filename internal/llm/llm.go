// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the completion capability used by the extraction and
// aggregation stages, plus the registry of result shapes (prompt sets and
// their JSON output contracts).
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Options holds per-call settings for a completion request.
type Options struct {
	// System is the system prompt, empty for none.
	System string

	// MaxTokens is the completion token budget.
	MaxTokens int

	// ThinkingBudget enables extended thinking with the given token budget
	// when positive. Passed through to the provider opaquely.
	ThinkingBudget int
}

// Completer produces one completion for a conversation. Implementations must
// be safe for concurrent use; the batch extraction path calls Complete from
// multiple goroutines.
type Completer interface {
	Complete(ctx context.Context, messages []types.PromptMessage, opts Options) (string, error)
}

// DecodeJSON unmarshals a model completion into v. Models occasionally wrap
// the JSON object in markdown fences or surrounding prose, so the text is
// first trimmed to the outermost brace pair.
func DecodeJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return fmt.Errorf("completion contains no JSON object")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("parsing completion JSON: %w", err)
	}
	return nil
}
