// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// anthropicAPIURL is the Claude API endpoint. Package-level var for test
// substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

const defaultTimeout = 10 * time.Minute

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	APIKey string
	Model  string

	// Timeout is the per-attempt HTTP timeout. Zero means 10 minutes;
	// extended-thinking calls routinely run for several minutes.
	Timeout time.Duration

	// Client overrides the HTTP client when set. Used by tests.
	Client *http.Client
}

// anthropicRequest is the request body for the Claude Messages API.
type anthropicRequest struct {
	Model     string                `json:"model"`
	MaxTokens int                   `json:"max_tokens"`
	System    string                `json:"system,omitempty"`
	Thinking  *anthropicThinking    `json:"thinking,omitempty"`
	Messages  []types.PromptMessage `json:"messages"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// anthropicResponse is the response body from the Claude Messages API.
type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

// anthropicContent is a content block in the Claude API response. Thinking
// blocks carry type "thinking" and are skipped when assembling the text.
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete implements Completer. HTTP 429 responses are retried with
// exponential backoff before the call is reported as failed.
func (a *Anthropic) Complete(ctx context.Context, messages []types.PromptMessage, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	reqBody := anthropicRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		System:    opts.System,
		Messages:  messages,
	}
	if opts.ThinkingBudget > 0 {
		reqBody.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: opts.ThinkingBudget}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := a.Client
	if client == nil {
		timeout := a.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var b strings.Builder
	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		b.WriteString(block.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return b.String(), nil
}
