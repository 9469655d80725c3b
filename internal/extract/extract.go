// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs per-paper evidence extraction: render the parsed
// document with bbox id markers, prompt the model for structured findings,
// validate every citation against the document's boxes, and persist the
// result and the full transcript.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-engine/internal/docbox"
	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultMaxAttempts    = 3
	defaultMaxTokens      = 30000
	defaultThinkingBudget = 10000
	defaultMaxPaperChars  = 240000
	defaultConcurrency    = 4
)

// truncationNote is appended when a rendered paper exceeds the character cap.
const truncationNote = "\n\n[NOTE: This paper was truncated due to length.]"

// ErrAttemptsExhausted is returned when the model still produces invalid
// citations after the configured number of correction attempts.
var ErrAttemptsExhausted = errors.New("citation correction attempts exhausted")

// Status reports what Extract did for one (variant, paper) pair.
type Status string

const (
	// StatusExtracted means a new extraction was produced and persisted.
	StatusExtracted Status = "extracted"

	// StatusCached means a persisted extraction already existed; no model
	// call was made.
	StatusCached Status = "cached"

	// StatusSkipped means the paper has no parsed document in storage; no
	// model call was made and nothing was persisted.
	StatusSkipped Status = "skipped"
)

// Engine extracts evidence for one variant from individual papers.
type Engine struct {
	Store     store.Store
	Completer llm.Completer
	Shape     *llm.Shape
	Config    types.ExtractionConfig
	Log       *zap.Logger
}

// Extract processes one paper for one variant. It is idempotent: if the
// extraction result already exists it is loaded and returned with
// StatusCached, without touching the model. A paper with no parsed document
// returns StatusSkipped and a nil result.
func (e *Engine) Extract(ctx context.Context, variantID, ref string) (*types.ExtractionResult, Status, error) {
	extractionKey := store.ExtractionKey(variantID, ref)

	exists, err := e.Store.Exists(ctx, extractionKey)
	if err != nil {
		return nil, "", fmt.Errorf("checking %s: %w", extractionKey, err)
	}
	if exists {
		var cached types.ExtractionResult
		if err := e.Store.ReadJSON(ctx, extractionKey, &cached); err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", extractionKey, err)
		}
		e.Log.Info("already extracted", zap.String("paper", ref))
		return &cached, StatusCached, nil
	}

	docBytes, err := e.Store.ReadBytes(ctx, store.DocumentKey(ref))
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			e.Log.Info("skipping paper: document not available", zap.String("paper", ref))
			return nil, StatusSkipped, nil
		}
		return nil, "", fmt.Errorf("reading document for %s: %w", ref, err)
	}

	doc, err := docbox.ParseDocument(docBytes)
	if err != nil {
		return nil, "", fmt.Errorf("parsing document for %s: %w", ref, err)
	}

	variantDetails, err := e.Store.ReadBytes(ctx, store.VariantDetailsKey(variantID))
	if err != nil {
		return nil, "", fmt.Errorf("reading variant details for %s: %w", variantID, err)
	}

	fullText, mapping := docbox.Render(doc)
	fullText = e.truncate(fullText, ref)

	prompt, err := e.Shape.ExtractionPrompt(llm.ExtractionPromptData{
		VariantDetails: string(variantDetails),
		PaperRef:       ref,
		FullText:       fullText,
	})
	if err != nil {
		return nil, "", err
	}

	e.Log.Info("extracting evidence",
		zap.String("paper", ref),
		zap.String("model", e.Config.Model),
		zap.Int("boxes", len(mapping)))

	result, messages, err := e.runWithCorrection(ctx, prompt, ref, mapping)
	if err != nil {
		return nil, "", err
	}

	result.SchemaVersion = types.ExtractionSchemaVersion
	result.PaperRef = ref

	if err := e.Store.WriteJSON(ctx, extractionKey, result); err != nil {
		return nil, "", fmt.Errorf("writing extraction for %s: %w", ref, err)
	}

	transcript := types.Transcript{
		SchemaVersion: types.ExtractionSchemaVersion,
		Model:         e.Config.Model,
		Messages:      messages,
	}
	if err := e.Store.WriteJSON(ctx, store.ExtractionRawKey(variantID, ref), transcript); err != nil {
		return nil, "", fmt.Errorf("writing transcript for %s: %w", ref, err)
	}

	e.Log.Info("extracted",
		zap.String("paper", ref),
		zap.Bool("variant_discussed", result.VariantDiscussed),
		zap.Int("findings", len(result.Evidence)))

	return result, StatusExtracted, nil
}

// runWithCorrection drives the bounded correction loop: call the model, check
// the structured result, and on violation feed the assistant's own output
// back with a corrective instruction. The returned messages hold the full
// conversation including the final valid assistant turn.
func (e *Engine) runWithCorrection(
	ctx context.Context,
	prompt, ref string,
	mapping types.BboxMapping,
) (*types.ExtractionResult, []types.PromptMessage, error) {
	maxAttempts := e.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	opts := llm.Options{
		MaxTokens:      e.Config.MaxTokens,
		ThinkingBudget: e.Config.ThinkingBudget,
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.ThinkingBudget == 0 {
		opts.ThinkingBudget = defaultThinkingBudget
	}

	messages := []types.PromptMessage{{Role: "user", Content: prompt}}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		completion, err := e.Completer.Complete(ctx, messages, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("extraction call for %s: %w", ref, err)
		}
		messages = append(messages, types.PromptMessage{Role: "assistant", Content: completion})

		var result types.ExtractionResult
		if err := llm.DecodeJSON(completion, &result); err != nil {
			e.Log.Warn("malformed extraction result",
				zap.String("paper", ref),
				zap.Int("attempt", attempt),
				zap.Error(err))
			messages = append(messages, types.PromptMessage{
				Role:    "user",
				Content: fmt.Sprintf("Your response could not be parsed: %v. Respond with only the JSON object described earlier.", err),
			})
			continue
		}

		violations := resultViolations(&result, ref, mapping)
		if len(violations) == 0 {
			return &result, messages, nil
		}

		e.Log.Warn("invalid citations in extraction result",
			zap.String("paper", ref),
			zap.Int("attempt", attempt),
			zap.Strings("violations", violations))
		messages = append(messages, types.PromptMessage{
			Role:    "user",
			Content: correctionMessage(violations),
		})
	}

	return nil, nil, fmt.Errorf("extracting %s after %d attempts: %w", ref, maxAttempts, ErrAttemptsExhausted)
}

// truncate caps the rendered paper text, appending a note so the model knows
// the tail is missing.
func (e *Engine) truncate(fullText, ref string) string {
	maxChars := e.Config.MaxPaperChars
	if maxChars <= 0 {
		maxChars = defaultMaxPaperChars
	}
	if len(fullText) <= maxChars {
		return fullText
	}

	e.Log.Warn("paper exceeds length cap, truncating",
		zap.String("paper", ref),
		zap.Int("chars", len(fullText)),
		zap.Int("max_chars", maxChars))

	// A cap smaller than the note leaves no room for text; keep just the note.
	cut := maxChars - len(truncationNote)
	if cut < 0 {
		cut = 0
	}
	return fullText[:cut] + truncationNote
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Cached    int
	Skipped   int
	Failed    int
}

// Total returns the number of papers processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Cached + s.Skipped + s.Failed
}

// HasFailures reports whether any papers failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ExtractAll processes every paper for a variant with bounded concurrency.
// One paper failing does not stop the rest; failures are counted and the
// summary reports them. Progress lines go to w as papers complete.
func (e *Engine) ExtractAll(ctx context.Context, variantID string, refs []string, w io.Writer) (BatchSummary, error) {
	concurrency := e.Config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var (
		mu      sync.Mutex
		summary BatchSummary
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			_, status, err := e.Extract(ctx, variantID, ref)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				fmt.Fprintf(w, "failed    %s: %v\n", ref, err)
				summary.Failed++
			case status == StatusCached:
				fmt.Fprintf(w, "cached    %s\n", ref)
				summary.Cached++
			case status == StatusSkipped:
				fmt.Fprintf(w, "skipped   %s\n", ref)
				summary.Skipped++
			default:
				fmt.Fprintf(w, "extracted %s\n", ref)
				summary.Extracted++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

// correctionMessage formats violation descriptions into the corrective user
// turn fed back to the model.
func correctionMessage(violations []string) string {
	return "Invalid citations not found in the document: " + strings.Join(violations, ", ") +
		". Every box_id must be an id that appears as a <b id=N> marker in the paper text. " +
		"Correct these citations and respond again with only the JSON object."
}
