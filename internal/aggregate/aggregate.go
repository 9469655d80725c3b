// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate synthesizes the per-paper extractions for a variant into
// one cross-paper assessment. Papers are presented to the model under short
// ids (LastNameYear), citations are validated against the union of every
// qualifying paper's boxes, and the persisted result carries citations
// enriched with durable ids and geometry.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/cite"
	"github.com/pdiddy/evidence-engine/internal/docbox"
	"github.com/pdiddy/evidence-engine/internal/identity"
	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultMaxAttempts    = 3
	defaultMaxTokens      = 60000
	defaultThinkingBudget = 20000
)

// ErrAttemptsExhausted is returned when the model still produces invalid
// citations after the configured number of correction attempts.
var ErrAttemptsExhausted = errors.New("citation correction attempts exhausted")

// Status reports what Aggregate did for a variant.
type Status string

const (
	// StatusAggregated means a new aggregate was produced and persisted.
	StatusAggregated Status = "aggregated"

	// StatusCached means a persisted aggregate already existed.
	StatusCached Status = "cached"

	// StatusEmpty means no paper qualified; an explicit empty result was
	// persisted without any model call.
	StatusEmpty Status = "empty"
)

// Engine aggregates evidence across papers for one variant.
type Engine struct {
	Store     store.Store
	Completer llm.Completer
	Shape     *llm.Shape
	Config    types.AggregationConfig
	Log       *zap.Logger
}

// paperEvidence is one qualifying paper's contribution to the prompt.
type paperEvidence struct {
	short    string
	ref      string
	metadata types.PaperMetadata
	evidence []types.EvidenceFinding
}

// promptPaper is the JSON block the model sees for one paper.
type promptPaper struct {
	Paper    string                  `json:"paper"`
	Title    string                  `json:"title"`
	Authors  string                  `json:"authors"`
	Date     string                  `json:"date"`
	Evidence []types.EvidenceFinding `json:"evidence"`
}

// Aggregate synthesizes the extractions for the given papers. It is
// idempotent: an existing aggregate result short-circuits with StatusCached.
// When no paper qualifies (extraction missing or variant not discussed) an
// empty result and empty cross-reference table are persisted explicitly and
// no model call is made.
func (e *Engine) Aggregate(ctx context.Context, variantID string, refs []string) (Status, error) {
	aggregateKey := store.AggregateKey(variantID)

	exists, err := e.Store.Exists(ctx, aggregateKey)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", aggregateKey, err)
	}
	if exists {
		e.Log.Info("already aggregated", zap.String("variant", variantID))
		return StatusCached, nil
	}

	papers, err := e.collectQualifying(ctx, variantID, refs)
	if err != nil {
		return "", err
	}

	if len(papers) == 0 {
		e.Log.Info("no papers discussed this variant, persisting empty aggregate",
			zap.String("variant", variantID))
		if err := e.persist(ctx, variantID, &types.AggregateResult{
			SchemaVersion: types.AggregateSchemaVersion,
			Results:       map[string]types.CategoryResult{},
		}, types.PaperXref{
			SchemaVersion: types.AggregateSchemaVersion,
			Papers:        map[string]types.PaperXrefEntry{},
		}, nil); err != nil {
			return "", err
		}
		return StatusEmpty, nil
	}

	variantDetails, err := e.Store.ReadBytes(ctx, store.VariantDetailsKey(variantID))
	if err != nil {
		return "", fmt.Errorf("reading variant details for %s: %w", variantID, err)
	}

	infos := make([]identity.PaperInfo, len(papers))
	for i, p := range papers {
		infos[i] = identity.PaperInfo{
			DurableID: p.ref,
			Authors:   p.metadata.Authors,
			Date:      p.metadata.Date,
		}
	}
	_, durableToShort := identity.Assign(infos)

	for i := range papers {
		papers[i].short = durableToShort[papers[i].ref]
	}

	// Most recent paper first; durable id breaks date ties deterministically.
	sort.Slice(papers, func(i, j int) bool {
		if papers[i].metadata.Date != papers[j].metadata.Date {
			return papers[i].metadata.Date > papers[j].metadata.Date
		}
		return papers[i].ref > papers[j].ref
	})

	index, err := e.unionIndex(ctx, papers)
	if err != nil {
		return "", err
	}

	prompt, err := e.buildPrompt(string(variantDetails), papers)
	if err != nil {
		return "", err
	}

	e.Log.Info("aggregating evidence",
		zap.String("variant", variantID),
		zap.Int("papers", len(papers)),
		zap.String("model", e.Config.Model))

	result, messages, err := e.runWithCorrection(ctx, variantID, prompt, index)
	if err != nil {
		return "", err
	}

	xref := types.PaperXref{
		SchemaVersion: types.AggregateSchemaVersion,
		Papers:        make(map[string]types.PaperXrefEntry, len(papers)),
	}
	for _, p := range papers {
		xref.Papers[p.short] = types.PaperXrefEntry{DurableID: p.ref, PMID: p.metadata.PMID}
	}

	result.SchemaVersion = types.AggregateSchemaVersion
	enrich(result, xref.Papers, index)

	transcript := &types.Transcript{
		SchemaVersion: types.AggregateSchemaVersion,
		Model:         e.Config.Model,
		Messages:      messages,
	}
	if err := e.persist(ctx, variantID, result, xref, transcript); err != nil {
		return "", err
	}

	e.Log.Info("aggregated",
		zap.String("variant", variantID),
		zap.Int("categories", len(result.Results)))

	return StatusAggregated, nil
}

// collectQualifying loads the extraction and metadata of every paper whose
// extraction exists and discusses the variant.
func (e *Engine) collectQualifying(ctx context.Context, variantID string, refs []string) ([]paperEvidence, error) {
	var papers []paperEvidence

	for _, ref := range refs {
		var extraction types.ExtractionResult
		err := e.Store.ReadJSON(ctx, store.ExtractionKey(variantID, ref), &extraction)
		if err != nil {
			if errors.Is(err, store.ErrNotExist) {
				e.Log.Info("skipping paper: no extraction", zap.String("paper", ref))
				continue
			}
			return nil, fmt.Errorf("reading extraction for %s: %w", ref, err)
		}
		if !extraction.VariantDiscussed {
			e.Log.Info("skipping paper: variant not discussed", zap.String("paper", ref))
			continue
		}

		var metadata types.PaperMetadata
		if err := e.Store.ReadJSON(ctx, store.MetadataKey(ref), &metadata); err != nil {
			if !errors.Is(err, store.ErrNotExist) {
				return nil, fmt.Errorf("reading metadata for %s: %w", ref, err)
			}
			// Missing metadata degrades the short id to UnknownUnknown
			// rather than dropping the paper's evidence.
			e.Log.Warn("metadata not available", zap.String("paper", ref))
		}

		papers = append(papers, paperEvidence{
			ref:      ref,
			metadata: metadata,
			evidence: extraction.Evidence,
		})
	}

	return papers, nil
}

// unionIndex loads each qualifying paper's bbox mapping, keyed by short id to
// match what the model cites.
func (e *Engine) unionIndex(ctx context.Context, papers []paperEvidence) (map[string]types.BboxMapping, error) {
	index := make(map[string]types.BboxMapping, len(papers))

	for _, p := range papers {
		docBytes, err := e.Store.ReadBytes(ctx, store.DocumentKey(p.ref))
		if err != nil {
			return nil, fmt.Errorf("reading document for %s: %w", p.ref, err)
		}
		doc, err := docbox.ParseDocument(docBytes)
		if err != nil {
			return nil, fmt.Errorf("parsing document for %s: %w", p.ref, err)
		}
		index[p.short] = docbox.MappingOnly(doc)
	}

	return index, nil
}

func (e *Engine) buildPrompt(variantDetails string, papers []paperEvidence) (string, error) {
	blocks := make([]promptPaper, len(papers))
	for i, p := range papers {
		blocks[i] = promptPaper{
			Paper:    p.short,
			Title:    p.metadata.Title,
			Authors:  p.metadata.Authors,
			Date:     p.metadata.Date,
			Evidence: p.evidence,
		}
	}

	extractionsJSON, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling evidence extractions: %w", err)
	}

	return e.Shape.AggregationPrompt(llm.AggregationPromptData{
		VariantDetails:      variantDetails,
		EvidenceExtractions: string(extractionsJSON),
	})
}

// runWithCorrection drives the bounded correction loop against the union
// citation index.
func (e *Engine) runWithCorrection(
	ctx context.Context,
	variantID, prompt string,
	index map[string]types.BboxMapping,
) (*types.AggregateResult, []types.PromptMessage, error) {
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
			return nil, nil, fmt.Errorf("aggregation call for %s: %w", variantID, err)
		}
		messages = append(messages, types.PromptMessage{Role: "assistant", Content: completion})

		var result types.AggregateResult
		if err := llm.DecodeJSON(completion, &result); err != nil {
			e.Log.Warn("malformed aggregate result",
				zap.String("variant", variantID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			messages = append(messages, types.PromptMessage{
				Role:    "user",
				Content: fmt.Sprintf("Your response could not be parsed: %v. Respond with only the JSON object described earlier.", err),
			})
			continue
		}

		violations := cite.Validate(citationRefs(&result), index)
		if len(violations) == 0 {
			return &result, messages, nil
		}

		e.Log.Warn("invalid citations in aggregate result",
			zap.String("variant", variantID),
			zap.Int("attempt", attempt),
			zap.Strings("violations", violations))
		messages = append(messages, types.PromptMessage{
			Role: "user",
			Content: "Invalid citations not found in the evidence: " + strings.Join(violations, ", ") +
				". Cite only (paper, box_id) pairs that appear in the evidence extractions. " +
				"Correct these citations and respond again with only the JSON object.",
		})
	}

	return nil, nil, fmt.Errorf("aggregating %s after %d attempts: %w", variantID, maxAttempts, ErrAttemptsExhausted)
}

// citationRefs flattens every category's citations for validation. Category
// iteration order does not matter; violations are reported by identifier.
func citationRefs(result *types.AggregateResult) []cite.Ref {
	var refs []cite.Ref
	for _, cat := range result.Results {
		for _, c := range cat.Citations {
			refs = append(refs, cite.Ref{Paper: c.Paper, BoxID: c.BoxID})
		}
	}
	return refs
}

// enrich attaches durable ids, PMIDs, and geometry to every citation so
// downstream consumers never re-derive them. Runs only after validation, so
// every lookup hits.
func enrich(result *types.AggregateResult, xref map[string]types.PaperXrefEntry, index map[string]types.BboxMapping) {
	for name, cat := range result.Results {
		for i := range cat.Citations {
			c := &cat.Citations[i]
			entry := xref[c.Paper]
			c.DurableID = entry.DurableID
			c.PMID = entry.PMID
			if rec, ok := index[c.Paper][c.BoxID]; ok {
				bbox := rec.Bbox
				c.Page = rec.Page
				c.Bbox = &bbox
				c.CoordOrigin = rec.CoordOrigin
			}
		}
		result.Results[name] = cat
	}
}

// persist writes the aggregate artifacts. The transcript is nil for the
// empty-result path.
func (e *Engine) persist(ctx context.Context, variantID string, result *types.AggregateResult, xref types.PaperXref, transcript *types.Transcript) error {
	if err := e.Store.WriteJSON(ctx, store.AggregatePapersKey(variantID), xref); err != nil {
		return fmt.Errorf("writing paper xref for %s: %w", variantID, err)
	}
	if transcript != nil {
		if err := e.Store.WriteJSON(ctx, store.AggregateRawKey(variantID), transcript); err != nil {
			return fmt.Errorf("writing transcript for %s: %w", variantID, err)
		}
	}
	// The aggregate result is written last: its presence marks the stage
	// complete, so the companion artifacts must already be in place.
	if err := e.Store.WriteJSON(ctx, store.AggregateKey(variantID), result); err != nil {
		return fmt.Errorf("writing aggregate for %s: %w", variantID, err)
	}
	return nil
}
