// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotate produces highlighted PDFs from aggregate citations. Each
// citation becomes a highlight annotation on the cited bounding box, with the
// citation's commentary as the note text.
package annotate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const defaultHighlightColor = "ffeb3b"

// Summary holds per-paper counts from an annotation run.
type Summary struct {
	Annotated int
	Failed    int
}

// Engine writes annotated PDFs for a variant's aggregate citations.
type Engine struct {
	Store  store.Store
	Config types.AnnotationConfig
	Log    *zap.Logger
}

// categorizedCitation is one enriched citation plus the category it came from.
type categorizedCitation struct {
	types.AggregateCitation
	Category string
}

// Annotate reads the aggregate result for variantID and writes one annotated
// PDF per cited paper. A paper whose source PDF is missing or unreadable is
// counted as failed without stopping the rest. A paper whose citations all
// point past its last page produces no output and is not counted as failed.
// An aggregate with no citations is a no-op.
func (e *Engine) Annotate(ctx context.Context, variantID string) (Summary, error) {
	var aggregate types.AggregateResult
	if err := e.Store.ReadJSON(ctx, store.AggregateKey(variantID), &aggregate); err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return Summary{}, fmt.Errorf("no aggregate result for variant %s: %w", variantID, err)
		}
		return Summary{}, fmt.Errorf("reading aggregate for %s: %w", variantID, err)
	}

	byPaper := groupCitations(&aggregate)
	if len(byPaper) == 0 {
		e.Log.Info("no citations to annotate", zap.String("variant", variantID))
		return Summary{}, nil
	}

	// Deterministic paper order for logging and failure attribution.
	refs := make([]string, 0, len(byPaper))
	for ref := range byPaper {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	var summary Summary
	for _, ref := range refs {
		wrote, err := e.annotatePaper(ctx, variantID, ref, byPaper[ref])
		if err != nil {
			e.Log.Warn("annotation failed",
				zap.String("paper", ref),
				zap.Error(err))
			summary.Failed++
			continue
		}
		if !wrote {
			e.Log.Info("no placeable citations, skipping", zap.String("paper", ref))
			continue
		}
		summary.Annotated++
	}

	e.Log.Info("annotation run complete",
		zap.String("variant", variantID),
		zap.Int("annotated", summary.Annotated),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// groupCitations flattens the aggregate's categories and groups citations by
// the durable id attached at enrichment. Citations without geometry are
// dropped; they cannot be placed on a page.
func groupCitations(aggregate *types.AggregateResult) map[string][]categorizedCitation {
	byPaper := make(map[string][]categorizedCitation)

	for category, cat := range aggregate.Results {
		for _, c := range cat.Citations {
			if c.DurableID == "" || c.Bbox == nil || c.Page <= 0 {
				continue
			}
			byPaper[c.DurableID] = append(byPaper[c.DurableID], categorizedCitation{
				AggregateCitation: c,
				Category:          category,
			})
		}
	}

	return byPaper
}

// annotatePaper reads one source PDF, applies every citation's highlight, and
// writes the annotated copy. It returns false without writing when no
// citation lands on an existing page.
func (e *Engine) annotatePaper(ctx context.Context, variantID, ref string, citations []categorizedCitation) (bool, error) {
	pdfBytes, err := e.Store.ReadBytes(ctx, store.SourceKey(ref))
	if err != nil {
		return false, fmt.Errorf("reading source PDF: %w", err)
	}

	heights, err := pageHeights(pdfBytes)
	if err != nil {
		return false, fmt.Errorf("reading page geometry: %w", err)
	}

	color := e.Config.HighlightColor
	if color == "" {
		color = defaultHighlightColor
	}
	r, g, b, err := parseHexColor(color)
	if err != nil {
		return false, err
	}

	label := variantID + " - Variant Evidence"
	byPage := make(map[int][]model.AnnotationRenderer)
	total := 0

	for _, c := range citations {
		if c.Page > len(heights) {
			e.Log.Warn("citation page out of range",
				zap.String("paper", ref),
				zap.Int("page", c.Page),
				zap.Int("box_id", c.BoxID))
			continue
		}

		x1, y1, x2, y2 := toPDFCoordinates(*c.Bbox, heights[c.Page-1], c.CoordOrigin)

		content := c.Commentary
		if c.Category != "" {
			content = fmt.Sprintf("[%s] %s", c.Category, c.Commentary)
		}

		byPage[c.Page] = append(byPage[c.Page], &highlight{
			x1: x1, y1: y1, x2: x2, y2: y2,
			r: r, g: g, b: b,
			content: content,
			title:   label,
			name:    fmt.Sprintf("citation_%d", c.BoxID),
		})
		total++
	}

	if total == 0 {
		return false, nil
	}

	var out bytes.Buffer
	if err := api.AddAnnotationsMap(bytes.NewReader(pdfBytes), &out, byPage, nil); err != nil {
		return false, fmt.Errorf("adding annotations: %w", err)
	}

	if err := e.Store.WriteBytes(ctx, store.AnnotatedKey(variantID, ref), out.Bytes()); err != nil {
		return false, fmt.Errorf("writing annotated PDF: %w", err)
	}

	e.Log.Info("created annotated PDF",
		zap.String("paper", ref),
		zap.Int("highlights", total))

	return true, nil
}

// pageDims is a package-level hook so tests can supply page geometry without
// a real PDF fixture.
var pageDims = api.PageDims

// pageHeights returns the media-box height of every page, in order.
func pageHeights(pdfBytes []byte) ([]float64, error) {
	dims, err := pageDims(bytes.NewReader(pdfBytes), nil)
	if err != nil {
		return nil, err
	}
	heights := make([]float64, len(dims))
	for i, d := range dims {
		heights[i] = d.Height
	}
	return heights, nil
}

// toPDFCoordinates converts a bbox to PDF bottom-left-origin coordinates.
// Top-left-origin boxes flip their y values against the page height; the pair
// is then ordered so y1 is the lower edge.
func toPDFCoordinates(bbox types.Rect, pageHeight float64, coordOrigin string) (x1, y1, x2, y2 float64) {
	x1, x2 = bbox.L, bbox.R

	yTop, yBottom := bbox.T, bbox.B
	if coordOrigin == types.OriginTopLeft {
		yTop = pageHeight - bbox.T
		yBottom = pageHeight - bbox.B
	}

	y1, y2 = yBottom, yTop
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return x1, y1, x2, y2
}

// parseHexColor parses an RRGGBB hex string into 0..1 components.
func parseHexColor(s string) (r, g, b float64, err error) {
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid highlight color %q: want RRGGBB", s)
	}
	var ri, gi, bi int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &ri, &gi, &bi); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid highlight color %q: %w", s, err)
	}
	return float64(ri) / 255, float64(gi) / 255, float64(bi) / 255, nil
}
