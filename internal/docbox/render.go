// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docbox renders a parsed structured document to markdown with inline
// bounding-box markers and builds the box-id to geometry mapping that
// citation validation and PDF annotation run against.
package docbox

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Labels of text items that are page furniture rather than content.
const (
	labelPageHeader = "page_header"
	labelPageFooter = "page_footer"
)

// commentRe strips embedded HTML comments (e.g. the bare "<!-- image -->"
// placeholder) before deciding whether an element has meaningful content.
var commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// ParseDocument decodes a stored document artifact.
func ParseDocument(data []byte) (*types.Document, error) {
	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &doc, nil
}

// Render walks the document body in reading order and returns the markdown
// rendering plus the bbox mapping. Each element that has positional
// provenance and content that survives comment stripping is wrapped in a
// <b id=N> marker and recorded in the mapping; everything else is emitted
// unwrapped (or dropped when empty) and consumes no box id.
//
// Render is pure for a fixed document snapshot: the same document always
// yields the same text and the same mapping.
func Render(doc *types.Document) (string, types.BboxMapping) {
	r := &renderer{
		doc:     doc,
		mapping: types.BboxMapping{},
		nextID:  1,
	}

	var parts []string
	for _, ref := range doc.Body.Children {
		for _, piece := range r.renderRef(ref.Ref) {
			if piece != "" {
				parts = append(parts, piece)
			}
		}
	}

	return strings.Join(parts, "\n\n"), r.mapping
}

// MappingOnly renders the document and discards the text. Used by stages that
// need geometry lookups without the prompt payload.
func MappingOnly(doc *types.Document) types.BboxMapping {
	_, mapping := Render(doc)
	return mapping
}

type renderer struct {
	doc     *types.Document
	mapping types.BboxMapping
	nextID  int
}

// renderRef resolves an intra-document reference and renders the element it
// points at. Groups expand to their children in place; unknown or dangling
// refs render as nothing.
func (r *renderer) renderRef(ref string) []string {
	kind, idx, ok := splitRef(ref)
	if !ok {
		return nil
	}

	switch kind {
	case "texts":
		if idx >= len(r.doc.Texts) {
			return nil
		}
		return []string{r.renderText(&r.doc.Texts[idx])}
	case "tables":
		if idx >= len(r.doc.Tables) {
			return nil
		}
		return []string{r.renderTable(&r.doc.Tables[idx])}
	case "pictures":
		if idx >= len(r.doc.Pictures) {
			return nil
		}
		return []string{r.renderPicture(&r.doc.Pictures[idx])}
	case "groups":
		if idx >= len(r.doc.Groups) {
			return nil
		}
		var parts []string
		for _, child := range r.doc.Groups[idx].Children {
			parts = append(parts, r.renderRef(child.Ref)...)
		}
		return parts
	default:
		return nil
	}
}

func (r *renderer) renderText(item *types.TextItem) string {
	if item.Label == labelPageHeader || item.Label == labelPageFooter {
		return ""
	}
	return r.wrap(item.Prov, textMarkdown(item))
}

func (r *renderer) renderTable(item *types.TableItem) string {
	return r.wrap(item.Prov, tableMarkdown(&item.Data))
}

// renderPicture emits the figure's caption (if any) above an image
// placeholder comment. A caption-less picture reduces to the bare comment,
// which the content check strips, so it receives no box id.
func (r *renderer) renderPicture(item *types.PictureItem) string {
	var captions []string
	for _, ref := range item.Captions {
		kind, idx, ok := splitRef(ref.Ref)
		if !ok || kind != "texts" || idx >= len(r.doc.Texts) {
			continue
		}
		if text := strings.TrimSpace(r.doc.Texts[idx].Text); text != "" {
			captions = append(captions, text)
		}
	}

	text := "<!-- image -->"
	if len(captions) > 0 {
		text = strings.Join(captions, " ") + "\n\n" + text
	}
	return r.wrap(item.Prov, text)
}

// wrap allocates a box id for the element and wraps its rendering when the
// element has provenance and content. The counter is shared across all
// element kinds so the id space stays dense over the whole traversal.
func (r *renderer) wrap(prov []types.Provenance, text string) string {
	if text == "" {
		return ""
	}

	if strings.TrimSpace(commentRe.ReplaceAllString(text, "")) == "" {
		return ""
	}

	if len(prov) == 0 {
		return text
	}

	p := prov[0]
	id := r.nextID
	r.nextID++

	r.mapping[id] = types.BboxRecord{
		Page: p.PageNo,
		Bbox: types.Rect{
			L: p.Bbox.L,
			T: p.Bbox.T,
			R: p.Bbox.R,
			B: p.Bbox.B,
		},
		CoordOrigin: p.Bbox.CoordOrigin,
	}

	return fmt.Sprintf("<b id=%d>%s</b>", id, text)
}

// textMarkdown renders a text item according to its label.
func textMarkdown(item *types.TextItem) string {
	text := item.Text
	if strings.TrimSpace(text) == "" {
		return ""
	}

	switch item.Label {
	case "title":
		return "# " + text
	case "section_header":
		level := item.Level
		if level < 1 {
			level = 1
		}
		return strings.Repeat("#", level+1) + " " + text
	case "list_item":
		return "- " + text
	case "code":
		return "```\n" + text + "\n```"
	case "formula":
		return "$$" + text + "$$"
	default:
		return text
	}
}

// tableMarkdown renders a cell grid as a markdown table, treating the first
// row as the header.
func tableMarkdown(data *types.TableData) string {
	if len(data.Grid) == 0 {
		return ""
	}

	var b strings.Builder
	for i, row := range data.Grid {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(cell.Text, "|", `\|`))
			b.WriteString(" |")
		}
		b.WriteString("\n")

		if i == 0 {
			b.WriteString("|")
			for range row {
				b.WriteString("---|")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitRef decomposes a reference like "#/texts/3" into its array name and
// index.
func splitRef(ref string) (kind string, idx int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(ref, "#/"), "/")
	if len(parts) != 2 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return parts[0], idx, true
}
