// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotate

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// highlight renders one highlight annotation. The quad points cover the
// bounding box as a single quadrilateral: top edge first, then bottom, per
// the PDF spec's ordering for text markup annotations.
type highlight struct {
	x1, y1, x2, y2 float64
	r, g, b        float64
	content        string
	title          string
	name           string
}

var _ model.AnnotationRenderer = (*highlight)(nil)

func (h *highlight) RenderDict(_ *model.XRefTable, pageIndRef pdftypes.IndirectRef) (pdftypes.Dict, error) {
	quad := pdftypes.NewNumberArray(
		h.x1, h.y2, h.x2, h.y2,
		h.x1, h.y1, h.x2, h.y1,
	)

	d := pdftypes.Dict(map[string]pdftypes.Object{
		"Type":       pdftypes.Name("Annot"),
		"Subtype":    pdftypes.Name("Highlight"),
		"Rect":       pdftypes.NewNumberArray(h.x1, h.y1, h.x2, h.y2),
		"P":          pageIndRef,
		"Contents":   pdftypes.StringLiteral(h.content),
		"NM":         pdftypes.StringLiteral(h.name),
		"T":          pdftypes.StringLiteral(h.title),
		"F":          pdftypes.Integer(4), // bit 3: print
		"C":          pdftypes.NewNumberArray(h.r, h.g, h.b),
		"QuadPoints": quad,
	})
	return d, nil
}

func (h *highlight) Type() model.AnnotationType {
	return model.AnnHighLight
}

func (h *highlight) RectString() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", h.x1, h.y1, h.x2, h.y2)
}

func (h *highlight) ID() string {
	return h.name
}

func (h *highlight) ContentString() string {
	return h.content
}
