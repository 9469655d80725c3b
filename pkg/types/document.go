// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine
// pipeline: the parsed document model consumed by the bbox index, the
// structured evidence shapes produced by the completion capability, and the
// stage configurations.
package types

// Coordinate origins as recorded by the upstream document parser. Absence
// implies bottom-left origin (native PDF space).
const (
	OriginBottomLeft = "BOTTOMLEFT"
	OriginTopLeft    = "TOPLEFT"
)

// Rect is a rectangle in page coordinates.
type Rect struct {
	L float64 `json:"l"`
	T float64 `json:"t"`
	R float64 `json:"r"`
	B float64 `json:"b"`
}

// BboxRecord locates one content-bearing document element on a page.
type BboxRecord struct {
	// Page is the 1-based page number.
	Page int `json:"page"`

	// Bbox is the element's rectangle on that page.
	Bbox Rect `json:"bbox"`

	// CoordOrigin records whether vertical coordinates grow downward from
	// the page top (TOPLEFT) or upward from the page bottom. Empty means
	// bottom-left.
	CoordOrigin string `json:"coord_origin,omitempty"`
}

// BboxMapping maps a box id to its location. One mapping per paper, rebuilt
// on demand from the stored document; never mutated after creation.
type BboxMapping map[int]BboxRecord

// Provenance ties a document element to a page position.
type Provenance struct {
	PageNo int      `json:"page_no"`
	Bbox   ProvBbox `json:"bbox"`
}

// ProvBbox is the rectangle recorded by the upstream parser, including its
// coordinate origin.
type ProvBbox struct {
	L           float64 `json:"l"`
	T           float64 `json:"t"`
	R           float64 `json:"r"`
	B           float64 `json:"b"`
	CoordOrigin string  `json:"coord_origin,omitempty"`
}

// Ref is an intra-document JSON reference like "#/texts/0".
type Ref struct {
	Ref string `json:"$ref"`
}

// BodyNode is the document body: an ordered list of references into the
// texts, tables, pictures, and groups arrays. The order of Children is the
// reading order and the explicit ordering contract for box-id allocation.
type BodyNode struct {
	SelfRef  string `json:"self_ref,omitempty"`
	Children []Ref  `json:"children"`
}

// GroupItem is a container element (e.g. a list) whose children are rendered
// in place.
type GroupItem struct {
	SelfRef  string `json:"self_ref"`
	Name     string `json:"name,omitempty"`
	Label    string `json:"label,omitempty"`
	Children []Ref  `json:"children,omitempty"`
}

// TextItem is a text-bearing element: paragraph, heading, list item, caption,
// footnote, code, or formula, distinguished by Label.
type TextItem struct {
	SelfRef string       `json:"self_ref"`
	Label   string       `json:"label,omitempty"`
	Text    string       `json:"text"`
	Level   int          `json:"level,omitempty"`
	Prov    []Provenance `json:"prov,omitempty"`
}

// TableCell is one cell of a table grid.
type TableCell struct {
	Text string `json:"text"`
}

// TableData holds a table's cell grid, row-major.
type TableData struct {
	Grid [][]TableCell `json:"grid"`
}

// TableItem is a table element.
type TableItem struct {
	SelfRef string       `json:"self_ref"`
	Prov    []Provenance `json:"prov,omitempty"`
	Data    TableData    `json:"data"`
}

// PictureItem is a figure element. Captions reference text items.
type PictureItem struct {
	SelfRef  string       `json:"self_ref"`
	Prov     []Provenance `json:"prov,omitempty"`
	Captions []Ref        `json:"captions,omitempty"`
}

// Document is the parsed structured document stored at
// papers/{ref}/document.json. It is the input to the bbox index and is the
// artifact of record: bbox mappings are always re-derived from it rather than
// persisted separately, so a mapping can never drift from its document.
type Document struct {
	SchemaName string        `json:"schema_name,omitempty"`
	Version    string        `json:"version,omitempty"`
	Name       string        `json:"name,omitempty"`
	Body       BodyNode      `json:"body"`
	Groups     []GroupItem   `json:"groups,omitempty"`
	Texts      []TextItem    `json:"texts,omitempty"`
	Tables     []TableItem   `json:"tables,omitempty"`
	Pictures   []PictureItem `json:"pictures,omitempty"`
}
