// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Schema versions for persisted JSON artifacts. Readers branch on the
// schema_version field rather than assume the current shape. Bump on any
// breaking structural change (field removal, rename, retype); never on
// additive optional fields.
const (
	MetadataSchemaVersion   = 1
	ExtractionSchemaVersion = 1
	AggregateSchemaVersion  = 1
)

// Citation points at one bounding box in the source document of a single
// paper. The paper is implicit in per-paper extraction.
type Citation struct {
	// BoxID is the bounding-box id from the rendered source text.
	BoxID int `json:"box_id"`

	// Commentary states what the cited text demonstrates. It becomes the
	// note text of the highlight annotation in the annotated PDF.
	Commentary string `json:"commentary"`
}

// EvidenceFinding is one factual claim about the variant, backed by at least
// one citation. Findings without citations are rejected at validation time so
// the model receives corrective feedback instead of a silent drop.
type EvidenceFinding struct {
	Finding   string     `json:"finding"`
	Citations []Citation `json:"citations"`
}

// ExtractionResult is the structured output of extracting evidence from a
// single paper.
type ExtractionResult struct {
	SchemaVersion int `json:"schema_version"`

	// PaperRef is the durable identifier of the source paper.
	PaperRef string `json:"paper_ref"`

	// VariantDiscussed reports whether the specific variant is discussed.
	// When false, Evidence is expected empty and aggregation skips the paper.
	VariantDiscussed bool `json:"variant_discussed"`

	Evidence []EvidenceFinding `json:"evidence"`
}

// AggregateCitation points at one bounding box in one source paper. The model
// emits Paper (a short id) and BoxID; the aggregation engine fills the rest
// from paper metadata and the bbox mapping before persisting, so consumers
// never re-derive geometry.
type AggregateCitation struct {
	// Paper is the short id used inside the prompt (e.g. "Smith2020a").
	Paper string `json:"paper"`

	// DurableID is the paper's permanent identifier (DOI or PMID).
	DurableID string `json:"durable_id,omitempty"`

	// PMID is the PubMed id when known.
	PMID string `json:"pmid,omitempty"`

	BoxID      int    `json:"box_id"`
	Commentary string `json:"commentary"`

	// Page, Bbox, and CoordOrigin are attached from the paper's bbox
	// mapping on successful aggregation.
	Page        int    `json:"page,omitempty"`
	Bbox        *Rect  `json:"bbox,omitempty"`
	CoordOrigin string `json:"coord_origin,omitempty"`
}

// CategoryResult is the aggregate assessment for one category.
type CategoryResult struct {
	// Classification is the category's verdict (e.g. an ACMG class).
	Classification string `json:"classification"`

	// ClassificationRationale explains why the classification was selected.
	ClassificationRationale string `json:"classification_rationale"`

	// Description is the filled-in summary template.
	Description string `json:"description"`

	// Notes is a curator-style synthesis in Markdown. Inline paper
	// references use short ids resolvable through the cross-reference table.
	Notes string `json:"notes"`

	// Citations backs the factual claims in Notes.
	Citations []AggregateCitation `json:"citations"`
}

// AggregateResult is the cross-paper assessment, one CategoryResult per
// category of the configured result shape. An empty Results map is the
// explicit "ran and found nothing" outcome, distinct from the artifact being
// absent ("never ran").
type AggregateResult struct {
	SchemaVersion int                       `json:"schema_version"`
	Results       map[string]CategoryResult `json:"results"`
}

// PaperXrefEntry resolves a short id back to durable identifiers.
type PaperXrefEntry struct {
	DurableID string `json:"durable_id"`
	PMID      string `json:"pmid,omitempty"`
}

// PaperXref is the short-id cross-reference table persisted alongside the
// aggregate result so a UI can resolve inline prose references.
type PaperXref struct {
	SchemaVersion int                       `json:"schema_version"`
	Papers        map[string]PaperXrefEntry `json:"papers"`
}

// PromptMessage is one turn of a completion-capability conversation.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the raw model conversation persisted for audit next to each
// structured result.
type Transcript struct {
	SchemaVersion int             `json:"schema_version"`
	Model         string          `json:"model,omitempty"`
	Messages      []PromptMessage `json:"messages"`
}
