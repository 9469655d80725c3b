// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperMetadata holds bibliographic fields for an acquired paper, stored at
// papers/{ref}/metadata.json by the acquisition stage.
type PaperMetadata struct {
	SchemaVersion int `json:"schema_version"`

	// DOI is the paper's digital object identifier, when known.
	DOI string `json:"doi,omitempty"`

	// PMID is the PubMed id, when known.
	PMID string `json:"pmid,omitempty"`

	// Title is the paper title.
	Title string `json:"title"`

	// Authors is a semicolon-delimited list of "Last, First" entries.
	Authors string `json:"authors"`

	// Date is the publication date in ISO format (YYYY-MM-DD).
	Date string `json:"date"`

	// Journal is the publication venue.
	Journal string `json:"journal,omitempty"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty"`
}

// Variant is a catalog entry: one genetic variant and the paper set under
// assessment for it.
type Variant struct {
	// ID is the variant identifier used in storage keys.
	ID string `json:"id" yaml:"id"`

	// Gene is the gene symbol (e.g. "GAA").
	Gene string `json:"gene" yaml:"gene"`

	// HGVSc is the variant in HGVS c. notation (e.g. "NM_000152.5:c.2238G>C").
	HGVSc string `json:"hgvs_c" yaml:"hgvs_c"`

	// Papers lists the durable ids of the papers under consideration.
	Papers []string `json:"papers" yaml:"papers"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// VariantFile is a YAML batch file listing variants for catalog import.
type VariantFile struct {
	Variants []Variant `json:"variants" yaml:"variants"`
}
