// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
)

// Shape is a registered result shape: the prompt pair for extraction and
// aggregation plus the category set the aggregate result is keyed by. Shapes
// are compiled into the binary and looked up by name at configuration time,
// so a misconfigured shape name fails before any storage or API call.
type Shape struct {
	// Name is the registry key.
	Name string

	// Categories are the keys expected in an aggregate result produced
	// under this shape.
	Categories []string

	extraction  *template.Template
	aggregation *template.Template
}

// ExtractionPromptData is interpolated into a shape's extraction prompt.
type ExtractionPromptData struct {
	// VariantDetails is the variant context document as a JSON string.
	VariantDetails string

	// PaperRef is the durable identifier of the paper under extraction.
	PaperRef string

	// FullText is the rendered paper text with bbox id markers.
	FullText string
}

// AggregationPromptData is interpolated into a shape's aggregation prompt.
type AggregationPromptData struct {
	// VariantDetails is the variant context document as a JSON string.
	VariantDetails string

	// EvidenceExtractions is the JSON array of per-paper evidence blocks,
	// keyed by short paper ids, most recent paper first.
	EvidenceExtractions string
}

// ExtractionPrompt renders the extraction prompt for one paper.
func (s *Shape) ExtractionPrompt(data ExtractionPromptData) (string, error) {
	var buf bytes.Buffer
	if err := s.extraction.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering extraction prompt: %w", err)
	}
	return buf.String(), nil
}

// AggregationPrompt renders the aggregation prompt for a variant.
func (s *Shape) AggregationPrompt(data AggregationPromptData) (string, error) {
	var buf bytes.Buffer
	if err := s.aggregation.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering aggregation prompt: %w", err)
	}
	return buf.String(), nil
}

var shapes = map[string]*Shape{
	genericShape.Name:      genericShape,
	acmgCriteriaShape.Name: acmgCriteriaShape,
}

// GetShape looks up a registered shape by name. Empty name selects "generic".
func GetShape(name string) (*Shape, error) {
	if name == "" {
		name = "generic"
	}
	s, ok := shapes[name]
	if !ok {
		return nil, fmt.Errorf("unknown result shape %q (available: %v)", name, ShapeNames())
	}
	return s, nil
}

// ShapeNames lists the registered shape names in sorted order.
func ShapeNames() []string {
	names := make([]string, 0, len(shapes))
	for name := range shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// extractionContract is the JSON output contract shared by every extraction
// prompt. Box ids come from the <b id=N> markers in the paper text.
const extractionContract = `Respond with a single JSON object and no other text:

{
  "variant_discussed": <true if this specific variant is discussed in the paper, else false>,
  "evidence": [
    {
      "finding": "<a specific factual claim about the variant from the paper>",
      "citations": [
        {
          "box_id": <the integer id from a <b id=N> marker in the paper text>,
          "commentary": "<what this specific text states or demonstrates>"
        }
      ]
    }
  ]
}

Rules:
- Every finding must carry at least one citation.
- Every box_id must be an id that appears as a <b id=N> marker in the paper text below. Never invent box ids.
- If the variant is not discussed, set variant_discussed to false and return an empty evidence array.`

var genericShape = &Shape{
	Name:       "generic",
	Categories: []string{"assessment"},
	extraction: template.Must(template.New("generic-extraction").Parse(`You are a clinical genetics evidence extraction system. Analyze the following paper and extract every factual finding about the variant described below.

Variant under assessment:
{{.VariantDetails}}

` + extractionContract + `

Paper ({{.PaperRef}}):
{{.FullText}}
`)),
	aggregation: template.Must(template.New("generic-aggregation").Parse(`You are a clinical genetics curator. Synthesize the per-paper evidence below into an overall assessment of the variant.

Variant under assessment:
{{.VariantDetails}}

Respond with a single JSON object and no other text:

{
  "results": {
    "assessment": {
      "classification": "<Pathogenic, Likely Pathogenic, VUS, Likely Benign, or Benign>",
      "classification_rationale": "<brief explanation of why this classification was selected>",
      "description": "<one-paragraph summary of the variant and the weight of evidence>",
      "notes": "<detailed curator-style synthesis in Markdown>",
      "citations": [
        {
          "paper": "<short paper id exactly as given in the evidence below>",
          "box_id": <integer box id from that paper's evidence>,
          "commentary": "<what this specific evidence states>"
        }
      ]
    }
  }
}

Rules:
- Every factual claim in the notes must be supported by a citation.
- Cite only (paper, box_id) pairs that appear in the evidence below. Never invent citations.

Evidence extractions (most recent paper first):
{{.EvidenceExtractions}}
`)),
}

var acmgCriteriaShape = &Shape{
	Name: "acmg-criteria",
	Categories: []string{
		"population_data",
		"computational_predictions",
		"functional_data",
		"clinical_observations",
	},
	extraction: template.Must(template.New("acmg-extraction").Parse(`You are a clinical genetics evidence extraction system performing ACMG/AMP-style curation. Analyze the following paper and extract every factual finding about the variant described below, covering population frequency, computational predictions, functional studies, and clinical observations where present.

Variant under assessment:
{{.VariantDetails}}

` + extractionContract + `

Paper ({{.PaperRef}}):
{{.FullText}}
`)),
	aggregation: template.Must(template.New("acmg-aggregation").Parse(`You are a clinical genetics curator performing ACMG/AMP-style assessment. Synthesize the per-paper evidence below into one result per evidence category.

Variant under assessment:
{{.VariantDetails}}

Respond with a single JSON object and no other text:

{
  "results": {
    "population_data": { ... },
    "computational_predictions": { ... },
    "functional_data": { ... },
    "clinical_observations": { ... }
  }
}

where each category value has the form:

{
  "classification": "<Supporting Pathogenic, Supporting Benign, or Inconclusive for this category>",
  "classification_rationale": "<brief explanation of why this classification was selected>",
  "description": "<one-paragraph summary of this category's evidence>",
  "notes": "<detailed curator-style synthesis in Markdown>",
  "citations": [
    {
      "paper": "<short paper id exactly as given in the evidence below>",
      "box_id": <integer box id from that paper's evidence>,
      "commentary": "<what this specific evidence states>"
    }
  ]
}

Rules:
- Include all four categories even when a category has no evidence; mark such categories Inconclusive with an empty citations array.
- Every factual claim in the notes must be supported by a citation.
- Cite only (paper, box_id) pairs that appear in the evidence below. Never invent citations.

Evidence extractions (most recent paper first):
{{.EvidenceExtractions}}
`)),
}
