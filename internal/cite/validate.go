// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cite validates model citations against the closed world of known
// bounding boxes. The same logic serves single-paper extraction (a one-entry
// index) and cross-paper aggregation (the union of all participating papers);
// there is no special-casing of arity.
package cite

import (
	"fmt"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Ref is one citation to check: a paper reference and a box id. The paper
// reference is whatever key space the caller indexed by (durable ids for
// extraction, short ids for aggregation).
type Ref struct {
	Paper string
	BoxID int
}

// Validate checks every citation against the index. A citation is valid iff
// its paper resolves to a known bbox mapping and its box id is a key in that
// mapping. The returned slice holds one human-readable description per
// violation, in input order; it is empty when all citations are valid. The
// descriptions are fed back to the model as corrective retry instructions,
// so they name the offending identifiers exactly.
func Validate(refs []Ref, index map[string]types.BboxMapping) []string {
	var violations []string

	for _, ref := range refs {
		mapping, ok := index[ref.Paper]
		if !ok {
			violations = append(violations, fmt.Sprintf("paper=%s (paper not found)", ref.Paper))
			continue
		}
		if _, ok := mapping[ref.BoxID]; !ok {
			violations = append(violations, fmt.Sprintf("paper=%s, box_id=%d", ref.Paper, ref.BoxID))
		}
	}

	return violations
}
