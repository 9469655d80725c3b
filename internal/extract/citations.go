// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"

	"github.com/pdiddy/evidence-engine/internal/cite"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// resultViolations checks a structured extraction result against the paper's
// bbox mapping. Two classes of violation exist: a finding with no citations
// at all, and a citation whose box id is not in the document.
func resultViolations(result *types.ExtractionResult, ref string, mapping types.BboxMapping) []string {
	var violations []string
	var refs []cite.Ref

	for i, finding := range result.Evidence {
		if len(finding.Citations) == 0 {
			violations = append(violations, fmt.Sprintf("finding %d has no citations", i))
		}
		for _, c := range finding.Citations {
			refs = append(refs, cite.Ref{Paper: ref, BoxID: c.BoxID})
		}
	}

	index := map[string]types.BboxMapping{ref: mapping}
	return append(violations, cite.Validate(refs, index)...)
}
