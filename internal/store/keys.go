// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import "strings"

// EncodeRef percent-encodes a paper's durable identifier for safe use as a
// single path segment. Every byte outside the unreserved set is encoded,
// including '/', so DOIs like "10.1038/s41586-020-2308-7" cannot split into
// path components.
func EncodeRef(ref string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}
	return b.String()
}

// Key builders for the storage layout. Paper keys are corpus-wide and shared
// across variants; variant keys hold one assessment's artifacts.
//
//	papers/{ref}/document.json
//	papers/{ref}/source.pdf
//	papers/{ref}/metadata.json
//	variants/{id}/details.json
//	variants/{id}/extractions/{ref}.json
//	variants/{id}/extractions/{ref}_raw.json
//	variants/{id}/aggregate.json
//	variants/{id}/aggregate_raw.json
//	variants/{id}/aggregate_papers.json
//	variants/{id}/annotated/{ref}.pdf

// DocumentKey is the parsed structured document for a paper.
func DocumentKey(ref string) string {
	return "papers/" + EncodeRef(ref) + "/document.json"
}

// SourceKey is the original document bytes for a paper.
func SourceKey(ref string) string {
	return "papers/" + EncodeRef(ref) + "/source.pdf"
}

// MetadataKey is the bibliographic metadata for a paper.
func MetadataKey(ref string) string {
	return "papers/" + EncodeRef(ref) + "/metadata.json"
}

// VariantDetailsKey is the variant context document supplied by the upstream
// query stage and interpolated into every prompt.
func VariantDetailsKey(variantID string) string {
	return "variants/" + variantID + "/details.json"
}

// ExtractionKey is the persisted extraction result for one (variant, paper).
func ExtractionKey(variantID, ref string) string {
	return "variants/" + variantID + "/extractions/" + EncodeRef(ref) + ".json"
}

// ExtractionRawKey is the raw model transcript for one extraction.
func ExtractionRawKey(variantID, ref string) string {
	return "variants/" + variantID + "/extractions/" + EncodeRef(ref) + "_raw.json"
}

// AggregateKey is the persisted aggregate result for a variant.
func AggregateKey(variantID string) string {
	return "variants/" + variantID + "/aggregate.json"
}

// AggregateRawKey is the raw model transcript for the aggregation.
func AggregateRawKey(variantID string) string {
	return "variants/" + variantID + "/aggregate_raw.json"
}

// AggregatePapersKey is the short-id cross-reference table.
func AggregatePapersKey(variantID string) string {
	return "variants/" + variantID + "/aggregate_papers.json"
}

// AnnotatedKey is the annotated output document for one (variant, paper).
func AnnotatedKey(variantID, ref string) string {
	return "variants/" + variantID + "/annotated/" + EncodeRef(ref) + ".pdf"
}
