// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity derives short human-readable paper ids for use inside
// model prompts. Short ids are per-run and set-scoped: they are recomputed
// for each aggregation from exactly the papers under consideration, so they
// never leak papers from other variants and never need a persistent registry.
package identity

import (
	"sort"
	"strings"
	"unicode"
)

// PaperInfo is the bibliographic slice needed to derive a short id.
type PaperInfo struct {
	// DurableID is the paper's permanent identifier (DOI or PMID).
	DurableID string

	// Authors is a semicolon-delimited list of "Last, First" entries.
	Authors string

	// Date is the publication date; the leading 4-digit year is used.
	Date string
}

// Assign computes a bijective mapping between short ids and durable ids for
// one paper set. The base id is Capitalize(LastName)+Year; papers sharing a
// base are disambiguated with letters a, b, c, ... assigned in durable-id
// lexicographic order, so the result is independent of input order.
//
// Assign never fails: a missing author or year degrades to "Unknown" for
// that part.
func Assign(papers []PaperInfo) (shortToDurable, durableToShort map[string]string) {
	groups := make(map[string][]string)
	for _, p := range papers {
		base := baseID(p)
		groups[base] = append(groups[base], p.DurableID)
	}

	shortToDurable = make(map[string]string, len(papers))
	durableToShort = make(map[string]string, len(papers))

	for base, durables := range groups {
		if len(durables) == 1 {
			shortToDurable[base] = durables[0]
			durableToShort[durables[0]] = base
			continue
		}

		sort.Strings(durables)
		for i, durable := range durables {
			short := base + letterSuffix(i)
			shortToDurable[short] = durable
			durableToShort[durable] = short
		}
	}

	return shortToDurable, durableToShort
}

// baseID builds the undisambiguated short id for one paper.
func baseID(p PaperInfo) string {
	last := lastName(p.Authors)
	if last == "" {
		last = "Unknown"
	}

	year := yearOf(p.Date)
	if year == "" {
		year = "Unknown"
	}

	return last + year
}

// lastName extracts the first author's last name: the substring before the
// first comma of the first semicolon-delimited entry, with non-alphabetic
// characters stripped and each word capitalized and concatenated.
func lastName(authors string) string {
	first := authors
	if i := strings.IndexByte(first, ';'); i >= 0 {
		first = first[:i]
	}
	if i := strings.IndexByte(first, ','); i >= 0 {
		first = first[:i]
	}

	var b strings.Builder
	for _, word := range strings.Fields(first) {
		var letters []rune
		for _, r := range word {
			if unicode.IsLetter(r) {
				letters = append(letters, r)
			}
		}
		if len(letters) == 0 {
			continue
		}
		letters[0] = unicode.ToUpper(letters[0])
		b.WriteString(string(letters))
	}
	return b.String()
}

// yearOf returns the leading 4-digit year of an ISO date, or "" when absent.
func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	year := date[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return year
}

// letterSuffix returns "a" for 0, "b" for 1, ..., then "aa", "ab", ... for
// groups larger than the alphabet.
func letterSuffix(i int) string {
	var b []byte
	for {
		b = append([]byte{byte('a' + i%26)}, b...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(b)
}
