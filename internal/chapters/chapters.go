// Package chapters detects chapter boundaries in per-page text and turns them
// into page ranges.
//
// A page starts a chapter when its first whitespace-delimited token,
// lower-cased, is exactly "chapter". Nothing fuzzier is attempted: headings
// such as "Chapter:" or OCR noise ahead of the word are not boundaries.
package chapters

import (
	"strings"

	"github.com/dgallion1/ocrsplit/internal/document"
)

// Keyword is the literal first token that marks a chapter page.
const Keyword = "chapter"

// Policy controls how pages outside every detected chapter are treated.
type Policy struct {
	// KeepPreamble emits an extra leading group [0, first boundary) when the
	// first boundary is not page 0. Off by default: those pages are dropped.
	KeepPreamble bool
}

// IsBoundary reports whether a page's text starts a new chapter.
func IsBoundary(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	return strings.ToLower(fields[0]) == Keyword
}

// FindBoundaries returns the indices of pages that start a chapter, ascending.
func FindBoundaries(pages []string) []int {
	var boundaries []int
	for i, text := range pages {
		if IsBoundary(text) {
			boundaries = append(boundaries, i)
		}
	}
	return boundaries
}

// BuildGroups emits one group per boundary. Each group ends where the next
// boundary begins; the last one ends at pageCount.
func BuildGroups(boundaries []int, pageCount int) []document.Group {
	if len(boundaries) == 0 {
		return nil
	}
	groups := make([]document.Group, 0, len(boundaries))
	for i, start := range boundaries {
		end := pageCount
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		groups = append(groups, document.Group{Start: start, End: end})
	}
	return groups
}

// Segment finds boundaries in pages and builds the chapter groups.
func Segment(pages []string, policy Policy) []document.Group {
	boundaries := FindBoundaries(pages)
	groups := BuildGroups(boundaries, len(pages))
	if policy.KeepPreamble && len(boundaries) > 0 && boundaries[0] > 0 {
		preamble := document.Group{Start: 0, End: boundaries[0]}
		groups = append([]document.Group{preamble}, groups...)
	}
	return groups
}
