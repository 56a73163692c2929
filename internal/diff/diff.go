// Package diff computes text-level deltas between two content
// snapshots. The inputs are the plain-text projections produced by
// content.ExtractText, so structural churn never shows up as a change.
package diff

import (
	"encoding/json"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextChars bounds the before/after context carried in a preview.
const contextChars = 48

// spanChars bounds the added/removed text spans carried in a preview.
const spanChars = 200

// Preview carries bounded context around the first change plus the
// added/removed spans, for UI display.
type Preview struct {
	Before  string `json:"before"`
	After   string `json:"after"`
	Added   string `json:"added"`
	Removed string `json:"removed"`
}

// Summary is the result of diffing two snapshots.
type Summary struct {
	Added        int     `json:"added"`
	Removed      int     `json:"removed"`
	HasAdditions bool    `json:"hasAdditions"`
	HasRemovals  bool    `json:"hasRemovals"`
	Preview      Preview `json:"preview"`
}

// HasChanges reports whether anything was added or removed.
func (s Summary) HasChanges() bool {
	return s.HasAdditions || s.HasRemovals
}

// Compute diffs newText against prevText. A brand-new document passes
// prevText == "" and gets all of newText counted as additions with
// zero removals. Counts are in runes so multi-byte text diffs the same
// on every platform.
func Compute(newText, prevText string) Summary {
	if prevText == newText {
		return Summary{}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(prevText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var s Summary
	var addedSpan, removedSpan []rune
	var before, after []rune
	seenChange := false

	for _, d := range diffs {
		runes := []rune(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Added += len(runes)
			addedSpan = appendBounded(addedSpan, runes, spanChars)
			seenChange = true
		case diffmatchpatch.DiffDelete:
			s.Removed += len(runes)
			removedSpan = appendBounded(removedSpan, runes, spanChars)
			seenChange = true
		case diffmatchpatch.DiffEqual:
			if !seenChange {
				before = tailBounded(runes, contextChars)
			} else if len(after) == 0 {
				after = headBounded(runes, contextChars)
			}
		}
	}

	s.HasAdditions = s.Added > 0
	s.HasRemovals = s.Removed > 0
	s.Preview = Preview{
		Before:  string(before),
		After:   string(after),
		Added:   string(addedSpan),
		Removed: string(removedSpan),
	}

	return s
}

// EncodePreview serializes a preview for storage on a version row.
func EncodePreview(p Preview) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

func appendBounded(dst, src []rune, max int) []rune {
	room := max - len(dst)
	if room <= 0 {
		return dst
	}
	if len(src) > room {
		src = src[:room]
	}
	return append(dst, src...)
}

func headBounded(r []rune, max int) []rune {
	if len(r) > max {
		return r[:max]
	}
	return r
}

func tailBounded(r []rune, max int) []rune {
	if len(r) > max {
		return r[len(r)-max:]
	}
	return r
}
