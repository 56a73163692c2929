package content

import (
	"fmt"
	"strings"
)

// HasContentChanged reports whether new content is semantically
// different from stored content. Both sides are normalized (canonical
// text plus the extracted link set) before comparison, so a save that
// only reorders structural fields or reformats is a no-op. Reflexive:
// HasContentChanged(x, x) is always false.
//
// Content that fails to parse is compared as a raw string, so two
// identical unparseable blobs still count as unchanged.
func HasContentChanged(newRaw, storedRaw string) bool {
	return Canonical(newRaw) != Canonical(storedRaw)
}

// Canonical produces a normalized fingerprint of raw content: the
// extracted plain text followed by the ordered link set. Falls back to
// the trimmed raw string when the tree does not parse.
func Canonical(raw string) string {
	nodes, err := Parse(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}

	var sb strings.Builder
	sb.WriteString(ExtractText(nodes))
	for _, l := range ExtractLinks(nodes) {
		fmt.Fprintf(&sb, "\x00%s|%s|%s|%s", l.Kind, l.TargetID, l.URL, l.Label)
	}

	return sb.String()
}
