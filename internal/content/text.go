package content

import "strings"

// ExtractText flattens a content tree to plain text, dropping all
// structural and formatting information. Paragraphs are joined with
// newlines; link nodes contribute their display label. Diffing runs
// over this projection so that reformatting alone never counts as a
// change.
func ExtractText(nodes []Node) string {
	var parts []string

	for i := range nodes {
		n := &nodes[i]
		switch {
		case n.isLink():
			if label := linkLabel(n); label != "" {
				parts = append(parts, label)
			}
		case n.Type == NodeText:
			if n.Text != "" {
				parts = append(parts, n.Text)
			}
		default:
			if inner := ExtractText(n.Children); inner != "" {
				parts = append(parts, inner)
			}
		}
	}

	return strings.Join(parts, "\n")
}
