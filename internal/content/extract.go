package content

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// LinkKind classifies what a link record points at.
type LinkKind string

const (
	KindPage     LinkKind = "page"
	KindUser     LinkKind = "user"
	KindExternal LinkKind = "external"
)

// LinkRecord is the ephemeral output of link extraction. Records are
// never persisted directly; the backlink maintainer turns page-kind
// records into index rows.
type LinkRecord struct {
	Kind     LinkKind
	TargetID string
	URL      string
	Label    string
}

var (
	bareURLPattern  = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	userPathPattern = regexp.MustCompile(`^/users?/([A-Za-z0-9_-]+)/?$`)
	pagePathPattern = regexp.MustCompile(`^/([A-Za-z0-9_-]+)/?$`)
)

// ExtractLinks walks a content tree and returns its typed link
// records, deduplicated by URL in first-seen order. Plain-text leaves
// are scanned for bare URLs and emitted as external records. Pure and
// deterministic; no I/O.
func ExtractLinks(nodes []Node) []LinkRecord {
	seen := mapset.NewSet[string]()
	var out []LinkRecord

	var walk func(ns []Node)
	walk = func(ns []Node) {
		for i := range ns {
			n := &ns[i]

			if n.isLink() {
				rec := classify(n)
				if !seen.Contains(rec.URL) {
					seen.Add(rec.URL)
					out = append(out, rec)
				}
			} else if n.Type == NodeText {
				for _, u := range bareURLPattern.FindAllString(n.Text, -1) {
					if !seen.Contains(u) {
						seen.Add(u)
						out = append(out, LinkRecord{Kind: KindExternal, URL: u, Label: u})
					}
				}
			}

			walk(n.Children)
		}
	}
	walk(nodes)

	return out
}

// classify resolves the kind and target of a single link node. The
// ladder is ordered: explicit page id, page flag with a path url,
// explicit user id, user flag with a /users/<id> url, explicit
// external flag, url-shape heuristics, external as the default.
func classify(n *Node) LinkRecord {
	url := n.linkURL()
	label := linkLabel(n)

	if n.TargetPageID != "" {
		if url == "" {
			url = "/" + n.TargetPageID
		}
		return LinkRecord{Kind: KindPage, TargetID: n.TargetPageID, URL: url, Label: label}
	}

	if n.IsPageLink {
		if m := pagePathPattern.FindStringSubmatch(url); m != nil {
			return LinkRecord{Kind: KindPage, TargetID: m[1], URL: url, Label: label}
		}
	}

	if n.TargetUserID != "" {
		if url == "" {
			url = "/users/" + n.TargetUserID
		}
		return LinkRecord{Kind: KindUser, TargetID: n.TargetUserID, URL: url, Label: label}
	}

	if n.IsUser {
		if m := userPathPattern.FindStringSubmatch(url); m != nil {
			return LinkRecord{Kind: KindUser, TargetID: m[1], URL: url, Label: label}
		}
	}

	if n.IsExternal {
		return LinkRecord{Kind: KindExternal, URL: url, Label: label}
	}

	if m := userPathPattern.FindStringSubmatch(url); m != nil {
		return LinkRecord{Kind: KindUser, TargetID: m[1], URL: url, Label: label}
	}
	if m := pagePathPattern.FindStringSubmatch(url); m != nil {
		return LinkRecord{Kind: KindPage, TargetID: m[1], URL: url, Label: label}
	}

	return LinkRecord{Kind: KindExternal, URL: url, Label: label}
}

// linkLabel is the display text of a link node: the explicit label if
// present, otherwise the concatenated text of its children.
func linkLabel(n *Node) string {
	if n.Label != "" {
		return n.Label
	}

	var sb strings.Builder
	var walk func(ns []Node)
	walk = func(ns []Node) {
		for i := range ns {
			if ns[i].Type == NodeText {
				sb.WriteString(ns[i].Text)
			}
			walk(ns[i].Children)
		}
	}
	walk(n.Children)

	return sb.String()
}
