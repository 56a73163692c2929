package content

// RewriteTitle rewrites auto-generated labels of links pointing at
// targetID from oldTitle to newTitle, including text leaves under the
// link node. A link is auto-labeled when its label equals the target's
// previous title, or is absent; custom labels are left untouched. The
// stored title snapshot is refreshed either way so future renames keep
// matching. Returns the (possibly modified) tree and whether anything
// changed.
func RewriteTitle(nodes []Node, targetID, oldTitle, newTitle string) ([]Node, bool) {
	changed := false

	var walk func(ns []Node)
	walk = func(ns []Node) {
		for i := range ns {
			n := &ns[i]

			if n.isLink() && linksTo(n, targetID) {
				if autoLabeled(n, oldTitle) {
					if n.Label != newTitle && (n.Label != "" || len(n.Children) > 0) {
						changed = true
					}
					if n.Label != "" {
						n.Label = newTitle
					}
					rewriteTextLeaves(n.Children, oldTitle, newTitle, &changed)
				}
				if n.PageTitle != newTitle {
					n.PageTitle = newTitle
					changed = true
				}
			}

			walk(n.Children)
		}
	}
	walk(nodes)

	return nodes, changed
}

func linksTo(n *Node, targetID string) bool {
	if n.TargetPageID == targetID {
		return true
	}
	if m := pagePathPattern.FindStringSubmatch(n.linkURL()); m != nil {
		return m[1] == targetID
	}
	return false
}

func autoLabeled(n *Node, oldTitle string) bool {
	label := linkLabel(n)
	return label == "" || label == oldTitle || label == n.PageTitle
}

func rewriteTextLeaves(ns []Node, oldTitle, newTitle string, changed *bool) {
	for i := range ns {
		if ns[i].Type == NodeText && ns[i].Text == oldTitle {
			ns[i].Text = newTitle
			*changed = true
		}
		rewriteTextLeaves(ns[i].Children, oldTitle, newTitle, changed)
	}
}
