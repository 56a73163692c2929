package content

import (
	"encoding/json"
	"errors"
	"strings"
)

// NodeType discriminates the content tree union. Editors produce
// exactly these three kinds; anything else fails to decode.
type NodeType string

const (
	NodeText      NodeType = "text"
	NodeParagraph NodeType = "paragraph"
	NodeLink      NodeType = "link"
)

var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrInvalidContent = errors.New("content is not a valid node tree")
)

// Node is one element of a document content tree. The union is decoded
// by the Type discriminant: text leaves carry Text, paragraphs carry
// Children, link nodes carry the link fields plus optional Children
// holding their display text leaves.
//
// PageTitle is the title snapshot captured when the link was inserted;
// it is what auto-label detection compares against during title
// propagation.
type Node struct {
	Type     NodeType `json:"type"`
	Text     string   `json:"text,omitempty"`
	Children []Node   `json:"children,omitempty"`

	URL          string `json:"url,omitempty"`
	Href         string `json:"href,omitempty"`
	Label        string `json:"label,omitempty"`
	TargetPageID string `json:"pageId,omitempty"`
	TargetUserID string `json:"userId,omitempty"`
	IsPageLink   bool   `json:"isPageLink,omitempty"`
	IsUser       bool   `json:"isUser,omitempty"`
	IsExternal   bool   `json:"isExternal,omitempty"`
	PageTitle    string `json:"pageTitle,omitempty"`
}

// linkURL returns whichever of url/href is set, url winning.
func (n *Node) linkURL() string {
	if n.URL != "" {
		return n.URL
	}
	return n.Href
}

// isLink reports whether the node carries a link marker: an explicit
// link type, or a url/href field on a node of any type.
func (n *Node) isLink() bool {
	return n.Type == NodeLink || n.URL != "" || n.Href != ""
}

// Parse decodes a JSON content tree. An empty document ("" or "[]" or
// whitespace) is rejected with ErrEmptyContent; malformed JSON or an
// unknown node type is ErrInvalidContent.
func Parse(raw string) ([]Node, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyContent
	}

	var nodes []Node
	if err := json.Unmarshal([]byte(trimmed), &nodes); err != nil {
		return nil, ErrInvalidContent
	}
	if len(nodes) == 0 {
		return nil, ErrEmptyContent
	}

	for i := range nodes {
		if err := validate(&nodes[i]); err != nil {
			return nil, err
		}
	}

	return nodes, nil
}

// Marshal is the inverse of Parse.
func Marshal(nodes []Node) (string, error) {
	data, err := json.Marshal(nodes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func validate(n *Node) error {
	switch n.Type {
	case NodeText, NodeParagraph, NodeLink:
	default:
		return ErrInvalidContent
	}

	for i := range n.Children {
		if err := validate(&n.Children[i]); err != nil {
			return err
		}
	}

	return nil
}
