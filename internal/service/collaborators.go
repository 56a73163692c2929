package service

import (
	"context"
	"time"

	"github.com/WeWriteApp/pagechain/internal/model"
)

// AccessDecision is the result of an access-control check.
type AccessDecision struct {
	HasAccess bool
	Reason    string
}

// AccessChecker is the access-control collaborator. It must be
// consulted before returning version or backlink data to non-owners.
type AccessChecker interface {
	HasAccess(ctx context.Context, doc *model.Document, userID string) AccessDecision
}

// OwnerAccessChecker is the default policy: owners always read their
// own documents, everyone reads public ones, and soft-deleted
// documents are visible to their owner only.
type OwnerAccessChecker struct {
}

func NewOwnerAccessChecker() OwnerAccessChecker {
	return OwnerAccessChecker{}
}

func (OwnerAccessChecker) HasAccess(ctx context.Context, doc *model.Document, userID string) AccessDecision {
	if doc.OwnerID == userID {
		return AccessDecision{HasAccess: true}
	}
	if doc.Deleted() {
		return AccessDecision{HasAccess: false, Reason: "deleted"}
	}
	if doc.IsPublic {
		return AccessDecision{HasAccess: true}
	}
	return AccessDecision{HasAccess: false, Reason: "private"}
}

// MentionEvent is a fire-and-forget notification that a page was
// linked from somewhere new.
type MentionEvent struct {
	TargetUserID string `json:"targetUserId"`
	SourcePageID string `json:"sourcePageId"`
	SourceTitle  string `json:"sourceTitle"`
	LinkText     string `json:"linkText"`
}

// Notifier is the notification collaborator.
type Notifier interface {
	NotifyMention(ctx context.Context, event MentionEvent) error
}

// SearchRecord is the tuple handed to the search-sync collaborator
// after every successful save.
type SearchRecord struct {
	PageID       string    `json:"pageId"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	AuthorID     string    `json:"authorId"`
	IsPublic     bool      `json:"isPublic"`
	LastModified time.Time `json:"lastModified"`
}

// SearchSync is the search indexing collaborator. Failures never fail
// the save that triggered them.
type SearchSync interface {
	Sync(ctx context.Context, record SearchRecord) error
}

// Broadcaster publishes live events (title renames) to connected
// views.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
