package model

import (
	"gorm.io/gorm"
)

// Version is one immutable snapshot in a document's edit history.
// Versions form a singly linked chain through PreviousVersionID, newest
// to oldest, terminating in the empty string.
//
// Content is stored through a compress.Compress codec; Compression
// records which codec wrote the row. OriginalContent is captured once
// per batch group and holds the pre-batch baseline so that the visible
// diff of a rapid editing session covers the whole session.
type Version struct {
	gorm.Model
	ID                string `gorm:"primaryKey;uuid;not null;"`
	DocumentID        string `gorm:"uuid;not null;index:idx_versions_document_id"`
	PreviousVersionID string `gorm:"uuid"`
	Content           string `gorm:"not null"`
	Compression       string
	AuthorID          string `gorm:"uuid;not null"`
	Added             int
	Removed           int
	HasChanges        bool
	Preview           string // JSON-encoded diff.Preview, may lag for batched saves
	IsNoOp            bool
	IsNewPage         bool
	BatchGroupID      string `gorm:"index:idx_versions_batch_group"`
	BatchCount        int
	OriginalContent   string
}

func (Version) TableName() string {
	return "versions"
}
