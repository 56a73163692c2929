package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// BacklinkEntry is one row of the derived what-links-here index.
// Rows are created and destroyed only by the backlink maintainer,
// never edited directly. IsPublic mirrors the visibility of the
// source document, not the target.
type BacklinkEntry struct {
	gorm.Model
	ID           string `gorm:"primaryKey;not null"`
	SourceID     string `gorm:"uuid;not null;index:idx_backlinks_source_id"`
	SourceTitle  string
	SourceAuthor string `gorm:"uuid"`
	TargetID     string `gorm:"uuid;not null;index:idx_backlinks_target_id"`
	LinkText     string
	LinkURL      string
	IsPublic     bool `gorm:"not null;default:false"`
	LastModified time.Time
}

func (BacklinkEntry) TableName() string {
	return "backlinks"
}

// BacklinkID builds the deterministic row id for a source/target pair.
// One row per pair, so rebuilding the index is idempotent.
func BacklinkID(sourceID, targetID string) string {
	return fmt.Sprintf("%s_to_%s", sourceID, targetID)
}
