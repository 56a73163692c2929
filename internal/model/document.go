package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Document represents an editable page. The content column holds the
// denormalized current content tree as JSON; the authoritative history
// lives in the versions table. Documents are soft-deleted only, gorm's
// DeletedAt is the delete flag.
type Document struct {
	gorm.Model
	ID               string `gorm:"primaryKey;uuid;not null;"`
	Title            string `gorm:"not null"`
	OwnerID          string `gorm:"uuid;not null;index"`
	IsPublic         bool   `gorm:"not null;default:false"`
	CurrentVersionID string `gorm:"uuid"`
	Content          string `gorm:"not null"`
	LastModified     time.Time
}

// Deleted reports whether the document is soft-deleted.
func (d *Document) Deleted() bool {
	return d.DeletedAt.Valid
}

func (d *Document) MarshalBinary() ([]byte, error) {
	return json.Marshal(d)
}
