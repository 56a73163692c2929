package store

import (
	"context"
	"time"

	"github.com/WeWriteApp/pagechain/internal/model"
)

type Store interface {
	DocumentStore
	VersionStore
	BacklinkStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type DocumentStore interface {
	// CreateDocument creates a new document.
	CreateDocument(ctx context.Context, doc *model.Document) error
	// GetDocument retrieves a document by ID. Soft-deleted documents are
	// returned with the delete flag set so ownership checks can run.
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	// UpdateDocument saves the full document row.
	UpdateDocument(ctx context.Context, doc *model.Document) error
	// SetCurrentVersion advances the current-version pointer with a
	// compare-and-swap on the previous pointer value. Returns
	// ErrConflict when another writer advanced it first.
	SetCurrentVersion(ctx context.Context, docID, expectVersionID, newVersionID, content string, modified time.Time) error
	// TouchDocument bumps lastModified without touching anything else.
	TouchDocument(ctx context.Context, id string, modified time.Time) error
	// DeleteDocument soft-deletes a document by ID.
	DeleteDocument(ctx context.Context, id string) error
	// EraseDocument hard-deletes a document by ID.
	EraseDocument(ctx context.Context, id string) error
	// UpdateDocumentVisibility flips the public flag.
	UpdateDocumentVisibility(ctx context.Context, id string, isPublic bool) error
	// ListRecentPublicDocuments returns public documents ordered by
	// lastModified descending, bounded by limit.
	ListRecentPublicDocuments(ctx context.Context, limit int) ([]*model.Document, error)
	// ScanDocuments iterates all non-deleted documents in batches.
	ScanDocuments(ctx context.Context, batchSize int, fn func(docs []*model.Document) error) error
}

type VersionStore interface {
	// CreateVersion creates a new version row.
	CreateVersion(ctx context.Context, v *model.Version) error
	// GetVersion retrieves a version by ID.
	GetVersion(ctx context.Context, id string) (*model.Version, error)
	// GetBatchVersion retrieves the version for a (document, batch group)
	// pair, ErrVersionNotFound when the group has no row yet.
	GetBatchVersion(ctx context.Context, docID, batchGroupID string) (*model.Version, error)
	// UpdateVersion saves the full version row.
	UpdateVersion(ctx context.Context, v *model.Version) error
	// UpdateVersionDiff writes only the diff columns of a version row,
	// leaving content and batch bookkeeping untouched.
	UpdateVersionDiff(ctx context.Context, id string, added, removed int, hasChanges bool, preview string) error
	// ListVersions returns a document's versions newest first.
	ListVersions(ctx context.Context, docID string, limit int) ([]*model.Version, error)
}

type BacklinkStore interface {
	// ReplaceBacklinks deletes every entry sourced from sourceID and
	// inserts the fresh set, atomically within one transaction.
	ReplaceBacklinks(ctx context.Context, sourceID string, entries []*model.BacklinkEntry) error
	// ListBacklinks returns public entries pointing at targetID, most
	// recently modified first.
	ListBacklinks(ctx context.Context, targetID string, limit int) ([]*model.BacklinkEntry, error)
	// ListBacklinkSources returns the source ids of every entry pointing
	// at targetID regardless of visibility.
	ListBacklinkSources(ctx context.Context, targetID string) ([]string, error)
	// ListBacklinkTargets returns the target ids of every entry sourced
	// from sourceID.
	ListBacklinkTargets(ctx context.Context, sourceID string) ([]string, error)
	// DeleteBacklinksForDocument removes entries in both directions.
	DeleteBacklinksForDocument(ctx context.Context, docID string) error
	// UpdateBacklinkVisibility mirrors a source document's visibility
	// onto all entries it sourced.
	UpdateBacklinkVisibility(ctx context.Context, sourceID string, isPublic bool) error
}
