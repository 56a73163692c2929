package store

import (
	"context"
	"errors"
	"time"

	"github.com/WeWriteApp/pagechain/internal/model"
	"gorm.io/gorm"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return g.db.WithContext(ctx).Create(doc).Error
}

func (g *GormStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (g *GormStore) UpdateDocument(ctx context.Context, doc *model.Document) error {
	return g.db.WithContext(ctx).Save(doc).Error
}

func (g *GormStore) SetCurrentVersion(ctx context.Context, docID, expectVersionID, newVersionID, content string, modified time.Time) error {
	res := g.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND current_version_id = ?", docID, expectVersionID).
		Updates(map[string]interface{}{
			"current_version_id": newVersionID,
			"content":            content,
			"last_modified":      modified,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (g *GormStore) TouchDocument(ctx context.Context, id string, modified time.Time) error {
	return g.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("last_modified", modified).Error
}

func (g *GormStore) DeleteDocument(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{}).Error
}

func (g *GormStore) EraseDocument(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&model.Document{}).Error
}

func (g *GormStore) UpdateDocumentVisibility(ctx context.Context, id string, isPublic bool) error {
	return g.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("is_public", isPublic).Error
}

func (g *GormStore) ListRecentPublicDocuments(ctx context.Context, limit int) ([]*model.Document, error) {
	var docs []*model.Document
	err := g.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("last_modified desc").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (g *GormStore) ScanDocuments(ctx context.Context, batchSize int, fn func(docs []*model.Document) error) error {
	var batch []*model.Document
	return g.db.WithContext(ctx).
		Order("id").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

func (g *GormStore) CreateVersion(ctx context.Context, v *model.Version) error {
	return g.db.WithContext(ctx).Create(v).Error
}

func (g *GormStore) GetVersion(ctx context.Context, id string) (*model.Version, error) {
	var v model.Version
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (g *GormStore) GetBatchVersion(ctx context.Context, docID, batchGroupID string) (*model.Version, error) {
	var v model.Version
	err := g.db.WithContext(ctx).
		Where("document_id = ? AND batch_group_id = ?", docID, batchGroupID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (g *GormStore) UpdateVersion(ctx context.Context, v *model.Version) error {
	return g.db.WithContext(ctx).Save(v).Error
}

func (g *GormStore) UpdateVersionDiff(ctx context.Context, id string, added, removed int, hasChanges bool, preview string) error {
	return g.db.WithContext(ctx).Model(&model.Version{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"added":       added,
			"removed":     removed,
			"has_changes": hasChanges,
			"preview":     preview,
		}).Error
}

func (g *GormStore) ListVersions(ctx context.Context, docID string, limit int) ([]*model.Version, error) {
	var versions []*model.Version
	q := g.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&versions).Error
	return versions, err
}

// ReplaceBacklinks rewrites the index for one source inside a single
// transaction so readers never observe the empty window between the
// delete and the insert.
func (g *GormStore) ReplaceBacklinks(ctx context.Context, sourceID string, entries []*model.BacklinkEntry) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("source_id = ?", sourceID).Delete(&model.BacklinkEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(entries).Error
	})
}

func (g *GormStore) ListBacklinks(ctx context.Context, targetID string, limit int) ([]*model.BacklinkEntry, error) {
	var entries []*model.BacklinkEntry
	q := g.db.WithContext(ctx).
		Where("target_id = ? AND is_public = ?", targetID, true).
		Order("last_modified desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

func (g *GormStore) ListBacklinkSources(ctx context.Context, targetID string) ([]string, error) {
	var sources []string
	err := g.db.WithContext(ctx).Model(&model.BacklinkEntry{}).
		Where("target_id = ?", targetID).
		Pluck("source_id", &sources).Error
	return sources, err
}

func (g *GormStore) ListBacklinkTargets(ctx context.Context, sourceID string) ([]string, error) {
	var targets []string
	err := g.db.WithContext(ctx).Model(&model.BacklinkEntry{}).
		Where("source_id = ?", sourceID).
		Pluck("target_id", &targets).Error
	return targets, err
}

func (g *GormStore) DeleteBacklinksForDocument(ctx context.Context, docID string) error {
	return g.db.WithContext(ctx).Unscoped().
		Where("source_id = ? OR target_id = ?", docID, docID).
		Delete(&model.BacklinkEntry{}).Error
}

func (g *GormStore) UpdateBacklinkVisibility(ctx context.Context, sourceID string, isPublic bool) error {
	return g.db.WithContext(ctx).Model(&model.BacklinkEntry{}).
		Where("source_id = ?", sourceID).
		Update("is_public", isPublic).Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
