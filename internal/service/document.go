package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WeWriteApp/pagechain/internal/content"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateDocument creates a document and its first version in one
// operation. Content is validated before anything is written, and if
// the first version save fails the document row is erased so no orphan
// document without a current version persists.
func (s *VersionService) CreateDocument(ctx context.Context, id, title, ownerID, rawContent string, isPublic bool) (*model.Document, *VersionResult, error) {
	if _, err := content.Parse(rawContent); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if id == "" {
		id = uuid.New().String()
	}

	doc := &model.Document{
		ID:       id,
		Title:    title,
		OwnerID:  ownerID,
		IsPublic: isPublic,
		Content:  "",
	}

	wctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.CreateDocument(wctx, doc); err != nil {
		return nil, nil, storeErr(err)
	}

	res, err := s.SaveVersion(ctx, id, rawContent, ownerID, SaveOptions{NewPage: true})
	if err != nil {
		// A conflict means another writer already landed a first
		// version, so the document is not an orphan.
		if !errors.Is(err, ErrConflict) {
			if derr := s.store.EraseDocument(ctx, id); derr != nil {
				logrus.Errorf("failed to erase orphan document %s: %v", id, derr)
			}
		}
		return nil, nil, err
	}

	doc, gerr := s.store.GetDocument(ctx, id)
	if gerr != nil {
		return nil, nil, storeErr(gerr)
	}

	return doc, res, nil
}

// GetDocument returns a document after the access check. Denials
// surface as not-found so private pages do not leak their existence.
func (s *VersionService) GetDocument(ctx context.Context, id, userID string) (*model.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	if d := s.access.HasAccess(ctx, doc, userID); !d.HasAccess {
		logrus.Infof("read denied for user %s on document %s: %s", userID, id, d.Reason)
		return nil, ErrNotFound
	}

	return doc, nil
}

// DeleteDocument soft-deletes a document and tears down its side of
// the backlink index. Cache invalidation is best effort.
func (s *VersionService) DeleteDocument(ctx context.Context, id, userID string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if doc.OwnerID != userID {
		logrus.Infof("delete denied for user %s on document %s", userID, id)
		return ErrPermissionDenied
	}

	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return storeErr(err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		targets := s.backlinks.RemoveDocument(ctx, id)
		if s.graphs != nil {
			s.graphs.InvalidateMany(ctx, append(targets, id))
		}
	}()

	return nil
}

// SetVisibility flips a document's visibility and mirrors it onto the
// backlink entries it sourced.
func (s *VersionService) SetVisibility(ctx context.Context, id, userID string, isPublic bool) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if doc.OwnerID != userID {
		logrus.Infof("visibility change denied for user %s on document %s", userID, id)
		return ErrPermissionDenied
	}

	if err := s.store.UpdateDocumentVisibility(ctx, id, isPublic); err != nil {
		return storeErr(err)
	}

	s.backlinks.UpdateVisibility(ctx, id, isPublic)

	return nil
}

// UpdateTitle renames a document. Label propagation across the corpus
// is the propagation engine's job, triggered separately.
func (s *VersionService) UpdateTitle(ctx context.Context, id, userID, title string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if doc.OwnerID != userID {
		logrus.Infof("title change denied for user %s on document %s", userID, id)
		return ErrPermissionDenied
	}

	doc.Title = title
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return storeErr(err)
	}

	return nil
}

// BackgroundContext builds the context used for work deferred past a
// response boundary.
func BackgroundContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

// RestoreVersion saves an old snapshot as a brand-new version through
// the normal chain. History is never rewritten.
func (s *VersionService) RestoreVersion(ctx context.Context, documentID, versionID, authorID string) (*VersionResult, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if v.DocumentID != documentID {
		return nil, ErrNotFound
	}

	raw, err := s.VersionContent(ctx, versionID)
	if err != nil {
		return nil, err
	}

	return s.SaveVersion(ctx, documentID, raw, authorID, SaveOptions{})
}
