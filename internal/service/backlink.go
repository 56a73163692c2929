package service

import (
	"context"
	"time"

	"github.com/WeWriteApp/pagechain/internal/content"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/WeWriteApp/pagechain/internal/store"
	"github.com/sirupsen/logrus"
)

// degradedScanLimit bounds the brute-force fallback when the index
// cannot be read.
const degradedScanLimit = 200

// BacklinkSummary is the read model for a what-links-here view.
type BacklinkSummary struct {
	SourceID     string    `json:"sourceId"`
	SourceTitle  string    `json:"sourceTitle"`
	SourceAuthor string    `json:"sourceAuthor"`
	LinkText     string    `json:"linkText,omitempty"`
	LinkURL      string    `json:"linkUrl"`
	LastModified time.Time `json:"lastModified"`
}

// NewBacklinkService creates the backlink index maintainer.
func NewBacklinkService(st store.Store, notifier Notifier) *BacklinkService {
	return &BacklinkService{
		store:    st,
		notifier: notifier,
	}
}

// BacklinkService keeps the derived what-links-here index in sync with
// saves, deletes, and visibility changes. It never edits entries in
// place: every save rewrites the source's entries wholesale.
type BacklinkService struct {
	store    store.Store
	notifier Notifier
}

// OnDocumentSaved rebuilds the index rows sourced from a document and
// emits mention notifications for the fresh entries. Returns the
// target page ids so the caller can invalidate their graph entries.
// Best effort: failures are logged and dropped.
func (b *BacklinkService) OnDocumentSaved(ctx context.Context, documentID, title, author, rawContent string, isPublic bool, lastModified time.Time) []string {
	nodes, err := content.Parse(rawContent)
	if err != nil {
		logrus.Errorf("backlink rebuild: unparseable content for %s: %v", documentID, err)
		return nil
	}

	var entries []*model.BacklinkEntry
	var targets []string
	for _, rec := range content.ExtractLinks(nodes) {
		if rec.Kind != content.KindPage {
			continue
		}
		entries = append(entries, &model.BacklinkEntry{
			ID:           model.BacklinkID(documentID, rec.TargetID),
			SourceID:     documentID,
			SourceTitle:  title,
			SourceAuthor: author,
			TargetID:     rec.TargetID,
			LinkText:     rec.Label,
			LinkURL:      rec.URL,
			IsPublic:     isPublic,
			LastModified: lastModified,
		})
		targets = append(targets, rec.TargetID)
	}

	if err := b.store.ReplaceBacklinks(ctx, documentID, entries); err != nil {
		logrus.Errorf("backlink rebuild failed for %s: %v", documentID, err)
		return nil
	}

	for _, entry := range entries {
		b.notifyMention(ctx, entry)
	}

	return targets
}

// notifyMention tells the target page's owner that someone linked to
// their page. Self-links and self-mentions are skipped.
func (b *BacklinkService) notifyMention(ctx context.Context, entry *model.BacklinkEntry) {
	if entry.TargetID == entry.SourceID {
		return
	}

	target, err := b.store.GetDocument(ctx, entry.TargetID)
	if err != nil {
		if !store.IsNotFound(err) {
			logrus.Errorf("mention lookup failed for %s: %v", entry.TargetID, err)
		}
		return
	}
	if target.OwnerID == entry.SourceAuthor {
		return
	}

	err = b.notifier.NotifyMention(ctx, MentionEvent{
		TargetUserID: target.OwnerID,
		SourcePageID: entry.SourceID,
		SourceTitle:  entry.SourceTitle,
		LinkText:     entry.LinkText,
	})
	if err != nil {
		logrus.Errorf("mention notify failed for %s: %v", entry.TargetID, err)
	}
}

// GetBacklinks returns public entries pointing at targetID, most
// recently modified first. When the index read fails it degrades to a
// bounded live scan of recent public documents; degraded results may
// omit link text.
func (b *BacklinkService) GetBacklinks(ctx context.Context, targetID string, limit int) ([]BacklinkSummary, error) {
	entries, err := b.store.ListBacklinks(ctx, targetID, limit)
	if err != nil {
		logrus.Warnf("backlink index unavailable for %s, degrading to live scan: %v", targetID, err)
		return b.scanBacklinks(ctx, targetID, limit)
	}

	summaries := make([]BacklinkSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, BacklinkSummary{
			SourceID:     e.SourceID,
			SourceTitle:  e.SourceTitle,
			SourceAuthor: e.SourceAuthor,
			LinkText:     e.LinkText,
			LinkURL:      e.LinkURL,
			LastModified: e.LastModified,
		})
	}

	return summaries, nil
}

// scanBacklinks is the degraded-mode fallback: extract links live from
// recent public documents and keep the ones matching the target.
func (b *BacklinkService) scanBacklinks(ctx context.Context, targetID string, limit int) ([]BacklinkSummary, error) {
	docs, err := b.store.ListRecentPublicDocuments(ctx, degradedScanLimit)
	if err != nil {
		return nil, storeErr(err)
	}

	var summaries []BacklinkSummary
	for _, doc := range docs {
		if doc.ID == targetID {
			continue
		}
		nodes, err := content.Parse(doc.Content)
		if err != nil {
			continue
		}
		for _, rec := range content.ExtractLinks(nodes) {
			if rec.Kind != content.KindPage || rec.TargetID != targetID {
				continue
			}
			summaries = append(summaries, BacklinkSummary{
				SourceID:     doc.ID,
				SourceTitle:  doc.Title,
				SourceAuthor: doc.OwnerID,
				LinkURL:      rec.URL,
				LastModified: doc.LastModified,
			})
			break
		}
		if limit > 0 && len(summaries) >= limit {
			break
		}
	}

	return summaries, nil
}

// RemoveDocument drops index entries in both directions for a deleted
// document. Returns the neighbor page ids on both sides so their graph
// entries can be invalidated.
func (b *BacklinkService) RemoveDocument(ctx context.Context, documentID string) []string {
	var neighbors []string

	sources, err := b.store.ListBacklinkSources(ctx, documentID)
	if err != nil {
		logrus.Errorf("backlink source lookup failed for %s: %v", documentID, err)
	}
	neighbors = append(neighbors, sources...)

	targets, err := b.store.ListBacklinkTargets(ctx, documentID)
	if err != nil {
		logrus.Errorf("backlink target lookup failed for %s: %v", documentID, err)
	}
	neighbors = append(neighbors, targets...)

	if err := b.store.DeleteBacklinksForDocument(ctx, documentID); err != nil {
		logrus.Errorf("backlink removal failed for %s: %v", documentID, err)
	}

	return neighbors
}

// UpdateVisibility mirrors a source document's visibility onto all
// entries it sourced. Backlink visibility follows the source, never
// the target.
func (b *BacklinkService) UpdateVisibility(ctx context.Context, documentID string, isPublic bool) {
	if err := b.store.UpdateBacklinkVisibility(ctx, documentID, isPublic); err != nil {
		logrus.Errorf("backlink visibility update failed for %s: %v", documentID, err)
	}
}
