package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/WeWriteApp/pagechain/internal/cache"
	"github.com/WeWriteApp/pagechain/internal/content"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/WeWriteApp/pagechain/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	// propagateBatchSize bounds how many rewritten documents are
	// committed per transaction.
	propagateBatchSize = 500
	// titleUpdatedChannel is the pub/sub channel live views subscribe
	// to for hot-swapping renamed titles.
	titleUpdatedChannel = "pagechain:title-updated"
)

// NewPropagationService creates the title propagation engine.
func NewPropagationService(st store.Store, graphs *cache.GraphCache, broadcast Broadcaster) *PropagationService {
	return &PropagationService{
		store:     st,
		graphs:    graphs,
		broadcast: broadcast,
	}
}

// PropagationService rewrites auto-generated link labels across the
// corpus when a target page is renamed. It runs as a background job,
// not on the request path.
type PropagationService struct {
	store     store.Store
	graphs    *cache.GraphCache
	broadcast Broadcaster
}

// PropagateTitleChange rewrites every auto-labeled link to targetID
// from oldTitle to newTitle. Candidate sources come from the backlink
// index; when that read fails it falls back to a full corpus scan.
// Writes are committed in bounded batches, and a title-updated event
// is broadcast on completion. Returns how many documents changed.
func (p *PropagationService) PropagateTitleChange(ctx context.Context, targetID, newTitle, oldTitle string) (int, error) {
	changedIDs, err := p.rewriteFromIndex(ctx, targetID, newTitle, oldTitle)
	if err != nil {
		logrus.Warnf("title propagation falling back to corpus scan for %s: %v", targetID, err)
		changedIDs, err = p.rewriteFromScan(ctx, targetID, newTitle, oldTitle)
		if err != nil {
			return 0, storeErr(err)
		}
	}

	if p.graphs != nil {
		p.graphs.InvalidateMany(ctx, append(changedIDs, targetID))
	}

	p.announce(ctx, targetID, newTitle)

	return len(changedIDs), nil
}

func (p *PropagationService) rewriteFromIndex(ctx context.Context, targetID, newTitle, oldTitle string) ([]string, error) {
	sources, err := p.store.ListBacklinkSources(ctx, targetID)
	if err != nil {
		return nil, err
	}

	var changed []string
	var batch []*model.Document
	for _, sourceID := range sources {
		doc, err := p.store.GetDocument(ctx, sourceID)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if doc.Deleted() {
			continue
		}

		if p.rewriteDocument(doc, targetID, oldTitle, newTitle) {
			batch = append(batch, doc)
			changed = append(changed, doc.ID)
		}

		if len(batch) >= propagateBatchSize {
			if err := p.commitBatch(ctx, batch); err != nil {
				return nil, err
			}
			batch = nil
		}
	}

	if err := p.commitBatch(ctx, batch); err != nil {
		return nil, err
	}

	return changed, nil
}

// rewriteFromScan is the fallback path: iterate the whole corpus in
// batches and rewrite matches as they are found.
func (p *PropagationService) rewriteFromScan(ctx context.Context, targetID, newTitle, oldTitle string) ([]string, error) {
	var changed []string
	err := p.store.ScanDocuments(ctx, propagateBatchSize, func(docs []*model.Document) error {
		var batch []*model.Document
		for _, doc := range docs {
			if p.rewriteDocument(doc, targetID, oldTitle, newTitle) {
				batch = append(batch, doc)
				changed = append(changed, doc.ID)
			}
		}
		return p.commitBatch(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// rewriteDocument applies the label rewrite to one document's content
// in memory. Returns whether the document needs to be written back.
func (p *PropagationService) rewriteDocument(doc *model.Document, targetID, oldTitle, newTitle string) bool {
	nodes, err := content.Parse(doc.Content)
	if err != nil {
		return false
	}

	nodes, changed := content.RewriteTitle(nodes, targetID, oldTitle, newTitle)
	if !changed {
		return false
	}

	raw, err := content.Marshal(nodes)
	if err != nil {
		logrus.Errorf("title propagation: re-encode failed for %s: %v", doc.ID, err)
		return false
	}
	doc.Content = raw

	return true
}

func (p *PropagationService) commitBatch(ctx context.Context, batch []*model.Document) error {
	if len(batch) == 0 {
		return nil
	}
	return p.store.Transaction(ctx, func(tx store.Store) error {
		for _, doc := range batch {
			if err := tx.UpdateDocument(ctx, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// announce broadcasts the rename so live views can hot-swap displayed
// titles without a reload. Best effort.
func (p *PropagationService) announce(ctx context.Context, targetID, newTitle string) {
	if p.broadcast == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"pageId":    targetID,
		"title":     newTitle,
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	if err := p.broadcast.Publish(ctx, titleUpdatedChannel, payload); err != nil {
		logrus.Warnf("title-updated broadcast failed for %s: %v", targetID, err)
	}
}
