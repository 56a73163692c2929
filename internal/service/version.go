package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/WeWriteApp/pagechain/internal/cache"
	"github.com/WeWriteApp/pagechain/internal/compress"
	"github.com/WeWriteApp/pagechain/internal/content"
	"github.com/WeWriteApp/pagechain/internal/diff"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/WeWriteApp/pagechain/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SaveOptions tune a single save.
type SaveOptions struct {
	// BatchGroupID groups rapid successive edits into one version.
	BatchGroupID string
	// PreviousContent overrides the prior-content baseline when the
	// caller already knows the true prior state.
	PreviousContent *string
	// NewPage marks the very first save of a brand-new document, where
	// prior content is definitionally absent rather than empty.
	NewPage bool
}

// VersionResult is the outcome of a save.
type VersionResult struct {
	VersionID  string       `json:"versionId"`
	IsNoOp     bool         `json:"isNoOp"`
	IsNewPage  bool         `json:"isNewPage"`
	BatchCount int          `json:"batchCount,omitempty"`
	Summary    diff.Summary `json:"summary"`
}

// NewVersionService creates the version chain manager.
func NewVersionService(st store.Store, codec compress.Compress, backlinks *BacklinkService, graphs *cache.GraphCache, search SearchSync, access AccessChecker) *VersionService {
	return &VersionService{
		store:     st,
		codec:     codec,
		backlinks: backlinks,
		graphs:    graphs,
		search:    search,
		access:    access,
		opTimeout: 10 * time.Second,
		locks:     make(map[string]*sync.Mutex),
	}
}

// VersionService orchestrates document and version writes: no-op
// detection, batching, recovery, and the background fanout after a
// successful save. Saves to the same document are serialized through a
// per-document lock, otherwise the batch lookup is a read-then-write
// race that can duplicate batch rows.
type VersionService struct {
	store     store.Store
	codec     compress.Compress
	backlinks *BacklinkService
	graphs    *cache.GraphCache
	search    SearchSync
	access    AccessChecker
	opTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (s *VersionService) lockDocument(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// storeErr maps store failures onto the service taxonomy.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDocumentNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	default:
		// Covers plain store failures and context deadline expiry alike.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (s *VersionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// SaveVersion runs one save through the version chain state machine.
func (s *VersionService) SaveVersion(ctx context.Context, documentID, rawContent, authorID string, opts SaveOptions) (*VersionResult, error) {
	if _, err := content.Parse(rawContent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	unlock := s.lockDocument(documentID)
	defer unlock()

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeErr(err)
	}
	if doc.Deleted() {
		return nil, ErrNotFound
	}

	current, err := s.resolveCurrent(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	// No-op detection, skipped when the stored content itself does not
	// parse: a corrupt stored tree must not block a repairing save.
	if _, perr := content.Parse(doc.Content); perr == nil && current != nil {
		if !content.HasContentChanged(rawContent, doc.Content) {
			if terr := s.store.TouchDocument(ctx, doc.ID, time.Now()); terr != nil {
				return nil, storeErr(terr)
			}
			return &VersionResult{VersionID: doc.CurrentVersionID, IsNoOp: true}, nil
		}
	}

	if opts.BatchGroupID != "" && doc.CurrentVersionID != "" {
		res, ok, err := s.saveIntoBatch(ctx, doc, rawContent, opts.BatchGroupID)
		if err != nil {
			return nil, err
		}
		if ok {
			return res, nil
		}
	}

	return s.saveNewVersion(ctx, doc, rawContent, authorID, opts)
}

// resolveCurrent loads the document's current version, synthesizing a
// recovery version when the pointer is dangling but denormalized
// content survives. Returns nil current for a brand-new page.
func (s *VersionService) resolveCurrent(ctx context.Context, doc *model.Document, opts SaveOptions) (*model.Version, error) {
	if doc.CurrentVersionID != "" {
		current, err := s.store.GetVersion(ctx, doc.CurrentVersionID)
		if err == nil {
			return current, nil
		}
		if !store.IsNotFound(err) {
			return nil, storeErr(err)
		}
	}

	if opts.NewPage || opts.PreviousContent != nil {
		return nil, nil
	}

	if strings.TrimSpace(doc.Content) == "" {
		return nil, ErrCorrupted
	}

	// Dangling pointer with surviving content: self-heal by writing a
	// recovery version and linking it as current.
	encoded, err := s.codec.Encode([]byte(doc.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	recovery := &model.Version{
		ID:          uuid.New().String(),
		DocumentID:  doc.ID,
		Content:     string(encoded),
		Compression: s.codec.Name(),
		AuthorID:    doc.OwnerID,
		HasChanges:  true,
	}

	wctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err = s.store.Transaction(wctx, func(tx store.Store) error {
		if err := tx.CreateVersion(wctx, recovery); err != nil {
			return err
		}
		return tx.SetCurrentVersion(wctx, doc.ID, doc.CurrentVersionID, recovery.ID, doc.Content, time.Now())
	})
	if err != nil {
		return nil, storeErr(err)
	}

	logrus.Warnf("synthesized recovery version %s for document %s", recovery.ID, doc.ID)
	doc.CurrentVersionID = recovery.ID

	return recovery, nil
}

// saveIntoBatch folds a save into the existing version of its batch
// group: content and timestamps update synchronously, the cumulative
// diff against the batch baseline is recomputed in the background.
func (s *VersionService) saveIntoBatch(ctx context.Context, doc *model.Document, rawContent, batchGroupID string) (*VersionResult, bool, error) {
	batch, err := s.store.GetBatchVersion(ctx, doc.ID, batchGroupID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, storeErr(err)
	}

	encoded, err := s.codec.Encode([]byte(rawContent))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := time.Now()
	batch.Content = string(encoded)
	batch.Compression = s.codec.Name()
	batch.BatchCount++

	doc.Content = rawContent
	doc.LastModified = now

	wctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err = s.store.Transaction(wctx, func(tx store.Store) error {
		if err := tx.UpdateVersion(wctx, batch); err != nil {
			return err
		}
		return tx.UpdateDocument(wctx, doc)
	})
	if err != nil {
		return nil, false, storeErr(err)
	}

	go s.recomputeBatchDiff(batch.ID)
	go s.afterSave(doc)

	return &VersionResult{VersionID: batch.ID, BatchCount: batch.BatchCount}, true, nil
}

func (s *VersionService) saveNewVersion(ctx context.Context, doc *model.Document, rawContent, authorID string, opts SaveOptions) (*VersionResult, error) {
	prevContent := doc.Content
	prevAbsent := opts.NewPage
	if opts.PreviousContent != nil {
		prevContent = *opts.PreviousContent
	}
	if prevAbsent {
		prevContent = ""
	}

	summary := diff.Compute(textOf(rawContent), textOf(prevContent))

	encoded, err := s.codec.Encode([]byte(rawContent))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := time.Now()
	version := &model.Version{
		ID:                uuid.New().String(),
		DocumentID:        doc.ID,
		PreviousVersionID: doc.CurrentVersionID,
		Content:           string(encoded),
		Compression:       s.codec.Name(),
		AuthorID:          authorID,
		Added:             summary.Added,
		Removed:           summary.Removed,
		HasChanges:        summary.HasChanges(),
		Preview:           diff.EncodePreview(summary.Preview),
		IsNoOp:            !prevAbsent && !summary.HasChanges(),
		IsNewPage:         prevAbsent,
		BatchGroupID:      opts.BatchGroupID,
		BatchCount:        1,
	}
	if opts.BatchGroupID != "" {
		// Baseline for cumulative diffing, captured once per group.
		version.OriginalContent = prevContent
	}

	wctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err = s.store.Transaction(wctx, func(tx store.Store) error {
		if err := tx.CreateVersion(wctx, version); err != nil {
			return err
		}
		return tx.SetCurrentVersion(wctx, doc.ID, doc.CurrentVersionID, version.ID, rawContent, now)
	})
	if err != nil {
		// A brand-new document must not survive without a first
		// version: no orphan documents. A lost pointer race means
		// another writer landed the first version, so the document is
		// not an orphan.
		if prevAbsent && !errors.Is(err, store.ErrConflict) {
			if derr := s.store.EraseDocument(ctx, doc.ID); derr != nil {
				logrus.Errorf("failed to erase orphan document %s: %v", doc.ID, derr)
			}
		}
		return nil, storeErr(err)
	}

	doc.CurrentVersionID = version.ID
	doc.Content = rawContent
	doc.LastModified = now

	go s.afterSave(doc)

	return &VersionResult{
		VersionID: version.ID,
		IsNoOp:    version.IsNoOp,
		IsNewPage: prevAbsent,
		Summary:   summary,
	}, nil
}

// afterSave is the deferred fanout after a successful save: backlink
// index rebuild, graph cache invalidation, search sync. Runs past the
// response boundary; failures are logged, never surfaced, never
// retried.
func (s *VersionService) afterSave(doc *model.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	targets := s.backlinks.OnDocumentSaved(ctx, doc.ID, doc.Title, doc.OwnerID, doc.Content, doc.IsPublic, doc.LastModified)

	if s.graphs != nil {
		s.graphs.InvalidateMany(ctx, append(targets, doc.ID))
	}

	if err := s.search.Sync(ctx, SearchRecord{
		PageID:       doc.ID,
		Title:        doc.Title,
		Content:      doc.Content,
		AuthorID:     doc.OwnerID,
		IsPublic:     doc.IsPublic,
		LastModified: doc.LastModified,
	}); err != nil {
		logrus.Errorf("search sync failed for document %s: %v", doc.ID, err)
	}
}

// recomputeBatchDiff refreshes a batched version's diff against the
// batch's captured baseline, so the visible diff covers the whole
// editing session instead of the last keystroke.
func (s *VersionService) recomputeBatchDiff(versionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		logrus.Errorf("batch diff recompute: load version %s: %v", versionID, err)
		return
	}

	raw, err := compress.ForName(v.Compression).Decode([]byte(v.Content))
	if err != nil {
		logrus.Errorf("batch diff recompute: decode version %s: %v", versionID, err)
		return
	}

	summary := diff.Compute(textOf(string(raw)), textOf(v.OriginalContent))

	// Only the diff columns are written: a full-row save here could
	// race a later batched save and revert its content.
	err = s.store.UpdateVersionDiff(ctx, v.ID, summary.Added, summary.Removed, summary.HasChanges(), diff.EncodePreview(summary.Preview))
	if err != nil {
		logrus.Errorf("batch diff recompute: update version %s: %v", versionID, err)
	}
}

// textOf extracts the diffable plain text of raw content; unparseable
// or empty content contributes nothing.
func textOf(raw string) string {
	nodes, err := content.Parse(raw)
	if err != nil {
		return ""
	}
	return content.ExtractText(nodes)
}

// ListVersions returns a document's history, newest first, after an
// access check.
func (s *VersionService) ListVersions(ctx context.Context, documentID, userID string, limit int) ([]*model.Version, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeErr(err)
	}

	if d := s.access.HasAccess(ctx, doc, userID); !d.HasAccess {
		logrus.Infof("version list denied for user %s on document %s: %s", userID, documentID, d.Reason)
		return nil, ErrPermissionDenied
	}

	versions, err := s.store.ListVersions(ctx, documentID, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return versions, nil
}

// Chain walks the version chain from the document's current version,
// newest to oldest, guarding against cycles.
func (s *VersionService) Chain(ctx context.Context, documentID string) ([]string, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeErr(err)
	}

	seen := make(map[string]bool)
	var ids []string
	cursor := doc.CurrentVersionID
	for cursor != "" {
		if seen[cursor] {
			return ids, fmt.Errorf("%w: version chain cycle at %s", ErrCorrupted, cursor)
		}
		seen[cursor] = true
		ids = append(ids, cursor)

		v, err := s.store.GetVersion(ctx, cursor)
		if err != nil {
			if store.IsNotFound(err) {
				break
			}
			return nil, storeErr(err)
		}
		cursor = v.PreviousVersionID
	}

	return ids, nil
}

// VersionContent decodes the stored snapshot of one version.
func (s *VersionService) VersionContent(ctx context.Context, versionID string) (string, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return "", storeErr(err)
	}

	raw, err := compress.ForName(v.Compression).Decode([]byte(v.Content))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return string(raw), nil
}
