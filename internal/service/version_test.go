package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WeWriteApp/pagechain/internal/compress"
	"github.com/WeWriteApp/pagechain/internal/content"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/WeWriteApp/pagechain/internal/store"
	"github.com/WeWriteApp/pagechain/internal/tester"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newVersionService() (*VersionService, store.Store) {
	tester.RemoveDBFile()
	tester.Setup()

	st := store.NewGormStore(tester.TestDB())
	backlinks := NewBacklinkService(st, NewNopEmitter())

	return NewVersionService(st, compress.NewNop(), backlinks, nil, NewNopEmitter(), NewOwnerAccessChecker()), st
}

func textContent(text string) string {
	return `[{"type":"paragraph","children":[{"type":"text","text":"` + text + `"}]}]`
}

func TestVersionService_CreateDocument(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, res, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("hello world"), true)
	assert.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.True(t, res.IsNewPage)
	assert.False(t, res.IsNoOp)
	assert.Equal(t, 11, res.Summary.Added)
	assert.Zero(t, res.Summary.Removed)

	// The denormalized content matches the current version's snapshot.
	assert.Equal(t, res.VersionID, doc.CurrentVersionID)
	assert.Equal(t, textContent("hello world"), doc.Content)

	v, err := st.GetVersion(ctx, res.VersionID)
	assert.NoError(t, err)
	assert.True(t, v.IsNewPage)
	assert.False(t, v.IsNoOp)
	assert.Empty(t, v.PreviousVersionID)
	assert.Equal(t, owner, v.AuthorID)
}

func TestVersionService_CreateDocument_InvalidContentLeavesNoRow(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()

	id := uuid.New().String()
	_, _, err := svc.CreateDocument(ctx, id, "My Page", uuid.New().String(), "{not json", true)
	assert.ErrorIs(t, err, ErrValidation)

	// Validation rejects before any write: no orphan document row.
	_, err = st.GetDocument(ctx, id)
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
}

// pointerFailStore delegates to a real store but fails every
// current-version pointer update.
type pointerFailStore struct {
	store.Store
}

func (f *pointerFailStore) SetCurrentVersion(ctx context.Context, docID, expectVersionID, newVersionID, content string, modified time.Time) error {
	return errors.New("store down")
}

func (f *pointerFailStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Transaction(ctx, func(tx store.Store) error {
		return fn(&pointerFailStore{Store: tx})
	})
}

func TestVersionService_CreateDocument_PointerFailureLeavesNoOrphan(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	base := store.NewGormStore(tester.TestDB())
	flaky := &pointerFailStore{Store: base}
	backlinks := NewBacklinkService(flaky, NewNopEmitter())
	svc := NewVersionService(flaky, compress.NewNop(), backlinks, nil, NewNopEmitter(), NewOwnerAccessChecker())
	ctx := context.TODO()

	id := uuid.New().String()
	_, _, err := svc.CreateDocument(ctx, id, "My Page", uuid.New().String(), textContent("hello"), true)
	assert.ErrorIs(t, err, ErrUnavailable)

	// Neither the document nor a stray first version survives.
	_, err = base.GetDocument(ctx, id)
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)

	versions, err := base.ListVersions(ctx, id, 0)
	assert.NoError(t, err)
	assert.Empty(t, versions)
}

func TestVersionService_SaveVersion_Chain(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, first, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("one"), true)
	assert.NoError(t, err)

	second, err := svc.SaveVersion(ctx, doc.ID, textContent("one two"), owner, SaveOptions{})
	assert.NoError(t, err)
	third, err := svc.SaveVersion(ctx, doc.ID, textContent("one two three"), owner, SaveOptions{})
	assert.NoError(t, err)

	chain, err := svc.Chain(ctx, doc.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{third.VersionID, second.VersionID, first.VersionID}, chain)

	got, err := st.GetDocument(ctx, doc.ID)
	assert.NoError(t, err)
	assert.Equal(t, third.VersionID, got.CurrentVersionID)
	assert.Equal(t, textContent("one two three"), got.Content)

	raw, err := svc.VersionContent(ctx, second.VersionID)
	assert.NoError(t, err)
	assert.Equal(t, textContent("one two"), raw)
}

func TestVersionService_SaveVersion_NoOp(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, _, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("hello"), true)
	assert.NoError(t, err)
	before := doc.LastModified

	time.Sleep(20 * time.Millisecond)

	res, err := svc.SaveVersion(ctx, doc.ID, textContent("hello"), owner, SaveOptions{})
	assert.NoError(t, err)
	assert.True(t, res.IsNoOp)
	assert.Equal(t, doc.CurrentVersionID, res.VersionID)

	versions, err := st.ListVersions(ctx, doc.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, versions, 1)

	// A no-op still records recency.
	got, err := st.GetDocument(ctx, doc.ID)
	assert.NoError(t, err)
	assert.True(t, got.LastModified.After(before))
}

func TestVersionService_SaveVersion_FormattingOnlyIsNoOp(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, _, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("hello"), true)
	assert.NoError(t, err)

	// Same text, different tree shape.
	res, err := svc.SaveVersion(ctx, doc.ID, `[{"type":"text","text":"hello"}]`, owner, SaveOptions{})
	assert.NoError(t, err)
	assert.True(t, res.IsNoOp)

	versions, err := st.ListVersions(ctx, doc.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestVersionService_SaveVersion_Validation(t *testing.T) {
	svc, _ := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, _, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("hello"), true)
	assert.NoError(t, err)

	_, err = svc.SaveVersion(ctx, doc.ID, "", owner, SaveOptions{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SaveVersion(ctx, doc.ID, "{broken", owner, SaveOptions{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SaveVersion(ctx, uuid.New().String(), textContent("x"), owner, SaveOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVersionService_SaveVersion_Batching(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, _, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("hello"), true)
	assert.NoError(t, err)

	group := uuid.New().String()
	first, err := svc.SaveVersion(ctx, doc.ID, textContent("hello a"), owner, SaveOptions{BatchGroupID: group})
	assert.NoError(t, err)

	second, err := svc.SaveVersion(ctx, doc.ID, textContent("hello ab"), owner, SaveOptions{BatchGroupID: group})
	assert.NoError(t, err)
	assert.Equal(t, first.VersionID, second.VersionID)
	assert.Equal(t, 2, second.BatchCount)

	third, err := svc.SaveVersion(ctx, doc.ID, textContent("hello abc"), owner, SaveOptions{BatchGroupID: group})
	assert.NoError(t, err)
	assert.Equal(t, first.VersionID, third.VersionID)
	assert.Equal(t, 3, third.BatchCount)

	// One initial version plus one collapsed batch row.
	versions, err := st.ListVersions(ctx, doc.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, versions, 2)

	got, err := st.GetDocument(ctx, doc.ID)
	assert.NoError(t, err)
	assert.Equal(t, first.VersionID, got.CurrentVersionID)
	assert.Equal(t, textContent("hello abc"), got.Content)

	// Let the background recomputes drain, then recompute once more
	// deterministically: the diff covers the whole batch, not the last
	// keystroke.
	time.Sleep(200 * time.Millisecond)
	svc.recomputeBatchDiff(first.VersionID)

	v, err := st.GetVersion(ctx, first.VersionID)
	assert.NoError(t, err)
	assert.Equal(t, 3, v.BatchCount)
	assert.Equal(t, textContent("hello"), v.OriginalContent)
	assert.Equal(t, 4, v.Added)
	assert.Zero(t, v.Removed)
}

func TestVersionService_SaveVersion_BatchingFromNewPage(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	docID := uuid.New().String()
	assert.NoError(t, st.CreateDocument(ctx, &model.Document{
		ID:      docID,
		Title:   "Draft",
		OwnerID: owner,
	}))

	group := uuid.New().String()
	var last *VersionResult
	for _, text := range []string{"h", "he", "hello"} {
		res, err := svc.SaveVersion(ctx, docID, textContent(text), owner, SaveOptions{
			BatchGroupID: group,
			NewPage:      last == nil,
		})
		assert.NoError(t, err)
		last = res
	}

	// The whole editing burst collapses into one row.
	versions, err := st.ListVersions(ctx, docID, 0)
	assert.NoError(t, err)
	assert.Len(t, versions, 1)
	assert.Equal(t, 3, last.BatchCount)

	time.Sleep(200 * time.Millisecond)
	svc.recomputeBatchDiff(last.VersionID)

	// The diff runs against the pre-batch (empty) baseline, not the
	// second save.
	v, err := st.GetVersion(ctx, last.VersionID)
	assert.NoError(t, err)
	assert.True(t, v.IsNewPage)
	assert.Empty(t, v.OriginalContent)
	assert.Equal(t, 5, v.Added)
	assert.Zero(t, v.Removed)
}

func TestVersionService_SaveVersion_RecoversDanglingPointer(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	docID := uuid.New().String()
	assert.NoError(t, st.CreateDocument(ctx, &model.Document{
		ID:               docID,
		Title:            "Damaged",
		OwnerID:          owner,
		Content:          textContent("hello"),
		CurrentVersionID: uuid.New().String(),
	}))

	res, err := svc.SaveVersion(ctx, docID, textContent("hello world"), owner, SaveOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 6, res.Summary.Added)

	chain, err := svc.Chain(ctx, docID)
	assert.NoError(t, err)
	assert.Len(t, chain, 2)
	assert.Equal(t, res.VersionID, chain[0])

	// The synthesized version holds the surviving content.
	recovered, err := svc.VersionContent(ctx, chain[1])
	assert.NoError(t, err)
	assert.Equal(t, textContent("hello"), recovered)
}

func TestVersionService_SaveVersion_Corrupted(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	docID := uuid.New().String()
	assert.NoError(t, st.CreateDocument(ctx, &model.Document{
		ID:               docID,
		Title:            "Damaged",
		OwnerID:          owner,
		CurrentVersionID: uuid.New().String(),
	}))

	_, err := svc.SaveVersion(ctx, docID, textContent("repair"), owner, SaveOptions{})
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestVersionService_SaveVersion_RepairWithoutTextChange(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	// Unparseable stored content disables no-op detection, so a
	// repairing save that changes no text still records a version,
	// flagged as a no-op.
	docID := uuid.New().String()
	assert.NoError(t, st.CreateDocument(ctx, &model.Document{
		ID:               docID,
		Title:            "Damaged",
		OwnerID:          owner,
		Content:          "{broken",
		CurrentVersionID: uuid.New().String(),
	}))

	res, err := svc.SaveVersion(ctx, docID, `[{"type":"paragraph"}]`, owner, SaveOptions{})
	assert.NoError(t, err)
	assert.False(t, res.Summary.HasChanges())

	v, err := st.GetVersion(ctx, res.VersionID)
	assert.NoError(t, err)
	assert.True(t, v.IsNoOp)
	assert.False(t, v.HasChanges)
}

func TestVersionService_ListVersions_Access(t *testing.T) {
	svc, _ := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()
	stranger := uuid.New().String()

	private, _, err := svc.CreateDocument(ctx, "", "Private", owner, textContent("secret"), false)
	assert.NoError(t, err)
	public, _, err := svc.CreateDocument(ctx, "", "Public", owner, textContent("open"), true)
	assert.NoError(t, err)

	_, err = svc.ListVersions(ctx, private.ID, stranger, 0)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	versions, err := svc.ListVersions(ctx, private.ID, owner, 0)
	assert.NoError(t, err)
	assert.Len(t, versions, 1)

	versions, err = svc.ListVersions(ctx, public.ID, stranger, 0)
	assert.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestVersionService_RestoreVersion(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, first, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("original"), true)
	assert.NoError(t, err)

	_, err = svc.SaveVersion(ctx, doc.ID, textContent("rewritten"), owner, SaveOptions{})
	assert.NoError(t, err)

	restored, err := svc.RestoreVersion(ctx, doc.ID, first.VersionID, owner)
	assert.NoError(t, err)
	assert.NotEqual(t, first.VersionID, restored.VersionID)

	// History is append-only: the restore is a third version.
	chain, err := svc.Chain(ctx, doc.ID)
	assert.NoError(t, err)
	assert.Len(t, chain, 3)

	got, err := st.GetDocument(ctx, doc.ID)
	assert.NoError(t, err)
	assert.Equal(t, textContent("original"), got.Content)

	// A version from another document does not restore.
	other, _, err := svc.CreateDocument(ctx, "", "Other", owner, textContent("other"), true)
	assert.NoError(t, err)
	_, err = svc.RestoreVersion(ctx, doc.ID, other.CurrentVersionID, owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVersionService_DeleteDocument(t *testing.T) {
	svc, _ := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()
	stranger := uuid.New().String()

	doc, _, err := svc.CreateDocument(ctx, "", "My Page", owner, textContent("hello"), true)
	assert.NoError(t, err)

	err = svc.DeleteDocument(ctx, doc.ID, stranger)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.NoError(t, svc.DeleteDocument(ctx, doc.ID, owner))

	// The owner still reads the deleted document; everyone else sees
	// not-found, and saves are rejected.
	got, err := svc.GetDocument(ctx, doc.ID, owner)
	assert.NoError(t, err)
	assert.True(t, got.Deleted())

	_, err = svc.GetDocument(ctx, doc.ID, stranger)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SaveVersion(ctx, doc.ID, textContent("zombie"), owner, SaveOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVersionService_GetDocument_PrivateHidden(t *testing.T) {
	svc, _ := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	doc, _, err := svc.CreateDocument(ctx, "", "Private", owner, textContent("secret"), false)
	assert.NoError(t, err)

	// Denial surfaces as not-found so existence does not leak.
	_, err = svc.GetDocument(ctx, doc.ID, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetDocument(ctx, doc.ID, owner)
	assert.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
}

func TestVersionService_ContentRoundTrip(t *testing.T) {
	svc, st := newVersionService()
	ctx := context.TODO()
	owner := uuid.New().String()

	nodes := []content.Node{
		{Type: content.NodeParagraph, Children: []content.Node{
			{Type: content.NodeText, Text: "see "},
			{Type: content.NodeLink, TargetPageID: "b", Label: "Page B", PageTitle: "Page B"},
		}},
	}
	raw, err := content.Marshal(nodes)
	assert.NoError(t, err)

	doc, res, err := svc.CreateDocument(ctx, "", "My Page", owner, raw, true)
	assert.NoError(t, err)

	stored, err := svc.VersionContent(ctx, res.VersionID)
	assert.NoError(t, err)
	assert.Equal(t, raw, stored)

	got, err := st.GetDocument(ctx, doc.ID)
	assert.NoError(t, err)
	assert.Equal(t, raw, got.Content)
}
