package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/WeWriteApp/pagechain/internal/content"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/WeWriteApp/pagechain/internal/store"
	"github.com/WeWriteApp/pagechain/internal/tester"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []MentionEvent
}

func (r *recordingNotifier) NotifyMention(ctx context.Context, event MentionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) Events() []MentionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MentionEvent(nil), r.events...)
}

func newBacklinkService() (*BacklinkService, *recordingNotifier, store.Store) {
	tester.RemoveDBFile()
	tester.Setup()

	st := store.NewGormStore(tester.TestDB())
	notifier := &recordingNotifier{}

	return NewBacklinkService(st, notifier), notifier, st
}

func linkedContent(targets ...string) string {
	var children []content.Node
	for _, target := range targets {
		children = append(children, content.Node{
			Type:         content.NodeLink,
			TargetPageID: target,
			Label:        "Page " + target,
		})
	}
	raw, err := content.Marshal([]content.Node{{Type: content.NodeParagraph, Children: children}})
	if err != nil {
		panic(err)
	}
	return raw
}

func seedDocument(st store.Store, id, title, owner string, public bool) {
	err := st.CreateDocument(context.TODO(), &model.Document{
		ID:       id,
		Title:    title,
		OwnerID:  owner,
		IsPublic: public,
		Content:  textContent(title),
	})
	if err != nil {
		panic(err)
	}
}

func TestBacklinkService_OnDocumentSaved(t *testing.T) {
	svc, _, st := newBacklinkService()
	ctx := context.TODO()

	a, b, c := uuid.New().String(), uuid.New().String(), uuid.New().String()
	seedDocument(st, b, "Page B", uuid.New().String(), true)
	seedDocument(st, c, "Page C", uuid.New().String(), true)

	now := time.Now()
	targets := svc.OnDocumentSaved(ctx, a, "Page A", uuid.New().String(), linkedContent(b, c), true, now)
	assert.ElementsMatch(t, []string{b, c}, targets)

	entries, err := svc.GetBacklinks(ctx, b, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, a, entries[0].SourceID)
	assert.Equal(t, "Page A", entries[0].SourceTitle)
	assert.Equal(t, "Page "+b, entries[0].LinkText)
	assert.Equal(t, "/"+b, entries[0].LinkURL)

	// A later save that drops the link to C rewrites the index
	// wholesale.
	targets = svc.OnDocumentSaved(ctx, a, "Page A", uuid.New().String(), linkedContent(b), true, now)
	assert.Equal(t, []string{b}, targets)

	entries, err = svc.GetBacklinks(ctx, c, 0)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBacklinkService_Mentions(t *testing.T) {
	svc, notifier, st := newBacklinkService()
	ctx := context.TODO()

	author := uuid.New().String()
	a, b, c := uuid.New().String(), uuid.New().String(), uuid.New().String()
	bOwner := uuid.New().String()
	seedDocument(st, b, "Page B", bOwner, true)
	// C is the author's own page: linking it must not notify.
	seedDocument(st, c, "Page C", author, true)

	svc.OnDocumentSaved(ctx, a, "Page A", author, linkedContent(b, c, a), true, time.Now())

	events := notifier.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, bOwner, events[0].TargetUserID)
	assert.Equal(t, a, events[0].SourcePageID)
	assert.Equal(t, "Page A", events[0].SourceTitle)
}

func TestBacklinkService_UnparseableContentKeepsIndex(t *testing.T) {
	svc, _, st := newBacklinkService()
	ctx := context.TODO()

	a, b := uuid.New().String(), uuid.New().String()
	seedDocument(st, b, "Page B", uuid.New().String(), true)

	svc.OnDocumentSaved(ctx, a, "Page A", uuid.New().String(), linkedContent(b), true, time.Now())

	// A save with broken content must not wipe the previous entries.
	targets := svc.OnDocumentSaved(ctx, a, "Page A", uuid.New().String(), "{broken", true, time.Now())
	assert.Nil(t, targets)

	entries, err := svc.GetBacklinks(ctx, b, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBacklinkService_RemoveDocument(t *testing.T) {
	svc, _, st := newBacklinkService()
	ctx := context.TODO()

	a, b, c := uuid.New().String(), uuid.New().String(), uuid.New().String()
	seedDocument(st, a, "Page A", uuid.New().String(), true)
	seedDocument(st, b, "Page B", uuid.New().String(), true)
	seedDocument(st, c, "Page C", uuid.New().String(), true)

	svc.OnDocumentSaved(ctx, a, "Page A", uuid.New().String(), linkedContent(b), true, time.Now())
	svc.OnDocumentSaved(ctx, c, "Page C", uuid.New().String(), linkedContent(a), true, time.Now())

	neighbors := svc.RemoveDocument(ctx, a)
	assert.ElementsMatch(t, []string{b, c}, neighbors)

	entries, err := svc.GetBacklinks(ctx, b, 0)
	assert.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = svc.GetBacklinks(ctx, a, 0)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBacklinkService_UpdateVisibility(t *testing.T) {
	svc, _, st := newBacklinkService()
	ctx := context.TODO()

	a, b := uuid.New().String(), uuid.New().String()
	seedDocument(st, b, "Page B", uuid.New().String(), true)

	svc.OnDocumentSaved(ctx, a, "Page A", uuid.New().String(), linkedContent(b), true, time.Now())

	svc.UpdateVisibility(ctx, a, false)
	entries, err := svc.GetBacklinks(ctx, b, 0)
	assert.NoError(t, err)
	assert.Empty(t, entries)

	svc.UpdateVisibility(ctx, a, true)
	entries, err = svc.GetBacklinks(ctx, b, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBacklinkService_ScanFallback(t *testing.T) {
	svc, _, st := newBacklinkService()
	ctx := context.TODO()

	b := uuid.New().String()
	seedDocument(st, b, "Page B", uuid.New().String(), true)

	a := uuid.New().String()
	assert.NoError(t, st.CreateDocument(ctx, &model.Document{
		ID:           a,
		Title:        "Page A",
		OwnerID:      uuid.New().String(),
		IsPublic:     true,
		Content:      linkedContent(b),
		LastModified: time.Now(),
	}))

	// Nothing indexed: the degraded live scan still finds the link.
	summaries, err := svc.scanBacklinks(ctx, b, 0)
	assert.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, a, summaries[0].SourceID)
	assert.Equal(t, "Page A", summaries[0].SourceTitle)
	// Degraded results carry no stored link text.
	assert.Empty(t, summaries[0].LinkText)
}
