package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func newGraphCache(t *testing.T) (*GraphCache, *Redis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	r := NewRedis(mr.Addr())
	t.Cleanup(func() { _ = r.Close() })

	return NewGraphCache(r, time.Hour), r
}

func TestGraphCache_SetGet(t *testing.T) {
	g, _ := newGraphCache(t)
	ctx := context.TODO()

	entry := &model.GraphEntry{
		PageID:   "a",
		Incoming: []model.GraphConnection{{PageID: "b", Title: "Page B"}},
	}
	assert.NoError(t, g.Set(ctx, "a", entry))

	got := g.Get(ctx, "a")
	assert.NotNil(t, got)
	assert.Equal(t, "a", got.PageID)
	assert.Equal(t, entry.Incoming, got.Incoming)
	assert.Equal(t, model.GraphSchemaVersion, got.SchemaVersion)
	assert.False(t, got.CachedAt.IsZero())
}

func TestGraphCache_MissIsNil(t *testing.T) {
	g, _ := newGraphCache(t)
	assert.Nil(t, g.Get(context.TODO(), "absent"))
}

func TestGraphCache_SchemaMismatchIsMiss(t *testing.T) {
	g, r := newGraphCache(t)
	ctx := context.TODO()

	stale, _ := json.Marshal(&model.GraphEntry{
		PageID:        "a",
		SchemaVersion: model.GraphSchemaVersion - 1,
		CachedAt:      time.Now(),
	})
	assert.NoError(t, r.Set(ctx, "graph:a", stale, time.Hour))

	assert.Nil(t, g.Get(ctx, "a"))
	assert.False(t, g.IsValid(ctx, "a", time.Hour))
}

func TestGraphCache_IsValid(t *testing.T) {
	g, _ := newGraphCache(t)
	ctx := context.TODO()

	assert.False(t, g.IsValid(ctx, "a", time.Hour))

	assert.NoError(t, g.Set(ctx, "a", &model.GraphEntry{PageID: "a"}))
	assert.True(t, g.IsValid(ctx, "a", time.Hour))
	// maxAge zero always forces a recompute.
	assert.False(t, g.IsValid(ctx, "a", 0))
}

func TestGraphCache_Invalidate(t *testing.T) {
	g, _ := newGraphCache(t)
	ctx := context.TODO()

	assert.NoError(t, g.Set(ctx, "a", &model.GraphEntry{PageID: "a"}))
	assert.NoError(t, g.Set(ctx, "b", &model.GraphEntry{PageID: "b"}))

	g.Invalidate(ctx, "a")
	assert.Nil(t, g.Get(ctx, "a"))
	assert.NotNil(t, g.Get(ctx, "b"))

	g.InvalidateMany(ctx, []string{"b"})
	assert.Nil(t, g.Get(ctx, "b"))
}

func TestRedis_Miss(t *testing.T) {
	_, r := newGraphCache(t)

	_, err := r.Get(context.TODO(), "nope")
	assert.ErrorIs(t, err, ErrMiss)
}
