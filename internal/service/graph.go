package service

import (
	"context"
	"time"

	"github.com/WeWriteApp/pagechain/internal/cache"
	"github.com/WeWriteApp/pagechain/internal/content"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/WeWriteApp/pagechain/internal/store"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/singleflight"
)

// hopLimit bounds how many connections each hop level carries.
const hopLimit = 50

// NewGraphService creates the connection summary service.
func NewGraphService(st store.Store, graphs *cache.GraphCache) *GraphService {
	return &GraphService{
		store:  st,
		graphs: graphs,
	}
}

// GraphService computes best-effort multi-hop connection summaries per
// document and keeps them in the graph cache. Concurrent recomputation
// for the same page collapses into one flight.
type GraphService struct {
	store  store.Store
	graphs *cache.GraphCache
	group  singleflight.Group
}

// Summary returns the connection summary for a page, from cache when
// fresh enough, recomputing otherwise.
func (g *GraphService) Summary(ctx context.Context, pageID string, maxAge time.Duration) (*model.GraphEntry, error) {
	if g.graphs != nil && g.graphs.IsValid(ctx, pageID, maxAge) {
		if entry := g.graphs.Get(ctx, pageID); entry != nil {
			return entry, nil
		}
	}

	v, err, _ := g.group.Do(pageID, func() (interface{}, error) {
		entry, err := g.compute(ctx, pageID)
		if err != nil {
			return nil, err
		}
		if g.graphs != nil {
			// Cache write is best effort.
			_ = g.graphs.Set(ctx, pageID, entry)
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*model.GraphEntry), nil
}

func (g *GraphService) compute(ctx context.Context, pageID string) (*model.GraphEntry, error) {
	doc, err := g.store.GetDocument(ctx, pageID)
	if err != nil {
		return nil, storeErr(err)
	}

	outgoing := g.outgoingIDs(ctx, doc)
	incoming, err := g.incomingIDs(ctx, pageID)
	if err != nil {
		return nil, storeErr(err)
	}

	both := outgoing.Intersect(incoming)
	direct := outgoing.Union(incoming)
	direct.Add(pageID)

	secondHop := g.expand(ctx, direct, direct)
	thirdFrontier := direct.Union(secondHop)
	thirdHop := g.expand(ctx, secondHop, thirdFrontier)

	entry := &model.GraphEntry{
		PageID:        pageID,
		Incoming:      g.connections(ctx, incoming),
		Outgoing:      g.connections(ctx, outgoing),
		Bidirectional: g.connections(ctx, both),
		SecondHop:     g.connections(ctx, secondHop),
		ThirdHop:      g.connections(ctx, thirdHop),
	}
	entry.Stats = model.GraphStats{
		IncomingCount:      len(entry.Incoming),
		OutgoingCount:      len(entry.Outgoing),
		BidirectionalCount: len(entry.Bidirectional),
		SecondHopCount:     len(entry.SecondHop),
		ThirdHopCount:      len(entry.ThirdHop),
	}

	return entry, nil
}

// outgoingIDs extracts the page-kind link targets of a document.
func (g *GraphService) outgoingIDs(ctx context.Context, doc *model.Document) mapset.Set[string] {
	out := mapset.NewSet[string]()
	nodes, err := content.Parse(doc.Content)
	if err != nil {
		return out
	}
	for _, rec := range content.ExtractLinks(nodes) {
		if rec.Kind == content.KindPage && rec.TargetID != doc.ID {
			out.Add(rec.TargetID)
		}
	}
	return out
}

func (g *GraphService) incomingIDs(ctx context.Context, pageID string) (mapset.Set[string], error) {
	in := mapset.NewSet[string]()
	sources, err := g.store.ListBacklinkSources(ctx, pageID)
	if err != nil {
		return in, err
	}
	for _, s := range sources {
		in.Add(s)
	}
	return in, nil
}

// expand walks one hop out from frontier, excluding everything already
// seen. Bounded by hopLimit; the summary is a sample, not a census.
// Iterates a snapshot slice because the walk can stop early, and an
// abandoned set iterator leaves its feeding goroutine blocked.
func (g *GraphService) expand(ctx context.Context, frontier, seen mapset.Set[string]) mapset.Set[string] {
	next := mapset.NewSet[string]()
	for _, id := range frontier.ToSlice() {
		if next.Cardinality() >= hopLimit {
			break
		}

		doc, err := g.store.GetDocument(ctx, id)
		if err == nil && !doc.Deleted() {
			for target := range g.outgoingIDs(ctx, doc).Iter() {
				if !seen.Contains(target) {
					next.Add(target)
				}
			}
		}

		sources, err := g.store.ListBacklinkSources(ctx, id)
		if err != nil {
			continue
		}
		for _, s := range sources {
			if !seen.Contains(s) {
				next.Add(s)
			}
		}
	}
	return next
}

// connections resolves ids to titled connections, dropping deleted and
// unresolvable pages. Output is sorted for determinism.
func (g *GraphService) connections(ctx context.Context, ids mapset.Set[string]) []model.GraphConnection {
	conns := make([]model.GraphConnection, 0, ids.Cardinality())
	for _, id := range mapset.Sorted(ids) {
		doc, err := g.store.GetDocument(ctx, id)
		if err != nil || doc.Deleted() {
			continue
		}
		conns = append(conns, model.GraphConnection{PageID: id, Title: doc.Title})
	}
	return conns
}

// Invalidate drops cached entries for the given pages.
func (g *GraphService) Invalidate(ctx context.Context, pageIDs ...string) {
	if g.graphs != nil {
		g.graphs.InvalidateMany(ctx, pageIDs)
	}
}
