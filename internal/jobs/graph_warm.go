package jobs

import (
	"context"
	"time"

	"github.com/WeWriteApp/pagechain/internal/service"
	"github.com/WeWriteApp/pagechain/internal/store"
	"github.com/sirupsen/logrus"
)

// warmLimit bounds how many documents a single warm pass touches.
const warmLimit = 100

// GraphWarmTask recomputes graph summaries for recently modified
// public documents so interactive reads mostly hit a warm cache.
type GraphWarmTask struct {
	store  store.Store
	graphs *service.GraphService
	cron   string
}

func NewGraphWarmTask(schedule string, st store.Store, graphs *service.GraphService) *GraphWarmTask {
	return &GraphWarmTask{
		store:  st,
		graphs: graphs,
		cron:   schedule,
	}
}

func (g *GraphWarmTask) Schedule() string {
	return g.cron
}

func (g *GraphWarmTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	docs, err := g.store.ListRecentPublicDocuments(ctx, warmLimit)
	if err != nil {
		logrus.Errorf("graph warm: listing recent documents: %v", err)
		return
	}

	for _, doc := range docs {
		// Zero max age forces a recompute and refreshes the cache.
		if _, err := g.graphs.Summary(ctx, doc.ID, 0); err != nil {
			logrus.Warnf("graph warm: summary for %s: %v", doc.ID, err)
		}
	}

	logrus.Infof("graph warm: refreshed %d documents", len(docs))
}
