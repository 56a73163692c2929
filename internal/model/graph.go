package model

import (
	"encoding/json"
	"time"
)

// GraphSchemaVersion is bumped whenever the shape of GraphEntry
// changes. Cached entries with a different schema version are treated
// as misses.
const GraphSchemaVersion = 2

// GraphConnection is one neighbor in a page's link neighborhood.
type GraphConnection struct {
	PageID string `json:"pageId"`
	Title  string `json:"title"`
}

// GraphStats aggregates connection counts for a page.
type GraphStats struct {
	IncomingCount      int `json:"incomingCount"`
	OutgoingCount      int `json:"outgoingCount"`
	BidirectionalCount int `json:"bidirectionalCount"`
	SecondHopCount     int `json:"secondHopCount"`
	ThirdHopCount      int `json:"thirdHopCount"`
}

// GraphEntry is a precomputed multi-hop connection summary for one
// page. Entries are best effort: absence or staleness never blocks
// correctness, only freshness of the derived view.
type GraphEntry struct {
	PageID        string            `json:"pageId"`
	Incoming      []GraphConnection `json:"incoming"`
	Outgoing      []GraphConnection `json:"outgoing"`
	Bidirectional []GraphConnection `json:"bidirectional"`
	SecondHop     []GraphConnection `json:"secondHop"`
	ThirdHop      []GraphConnection `json:"thirdHop"`
	Stats         GraphStats        `json:"stats"`
	SchemaVersion int               `json:"schemaVersion"`
	CachedAt      time.Time         `json:"cachedAt"`
}

func (g *GraphEntry) MarshalBinary() ([]byte, error) {
	return json.Marshal(g)
}
