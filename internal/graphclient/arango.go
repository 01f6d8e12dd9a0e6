package graphclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"

	commonarango "github.com/conhub/rde/common/arangodb"
	"github.com/conhub/rde/internal/model"
)

// ArangoConfig configures the knowledge graph database connection.
type ArangoConfig struct {
	URL      string
	Username string
	Password string
	Database string
	Graph    string
}

func (c ArangoConfig) Validate() error {
	return c.toCommonConfig().Validate()
}

func (c ArangoConfig) toCommonConfig() commonarango.Config {
	return commonarango.Config{URL: c.URL, Username: c.Username, Password: c.Password, Database: c.Database}
}

// ArangoBackend implements Backend against an ArangoDB named graph whose
// vertex collections carry "node_type", "centrality", "updated_at", and a
// free-form "attrs" document, and whose edges carry "type".
type ArangoBackend struct {
	db    arangodb.Database
	graph string
	now   func() time.Time
}

// NewArangoBackend dials ArangoDB and resolves the configured database.
func NewArangoBackend(ctx context.Context, cfg ArangoConfig) (*ArangoBackend, error) {
	db, err := commonarango.Dial(ctx, cfg.toCommonConfig())
	if err != nil {
		return nil, err
	}

	graph := cfg.Graph
	if graph == "" {
		graph = "conhub_graph"
	}

	return &ArangoBackend{db: db, graph: graph, now: time.Now}, nil
}

func (b *ArangoBackend) SearchSeeds(ctx context.Context, entities []string, _ ExpandFilters) ([]model.GraphHit, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	start := time.Now()
	query := `
		FOR doc IN UNION(
			(FOR v IN @@graph_vertices FILTER v.name IN @entities OR v.qname IN @entities RETURN v),
			(FOR v IN @@graph_vertices FILTER LIKE(v.name, @fuzzy, true) LIMIT 20 RETURN v)
		)
		LIMIT 50
		RETURN doc
	`
	bindVars := map[string]any{
		"@graph_vertices": "graph_nodes",
		"entities":        entities,
		"fuzzy":           "%" + strings.Join(entities, "%") + "%",
	}

	cursor, err := b.db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, fmt.Errorf("search seeds: %w", err)
	}
	defer cursor.Close()

	hits, err := readGraphHits(ctx, cursor)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "arangodb seed search completed",
		"entities", len(entities), "hits", len(hits), "duration_ms", time.Since(start).Milliseconds())
	return hits, nil
}

func (b *ArangoBackend) Expand(ctx context.Context, seedNodeIDs []string, filters ExpandFilters) (ExpandResult, error) {
	if len(seedNodeIDs) == 0 {
		return ExpandResult{}, nil
	}

	hops := filters.MaxHops
	if hops <= 0 {
		hops = defaultHops
	}
	maxNodes := filters.MaxNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	edgeFilter := ""
	bindVars := map[string]any{
		"starts":   startVertexIDs(seedNodeIDs),
		"depth":    hops,
		"maxNodes": maxNodes,
	}
	if len(filters.EdgeAllowlist) > 0 {
		edgeFilter = "OPTIONS { edgeCollections: @edgeTypes }"
		bindVars["edgeTypes"] = filters.EdgeAllowlist
	}

	start := time.Now()
	query := fmt.Sprintf(`
		FOR startV IN @starts
			FOR v, e, p IN 1..@depth ANY startV GRAPH @@graph %s
				LIMIT @maxNodes
				RETURN { vertex: v, edge: e, path_types: p.edges[*].type }
	`, edgeFilter)
	bindVars["@graph"] = b.graph

	cursor, err := b.db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return ExpandResult{}, fmt.Errorf("expand: %w", err)
	}
	defer cursor.Close()

	nodeMap := map[string]model.GraphHit{}
	paths := map[string][]string{}
	var edges []Edge

	for cursor.HasMore() {
		var doc struct {
			Vertex    map[string]any `json:"vertex"`
			Edge      map[string]any `json:"edge"`
			PathTypes []string       `json:"path_types"`
		}
		if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
			return ExpandResult{}, fmt.Errorf("read expand document: %w", err)
		}
		if hit, ok := decodeVertex(doc.Vertex, b.now()); ok {
			nodeMap[hit.NodeID] = hit
			paths[hit.NodeID] = doc.PathTypes
		}
		if doc.Edge != nil {
			from, _ := doc.Edge["_from"].(string)
			to, _ := doc.Edge["_to"].(string)
			edgeType, _ := doc.Edge["type"].(string)
			edges = append(edges, Edge{From: from, To: to, Type: edgeType})
		}
	}

	nodes := make([]model.GraphHit, 0, len(nodeMap))
	for _, n := range nodeMap {
		nodes = append(nodes, n)
	}

	slog.DebugContext(ctx, "arangodb expand completed",
		"seeds", len(seedNodeIDs), "nodes", len(nodes), "edges", len(edges),
		"duration_ms", time.Since(start).Milliseconds())

	return ExpandResult{Nodes: nodes, Edges: edges, Paths: paths}, nil
}

func (b *ArangoBackend) Hydrate(ctx context.Context, nodeIDs []string) ([]model.GraphHit, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	query := `
		FOR id IN @ids
			LET doc = DOCUMENT(id)
			FILTER doc != null
			RETURN doc
	`
	cursor, err := b.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{"ids": nodeIDs},
	})
	if err != nil {
		return nil, fmt.Errorf("hydrate: %w", err)
	}
	defer cursor.Close()

	return readGraphHits(ctx, cursor)
}

func (b *ArangoBackend) Health(ctx context.Context) bool {
	_, err := b.db.Query(ctx, "RETURN 1", nil)
	return err == nil
}

func readGraphHits(ctx context.Context, cursor arangodb.Cursor) ([]model.GraphHit, error) {
	var hits []model.GraphHit
	now := time.Now()
	for cursor.HasMore() {
		var doc map[string]any
		if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		if hit, ok := decodeVertex(doc, now); ok {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// decodeVertex computes the per-node score:
// 0.5*seed_proximity + 0.3*centrality + 0.2*recency, each pre-normalized
// to [0,1] by the backend before the client re-normalizes the batch.
func decodeVertex(doc map[string]any, now time.Time) (model.GraphHit, bool) {
	id, _ := doc["_id"].(string)
	if id == "" {
		return model.GraphHit{}, false
	}

	centrality := floatAttr(doc, "centrality")
	seedProximity := floatAttr(doc, "seed_proximity")
	if seedProximity == 0 {
		seedProximity = 1 // exact/fuzzy seed matches default to full proximity
	}

	recency := 0.0
	var ts *time.Time
	if updatedAt, ok := doc["updated_at"].(string); ok && updatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			ts = &parsed
			age := now.Sub(parsed).Hours() / 24
			recency = 1.0 / (1.0 + age/30.0)
		}
	}

	score := 0.5*seedProximity + 0.3*centrality + 0.2*recency

	nodeType, _ := doc["node_type"].(string)
	content, _ := doc["content"].(string)
	chunkID, _ := doc["chunk_id"].(string)
	tokenCount := int(floatAttr(doc, "token_count"))

	return model.GraphHit{
		NodeID:     id,
		NodeType:   nodeType,
		Score:      score,
		ChunkID:    chunkID,
		Content:    content,
		TokenCount: tokenCount,
		Timestamp:  ts,
		Metadata:   map[string]any{"source": "arangodb"},
	}, true
}

func floatAttr(doc map[string]any, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	default:
		return 0
	}
}

func startVertexIDs(seedNodeIDs []string) []string {
	// Seed node IDs are already fully-qualified ("collection/key") from
	// SearchSeeds, so they pass through unchanged.
	return seedNodeIDs
}
