package vectorclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/conhub/rde/internal/model"
	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"
)

// TypesenseBackend implements Backend against a Typesense cluster. Every
// collection is expected to carry "tenant_id", "source_type", "content",
// "token_count", and "timestamp" fields, matching the ingestion schema
// ConHub's embedding pipeline writes (out of scope here).
type TypesenseBackend struct {
	client *typesense.Client
}

// NewTypesenseBackend dials a Typesense node. apiKey and nodeURL come
// from core/config.
func NewTypesenseBackend(nodeURL, apiKey string) *TypesenseBackend {
	c := typesense.NewClient(
		typesense.WithServer(nodeURL),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)
	return &TypesenseBackend{client: c}
}

func (b *TypesenseBackend) Search(ctx context.Context, collection, queryText string, filters SearchFilters, topK int) ([]model.VectorHit, error) {
	filterBy := buildFilterBy(filters)
	q := queryText
	perPage := topK
	params := &api.SearchCollectionParams{
		Q:       &q,
		QueryBy: pointer.String("content"),
		PerPage: &perPage,
	}
	if filterBy != "" {
		params.FilterBy = &filterBy
	}

	resp, err := b.client.Collection(collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("typesense search %s: %w", collection, err)
	}
	if resp == nil || resp.Hits == nil {
		return nil, nil
	}

	hits := make([]model.VectorHit, 0, len(*resp.Hits))
	for _, h := range *resp.Hits {
		hit, ok := decodeHit(h)
		if ok {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func (b *TypesenseBackend) SearchByIDs(ctx context.Context, ids []string) ([]model.VectorHit, error) {
	// Typesense has no native multi-get across collections by chunk id
	// alone, so this hydrates documents one at a time. Small ID sets are
	// the only caller (GraphThenVector's seed hydration), so this stays
	// simple rather than building a filter_by IN query per collection.
	var hits []model.VectorHit
	for _, id := range ids {
		doc, err := b.client.Collection(inferCollectionFromID(id)).Document(id).Retrieve(ctx)
		if err != nil {
			continue
		}
		if hit, ok := decodeHit(doc); ok {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func (b *TypesenseBackend) Health(ctx context.Context) bool {
	h, err := b.client.Health(ctx, 2*time.Second)
	return err == nil && h != nil && h.Ok
}

func buildFilterBy(f SearchFilters) string {
	var clauses []string
	if f.TenantID != "" {
		clauses = append(clauses, fmt.Sprintf("tenant_id:=%s", f.TenantID))
	}
	if len(f.Repos) > 0 {
		clauses = append(clauses, fmt.Sprintf("repo:=[%s]", strings.Join(f.Repos, ",")))
	}
	if len(f.Authors) > 0 {
		clauses = append(clauses, fmt.Sprintf("author:=[%s]", strings.Join(f.Authors, ",")))
	}
	if f.TimeWindow != nil {
		clauses = append(clauses, fmt.Sprintf("timestamp:>=%d && timestamp:<=%d",
			f.TimeWindow.Start.Unix(), f.TimeWindow.End.Unix()))
	}
	return strings.Join(clauses, " && ")
}

func decodeHit(doc map[string]interface{}) (model.VectorHit, bool) {
	chunkID, _ := doc["id"].(string)
	if chunkID == "" {
		return model.VectorHit{}, false
	}
	hit := model.VectorHit{
		ChunkID:    chunkID,
		DocumentID: stringField(doc, "document_id"),
		Score:      floatField(doc, "text_match_score"),
		SourceType: model.ModalityHint(stringField(doc, "source_type")),
		Content:    stringField(doc, "content"),
		TokenCount: intField(doc, "token_count"),
		Metadata:   map[string]any{"source": "typesense"},
	}
	if repo := stringField(doc, "repo"); repo != "" {
		hit.Metadata["repo"] = repo
	}
	if path := stringField(doc, "path"); path != "" {
		hit.Metadata["path"] = path
	}
	if author := stringField(doc, "author"); author != "" {
		hit.Metadata["author"] = author
	}
	if ts := intField(doc, "timestamp"); ts > 0 {
		t := time.Unix(int64(ts), 0).UTC()
		hit.Timestamp = &t
	}
	return hit, true
}

func stringField(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func floatField(doc map[string]interface{}, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func intField(doc map[string]interface{}, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// inferCollectionFromID extracts the collection a chunk id was minted
// under, when ids are namespaced as "<collection>:<id>". Falls back to
// the id itself for flat schemas.
func inferCollectionFromID(id string) string {
	if i := strings.IndexByte(id, ':'); i > 0 {
		return id[:i]
	}
	return id
}
