// Package vectorindex is a Qdrant REST client owning the (vector, payload)
// points of ingested documents.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
	pkghttp "github.com/docstack/knowledge-backend/pkg/http"
)

type Index struct {
	conn           *pkghttp.Connector
	collection     string
	dimension      int
	scoreThreshold float64
	minHitTextLen  int
	limiter        *rate.Limiter
	logger         *zap.Logger
}

func NewIndex(cfg config.QdrantConfig, dimension int, logger *zap.Logger) *Index {
	conn := pkghttp.NewConnector(
		&pkghttp.ConnectorConfig{BaseURL: cfg.URL, Logger: logger},
		pkghttp.WithRequestTimeout(cfg.Timeout),
		pkghttp.WithRequestLogging(),
		pkghttp.WithAPIKey(cfg.APIKey),
	)

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	return &Index{
		conn:           conn,
		collection:     cfg.Collection,
		dimension:      dimension,
		scoreThreshold: cfg.ScoreThreshold,
		minHitTextLen:  cfg.MinHitTextLen,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		logger:         logger,
	}
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// Init creates the collection if absent (cosine distance, fixed dimension).
// A pre-existing collection with a different dimension is a fatal error:
// failing fast beats silently corrupting search results.
func (i *Index) Init(ctx context.Context) error {
	if err := i.limiter.Wait(ctx); err != nil {
		return err
	}

	var info collectionInfo
	err := i.conn.DoRequest(ctx, http.MethodGet, "/collections/"+i.collection, nil, &info)
	if err == nil {
		if got := info.Result.Config.Params.Vectors.Size; got != i.dimension {
			return fmt.Errorf("collection %q has dimension %d, configured %d",
				i.collection, got, i.dimension)
		}
		return nil
	}

	var httpErr *pkghttp.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		return fmt.Errorf("inspect collection: %w", err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     i.dimension,
			"distance": "Cosine",
		},
	}
	if err := i.conn.DoRequest(ctx, http.MethodPut, "/collections/"+i.collection, body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	i.logger.Info("vector collection created",
		zap.String("collection", i.collection),
		zap.Int("dimension", i.dimension),
	)
	return nil
}

// Upsert writes one point per chunk under fresh point ids. No-op on empty
// input. Re-upserting the same document creates new points; callers delete
// first when they need idempotence.
func (i *Index) Upsert(ctx context.Context, documentID, title, category string, chunks []entity.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, len(chunks))
	for n, chunk := range chunks {
		points[n] = map[string]any{
			"id":     uuid.New().String(),
			"vector": chunk.Vector,
			"payload": map[string]any{
				"document_id": documentID,
				"title":       title,
				"category":    category,
				"page":        chunk.SourcePage,
				"chunk_no":    chunk.SequenceNo,
				"text":        chunk.Text,
			},
		}
	}

	if err := i.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("/collections/%s/points?wait=true", i.collection)
	if err := i.conn.DoRequest(ctx, http.MethodPut, endpoint, map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}

	ctxzap.Info(ctx, "points upserted",
		zap.String("document_id", documentID),
		zap.Int("count", len(points)),
	)
	return nil
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search returns at most topK hits above the score threshold. Twice topK
// candidates are requested so that degenerate short-text fragments can be
// discarded without starving the result. An empty result is valid.
func (i *Index) Search(ctx context.Context, vector []float32, topK int, categoryFilter string) ([]entity.SearchHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", entity.ErrInvalidParameter)
	}

	req := map[string]any{
		"vector":          vector,
		"limit":           2 * topK,
		"with_payload":    true,
		"score_threshold": i.scoreThreshold,
	}
	if categoryFilter != "" {
		req["filter"] = matchFilter("category", categoryFilter)
	}

	if err := i.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp searchResponse
	endpoint := fmt.Sprintf("/collections/%s/points/search", i.collection)
	if err := i.conn.DoRequest(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]entity.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := entity.SearchHit{Score: r.Score}
		if v, ok := r.Payload["document_id"].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			hit.Text = v
		}
		if v, ok := r.Payload["page"].(float64); ok {
			hit.Page = int(v)
		}
		if len(hit.Text) < i.minHitTextLen {
			continue
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete removes every point of the document. Returns false instead of an
// error on failure so callers decide whether that is fatal.
func (i *Index) Delete(ctx context.Context, documentID string) bool {
	if err := i.limiter.Wait(ctx); err != nil {
		return false
	}

	endpoint := fmt.Sprintf("/collections/%s/points/delete?wait=true", i.collection)
	body := map[string]any{"filter": matchFilter("document_id", documentID)}
	if err := i.conn.DoRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		ctxzap.Error(ctx, "delete points failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return false
	}
	return true
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID any `json:"id"`
		} `json:"points"`
	} `json:"result"`
}

// Exists reports whether at least one point for the document is present.
func (i *Index) Exists(ctx context.Context, documentID string) bool {
	if err := i.limiter.Wait(ctx); err != nil {
		return false
	}

	req := map[string]any{
		"filter":       matchFilter("document_id", documentID),
		"limit":        1,
		"with_payload": false,
	}

	var resp scrollResponse
	endpoint := fmt.Sprintf("/collections/%s/points/scroll", i.collection)
	if err := i.conn.DoRequest(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		ctxzap.Error(ctx, "scroll points failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return false
	}
	return len(resp.Result.Points) > 0
}

func matchFilter(key, value string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": key, "match": map[string]any{"value": value}},
		},
	}
}
