package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/pkg/limiter"
	pkgretry "github.com/docstack/knowledge-backend/internal/pkg/retry"
)

func fakeProvider(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testConnector(baseURL string) *Connector {
	cfg := config.EmbeddingConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Model:     "text-embedding-3-small",
		Dimension: 4,
		Retry: pkgretry.RetryConfig{
			Attempts: 3,
			Delay:    time.Millisecond,
			MaxDelay: 5 * time.Millisecond,
		},
	}
	return NewConnector(cfg, limiter.NewPacer(2, 0), zap.NewNop())
}

func writeEmbedding(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3, 0.4}},
		},
	})
}

func TestEmbed_Success(t *testing.T) {
	srv := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		writeEmbedding(w)
	})

	vector, err := testConnector(srv.URL).Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Len(t, vector, 4)
}

func TestEmbed_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls int64
	srv := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
			return
		}
		writeEmbedding(w)
	})

	vector, err := testConnector(srv.URL).Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Len(t, vector, 4)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestEmbed_DoesNotRetryOn400(t *testing.T) {
	var calls int64
	srv := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	})

	_, err := testConnector(srv.URL).Embed(context.Background(), "hello")

	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrProviderUnavailable)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestEmbed_ExhaustedRetriesReportProviderUnavailable(t *testing.T) {
	var calls int64
	srv := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
	})

	_, err := testConnector(srv.URL).Embed(context.Background(), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrProviderUnavailable)
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))
}

func TestEmbedBatch_SequentialAndOrdered(t *testing.T) {
	srv := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeEmbedding(w)
	})

	vectors, err := testConnector(srv.URL).EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 4)
	}
}

func TestMockConnector_Deterministic(t *testing.T) {
	m := NewMockConnector(8, zap.NewNop())
	ctx := context.Background()

	a, err := m.Embed(ctx, "same text")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "same text")
	require.NoError(t, err)
	c, err := m.Embed(ctx, "different text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 8)
}
