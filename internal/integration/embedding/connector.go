// Package embedding is the gateway to the embedding provider: bounded
// concurrency, post-call pacing and status-aware retry.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/pkg/limiter"
	pkgretry "github.com/docstack/knowledge-backend/internal/pkg/retry"
)

type Connector struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
	pacer  *limiter.Pacer
	retry  []retry.Option
	logger *zap.Logger
}

func NewConnector(cfg config.EmbeddingConfig, pacer *limiter.Pacer, logger *zap.Logger) *Connector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	retryCfg := cfg.Retry
	if retryCfg.Attempts == 0 || retryCfg.Delay == 0 {
		def := pkgretry.DefaultRetryConfig()
		if retryCfg.Attempts == 0 {
			retryCfg.Attempts = def.Attempts
		}
		if retryCfg.Delay == 0 {
			retryCfg.Delay = def.Delay
		}
		if retryCfg.MaxDelay == 0 {
			retryCfg.MaxDelay = def.MaxDelay
		}
	}

	opts := append(retryCfg.ToRetryOptions(), retry.RetryIf(isRetryable))

	return &Connector{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.EmbeddingModel(cfg.Model),
		dim:    cfg.Dimension,
		pacer:  pacer,
		retry:  opts,
		logger: logger,
	}
}

// Embed turns one text into a fixed-dimension vector. Rate-limit (429) and
// server (5xx) failures are retried with exponential backoff; every other
// error class fails immediately. Exhausted retries surface as
// entity.ErrProviderUnavailable.
func (c *Connector) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.pacer.Acquire(ctx); err != nil {
		return nil, err
	}

	var vector []float32
	err := retry.Do(func() error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input:      []string{text},
			Model:      c.model,
			Dimensions: c.dim,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embedding response contains no data")
		}
		vector = resp.Data[0].Embedding
		return nil
	}, append(c.retry, retry.Context(ctx))...)

	c.pacer.Release(ctx, err == nil)

	if err != nil {
		if isRetryable(err) {
			ctxzap.Warn(ctx, "embedding provider exhausted retries", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", entity.ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return vector, nil
}

// EmbedBatch embeds texts one after another. Sequential on purpose: parallel
// fan-out would defeat the provider rate pacing.
func (c *Connector) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// isRetryable reports whether the provider error is a rate limit or a
// server-side failure. Other 4xx, decode and network errors are not retried.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return false
}
