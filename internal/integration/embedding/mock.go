package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"go.uber.org/zap"
)

// MockConnector produces deterministic pseudo-vectors without calling any
// provider. Selected through ENABLE_MOCKS.
type MockConnector struct {
	dim    int
	logger *zap.Logger
}

func NewMockConnector(dim int, logger *zap.Logger) *MockConnector {
	if dim <= 0 {
		dim = 1024
	}
	return &MockConnector{dim: dim, logger: logger}
}

func (m *MockConnector) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vector := make([]float32, m.dim)
	var norm float64
	for i := range vector {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed)) / math.MaxInt64
		vector[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector, nil
}

func (m *MockConnector) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
