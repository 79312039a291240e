package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/entity"
)

// MockConnector echoes a canned answer. Selected through ENABLE_MOCKS.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{logger: logger}
}

func (m *MockConnector) Complete(_ context.Context, _ string, history []entity.Message, question string) (string, error) {
	return fmt.Sprintf("mock answer to %q (history: %d messages)", question, len(history)), nil
}
