package query

import (
	"context"

	"github.com/docstack/knowledge-backend/internal/entity"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int, categoryFilter string) ([]entity.SearchHit, error)
}

type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt string, history []entity.Message, question string) (string, error)
}

type ConversationStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Append(ctx context.Context, conversationID string, role entity.MessageRole, content string) error
	Recent(ctx context.Context, conversationID string, n int) ([]entity.Message, error)
	History(ctx context.Context, conversationID string) ([]entity.Message, error)
	Exists(ctx context.Context, conversationID string) bool
	Metadata(ctx context.Context, conversationID string) (*entity.ConversationMetadata, error)
	Clear(ctx context.Context, conversationID string)
}

type DocumentTitles interface {
	TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type UserRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type CategoryRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
}
