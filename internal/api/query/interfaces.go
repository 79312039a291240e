package query

import (
	"context"

	"github.com/docstack/knowledge-backend/internal/entity"
)

type QueryUsecase interface {
	Ask(ctx context.Context, req *entity.AskRequest) (*entity.AskResponse, error)
	CreateConversation(ctx context.Context, userID string) (*entity.ConversationMetadata, error)
	History(ctx context.Context, conversationID string) ([]entity.Message, error)
	Metadata(ctx context.Context, conversationID string) (*entity.ConversationMetadata, error)
	Clear(ctx context.Context, conversationID string) error
}
