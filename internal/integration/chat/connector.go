// Package chat wraps the chat-completion provider.
package chat

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
)

type Connector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewConnector(cfg config.ChatConfig, logger *zap.Logger) *Connector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Connector{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// Complete sends the system prompt, prior conversation turns and the user
// question, returning the generated answer.
func (c *Connector) Complete(ctx context.Context, systemPrompt string, history []entity.Message, question string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == entity.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		ctxzap.Error(ctx, "chat completion failed", zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	ctxzap.Debug(ctx, "chat completion succeeded",
		zap.Int("history_len", len(history)),
		zap.Int("answer_length", len(resp.Choices[0].Message.Content)),
	)

	return resp.Choices[0].Message.Content, nil
}
