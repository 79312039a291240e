package query

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/entity"
)

// noContextAnswer is returned without calling the chat model when retrieval
// finds nothing above the score threshold.
const noContextAnswer = "I could not find relevant information in the document base to answer your question. " +
	"Try rephrasing it, or check that the relevant documents have been uploaded."

const systemPromptHeader = `You are an assistant answering questions about an internal document base.
Answer ONLY from the context excerpts below. If the context does not contain
the answer, say so explicitly instead of guessing. Refer to sources by their
number, like [Source 1].

Context:

`

// excerptLimit bounds citation excerpts, in runes.
const excerptLimit = 200

// Usecase answers questions over the indexed corpus: embed the question,
// retrieve, assemble context, complete, and thread the exchange through a
// conversation.
type Usecase struct {
	conversations ConversationStore
	documents     DocumentTitles
	users         UserRepo
	categories    CategoryRepo
	embedder      Embedder
	searcher      Searcher
	chat          ChatCompleter
	historyLimit  int
	logger        *zap.Logger
}

// NewUsecase creates a new query use case. historyLimit is how many trailing
// conversation messages are replayed to the chat model.
func NewUsecase(
	conversations ConversationStore,
	documents DocumentTitles,
	users UserRepo,
	categories CategoryRepo,
	embedder Embedder,
	searcher Searcher,
	chat ChatCompleter,
	historyLimit int,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		conversations: conversations,
		documents:     documents,
		users:         users,
		categories:    categories,
		embedder:      embedder,
		searcher:      searcher,
		chat:          chat,
		historyLimit:  historyLimit,
		logger:        logger,
	}
}

// Ask answers one question. An empty ConversationID starts a new
// conversation; a known one continues it with its recent history replayed.
func (uc *Usecase) Ask(ctx context.Context, req *entity.AskRequest) (*entity.AskResponse, error) {
	if err := uc.validate(ctx, req); err != nil {
		return nil, err
	}
	req.Normalize()

	// A caller-supplied id is reused only while the conversation is alive;
	// an unknown or expired one falls back to a fresh conversation instead
	// of adopting an id this user never owned.
	conversationID := req.ConversationID
	if conversationID == "" || !uc.conversations.Exists(ctx, conversationID) {
		if conversationID != "" {
			ctxzap.Info(ctx, "conversation unknown or expired, starting a new one",
				zap.String("conversation_id", conversationID),
			)
		}
		id, err := uc.conversations.Create(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		conversationID = id
	}

	history, err := uc.conversations.Recent(ctx, conversationID, uc.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	vector, err := uc.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := uc.searcher.Search(ctx, vector, req.TopK, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	if len(hits) == 0 {
		ctxzap.Info(ctx, "no retrieval hits",
			zap.String("conversation_id", conversationID),
			zap.Int("top_k", req.TopK),
		)
		if err := uc.appendExchange(ctx, conversationID, req.Question, noContextAnswer); err != nil {
			return nil, err
		}
		return &entity.AskResponse{
			ConversationID: conversationID,
			Answer:         noContextAnswer,
			Citations:      []entity.Citation{},
		}, nil
	}

	hits = uc.resolveTitles(ctx, hits)

	answer, err := uc.chat.Complete(ctx, buildSystemPrompt(hits), history, req.Question)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	if err := uc.appendExchange(ctx, conversationID, req.Question, answer); err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "question answered",
		zap.String("conversation_id", conversationID),
		zap.Int("hits", len(hits)),
	)

	return &entity.AskResponse{
		ConversationID: conversationID,
		Answer:         answer,
		Citations:      buildCitations(hits),
	}, nil
}

// CreateConversation starts an empty conversation for a user.
func (uc *Usecase) CreateConversation(ctx context.Context, userID string) (*entity.ConversationMetadata, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id", entity.ErrMissingField)
	}
	if err := uuid.Validate(userID); err != nil {
		return nil, fmt.Errorf("%w: user_id must be a uuid", entity.ErrInvalidParameter)
	}

	ok, err := uc.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, entity.ErrUserNotFound
	}

	id, err := uc.conversations.Create(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return uc.conversations.Metadata(ctx, id)
}

// History returns the full message log of a conversation.
func (uc *Usecase) History(ctx context.Context, conversationID string) ([]entity.Message, error) {
	if err := uuid.Validate(conversationID); err != nil {
		return nil, fmt.Errorf("%w: conversation id must be a uuid", entity.ErrInvalidParameter)
	}
	if !uc.conversations.Exists(ctx, conversationID) {
		return nil, entity.ErrConversationNotFound
	}
	return uc.conversations.History(ctx, conversationID)
}

// Metadata returns conversation lifecycle info.
func (uc *Usecase) Metadata(ctx context.Context, conversationID string) (*entity.ConversationMetadata, error) {
	if err := uuid.Validate(conversationID); err != nil {
		return nil, fmt.Errorf("%w: conversation id must be a uuid", entity.ErrInvalidParameter)
	}
	return uc.conversations.Metadata(ctx, conversationID)
}

// Clear deletes a conversation and its history. Clearing an unknown
// conversation is a no-op.
func (uc *Usecase) Clear(ctx context.Context, conversationID string) error {
	if err := uuid.Validate(conversationID); err != nil {
		return fmt.Errorf("%w: conversation id must be a uuid", entity.ErrInvalidParameter)
	}
	uc.conversations.Clear(ctx, conversationID)
	return nil
}

func (uc *Usecase) validate(ctx context.Context, req *entity.AskRequest) error {
	if strings.TrimSpace(req.Question) == "" {
		return fmt.Errorf("%w: question", entity.ErrMissingField)
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: user_id", entity.ErrMissingField)
	}
	if err := uuid.Validate(req.UserID); err != nil {
		return fmt.Errorf("%w: user_id must be a uuid", entity.ErrInvalidParameter)
	}
	if req.ConversationID != "" {
		if err := uuid.Validate(req.ConversationID); err != nil {
			return fmt.Errorf("%w: conversation_id must be a uuid", entity.ErrInvalidParameter)
		}
	}

	ok, err := uc.users.Exists(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return entity.ErrUserNotFound
	}

	if req.CategoryID != "" {
		if err := uuid.Validate(req.CategoryID); err != nil {
			return fmt.Errorf("%w: category_id must be a uuid", entity.ErrInvalidParameter)
		}
		ok, err := uc.categories.Exists(ctx, req.CategoryID)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if !ok {
			return entity.ErrCategoryNotFound
		}
	}

	return nil
}

func (uc *Usecase) appendExchange(ctx context.Context, conversationID, question, answer string) error {
	if err := uc.conversations.Append(ctx, conversationID, entity.RoleUser, question); err != nil {
		return fmt.Errorf("append question: %w", err)
	}
	if err := uc.conversations.Append(ctx, conversationID, entity.RoleAssistant, answer); err != nil {
		return fmt.Errorf("append answer: %w", err)
	}
	return nil
}

// resolveTitles replaces hit titles with the current relational titles, which
// win over whatever was in the point payload at indexing time.
func (uc *Usecase) resolveTitles(ctx context.Context, hits []entity.SearchHit) []entity.SearchHit {
	seen := make(map[string]bool, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h.DocumentID] {
			seen[h.DocumentID] = true
			ids = append(ids, h.DocumentID)
		}
	}

	titles, err := uc.documents.TitlesByIDs(ctx, ids)
	if err != nil {
		ctxzap.Warn(ctx, "failed to resolve document titles, using indexed ones",
			zap.Error(err),
		)
		return hits
	}

	for i := range hits {
		if title, ok := titles[hits[i].DocumentID]; ok {
			hits[i].Title = title
		}
	}
	return hits
}

func buildSystemPrompt(hits []entity.SearchHit) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d — %s, Page %d]\n%s", i+1, h.Title, h.Page, h.Text)
	}
	return b.String()
}

func buildCitations(hits []entity.SearchHit) []entity.Citation {
	citations := make([]entity.Citation, 0, len(hits))
	for _, h := range hits {
		citations = append(citations, entity.Citation{
			DocumentID: h.DocumentID,
			Title:      h.Title,
			Page:       h.Page,
			Relevance:  math.Round(h.Score*100*100) / 100,
			Excerpt:    truncate(h.Text, excerptLimit),
		})
	}
	return citations
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
