// Package conversation keeps per-conversation message history and metadata
// with a sliding retention window. Metadata absence is the authoritative
// "conversation does not exist" signal.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/docstack/knowledge-backend/internal/entity"
)

const (
	metaSuffix     = ":meta"
	messagesSuffix = ":msgs"
)

// Store is a TTL'd key-value conversation store. Appends serialize through mu
// and cached values are never mutated in place, only replaced, so readers need
// no lock.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
	mu    chan struct{} // binary semaphore; held across read-modify-write
}

// NewStore creates a store whose entries expire ttl after the last write.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		cache: gocache.New(ttl, 10*time.Minute),
		ttl:   ttl,
		mu:    make(chan struct{}, 1),
	}
	return s
}

func (s *Store) lock() {
	s.mu <- struct{}{}
}

func (s *Store) unlock() {
	<-s.mu
}

// Create generates a fresh conversation id and writes empty metadata.
func (s *Store) Create(_ context.Context, userID string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	s.cache.Set(id+metaSuffix, &entity.ConversationMetadata{
		ConversationID: id,
		UserID:         userID,
		CreatedAt:      now,
		LastActiveAt:   now,
		MessageCount:   0,
	}, s.ttl)

	return id, nil
}

// Append adds one message and refreshes the retention window on both keys.
// If metadata expired while the message list survived, the metadata is
// recreated (seeded from the current list) so Exists and Recent stay
// consistent with each other.
func (s *Store) Append(_ context.Context, conversationID string, role entity.MessageRole, content string) error {
	s.lock()
	defer s.unlock()

	now := time.Now().UTC()

	var messages []entity.Message
	if v, ok := s.cache.Get(conversationID + messagesSuffix); ok {
		messages = v.([]entity.Message)
	}
	messages = append(messages, entity.Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	s.cache.Set(conversationID+messagesSuffix, messages, s.ttl)

	var meta entity.ConversationMetadata
	if existing, ok := s.metadata(conversationID); ok {
		meta = *existing
	} else {
		meta = entity.ConversationMetadata{
			ConversationID: conversationID,
			CreatedAt:      now,
			MessageCount:   len(messages) - 1,
		}
	}
	meta.LastActiveAt = now
	meta.MessageCount++
	s.cache.Set(conversationID+metaSuffix, &meta, s.ttl)

	return nil
}

// History returns all messages in insertion order.
func (s *Store) History(_ context.Context, conversationID string) ([]entity.Message, error) {
	v, ok := s.cache.Get(conversationID + messagesSuffix)
	if !ok {
		return nil, nil
	}
	messages := v.([]entity.Message)
	out := make([]entity.Message, len(messages))
	copy(out, messages)
	return out, nil
}

// Recent returns the last n messages, oldest first. A conversation with fewer
// than n messages returns all of them.
func (s *Store) Recent(ctx context.Context, conversationID string, n int) ([]entity.Message, error) {
	messages, err := s.History(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return messages, nil
}

// Exists reports whether metadata for the conversation is present.
func (s *Store) Exists(_ context.Context, conversationID string) bool {
	_, ok := s.cache.Get(conversationID + metaSuffix)
	return ok
}

// Metadata returns the conversation metadata.
func (s *Store) Metadata(_ context.Context, conversationID string) (*entity.ConversationMetadata, error) {
	meta, ok := s.metadata(conversationID)
	if !ok {
		return nil, entity.ErrConversationNotFound
	}
	out := *meta
	return &out, nil
}

// Clear deletes both the message list and metadata.
func (s *Store) Clear(_ context.Context, conversationID string) {
	s.lock()
	defer s.unlock()

	s.cache.Delete(conversationID + messagesSuffix)
	s.cache.Delete(conversationID + metaSuffix)
}

func (s *Store) metadata(conversationID string) (*entity.ConversationMetadata, bool) {
	v, ok := s.cache.Get(conversationID + metaSuffix)
	if !ok {
		return nil, false
	}
	return v.(*entity.ConversationMetadata), true
}
