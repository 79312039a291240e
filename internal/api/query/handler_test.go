package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/pkg/response"
)

type fakeUsecase struct {
	askResp *entity.AskResponse
	askErr  error
	lastAsk *entity.AskRequest
	history []entity.Message
	histErr error
	meta    *entity.ConversationMetadata
	metaErr error
	cleared []string
}

func (u *fakeUsecase) Ask(_ context.Context, req *entity.AskRequest) (*entity.AskResponse, error) {
	u.lastAsk = req
	if u.askErr != nil {
		return nil, u.askErr
	}
	return u.askResp, nil
}

func (u *fakeUsecase) CreateConversation(_ context.Context, userID string) (*entity.ConversationMetadata, error) {
	if u.metaErr != nil {
		return nil, u.metaErr
	}
	return &entity.ConversationMetadata{
		ConversationID: uuid.New().String(),
		UserID:         userID,
	}, nil
}

func (u *fakeUsecase) History(_ context.Context, _ string) ([]entity.Message, error) {
	return u.history, u.histErr
}

func (u *fakeUsecase) Metadata(_ context.Context, _ string) (*entity.ConversationMetadata, error) {
	return u.meta, u.metaErr
}

func (u *fakeUsecase) Clear(_ context.Context, id string) error {
	u.cleared = append(u.cleared, id)
	return nil
}

func newRouter(u *fakeUsecase) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(u))
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestAsk(t *testing.T) {
	conversationID := uuid.New().String()
	u := &fakeUsecase{askResp: &entity.AskResponse{
		ConversationID: conversationID,
		Answer:         "Expenses are reimbursed within thirty days [Source 1].",
		Citations: []entity.Citation{{
			DocumentID: uuid.New().String(),
			Title:      "Expense Policy",
			Page:       3,
			Relevance:  81.0,
			Excerpt:    "Expenses are reimbursed within thirty days of filing.",
		}},
	}}
	router := newRouter(u)

	body := strings.NewReader(`{"question":"How fast are expenses reimbursed?","user_id":"` + uuid.New().String() + `","top_k":4}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var resp entity.AskResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, conversationID, resp.ConversationID)
	require.Len(t, resp.Citations, 1)
	assert.InDelta(t, 81.0, resp.Citations[0].Relevance, 0.001)

	require.NotNil(t, u.lastAsk)
	assert.Equal(t, 4, u.lastAsk.TopK)
}

func TestAsk_InvalidBody(t *testing.T) {
	router := newRouter(&fakeUsecase{})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown user", entity.ErrUserNotFound, http.StatusNotFound},
		{"unknown category", entity.ErrCategoryNotFound, http.StatusNotFound},
		{"missing question", entity.ErrMissingField, http.StatusBadRequest},
		{"provider down", entity.ErrProviderUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&fakeUsecase{askErr: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"q","user_id":"u"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestCreateConversation(t *testing.T) {
	router := newRouter(&fakeUsecase{})

	body := strings.NewReader(`{"user_id":"` + uuid.New().String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestCreateConversation_UnknownUser(t *testing.T) {
	router := newRouter(&fakeUsecase{metaErr: entity.ErrUserNotFound})

	body := strings.NewReader(`{"user_id":"` + uuid.New().String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistory(t *testing.T) {
	u := &fakeUsecase{history: []entity.Message{
		{Role: entity.RoleUser, Content: "question"},
		{Role: entity.RoleAssistant, Content: "answer"},
	}}
	router := newRouter(u)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+uuid.New().String()+"/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestGetHistory_NotFound(t *testing.T) {
	router := newRouter(&fakeUsecase{histErr: entity.ErrConversationNotFound})

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+uuid.New().String()+"/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConversation(t *testing.T) {
	u := &fakeUsecase{meta: &entity.ConversationMetadata{
		ConversationID: uuid.New().String(),
		MessageCount:   2,
	}}
	router := newRouter(u)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+u.meta.ConversationID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteConversation(t *testing.T) {
	u := &fakeUsecase{}
	router := newRouter(u)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{id}, u.cleared)
}
