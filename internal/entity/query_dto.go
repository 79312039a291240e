package entity

// AskRequest is one natural-language question against the corpus.
type AskRequest struct {
	Question       string `json:"question"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	CategoryID     string `json:"category_id,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
}

// MaxTopK caps caller-supplied retrieval depth.
const MaxTopK = 10

func (r *AskRequest) Normalize() {
	if r.TopK <= 0 || r.TopK > MaxTopK {
		r.TopK = MaxTopK
	}
}

// AskResponse is the generated answer plus the sources it was grounded on.
type AskResponse struct {
	ConversationID string     `json:"conversation_id"`
	Answer         string     `json:"answer"`
	Citations      []Citation `json:"citations"`
}
