package entity

// Chunk is a bounded-size passage of extracted document text, the atomic unit
// of embedding and indexing. Immutable; ordered within a document by SequenceNo.
type Chunk struct {
	Text       string `json:"text"`
	SourcePage int    `json:"source_page"`
	SequenceNo int    `json:"sequence_no"`
}

// EmbeddedChunk pairs a chunk with its vector. Consumed once by the vector
// index upsert, not persisted anywhere else.
type EmbeddedChunk struct {
	Chunk
	Vector []float32 `json:"vector"`
}

// SearchHit is one retrieval result, ordered by Score descending.
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
}

// Citation is what the query handler returns per consulted source.
type Citation struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Page       int     `json:"page"`
	Relevance  float64 `json:"relevance"`
	Excerpt    string  `json:"excerpt"`
}
