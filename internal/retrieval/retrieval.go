// Package retrieval supplies context snippets for retrieval-enabled
// personas. Only the query contract lives here; document ingestion and
// indexing are out of scope for the chat core.
package retrieval

import "context"

// Snippet is one retrieved context fragment, tagged with its source.
type Snippet struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// Retriever returns up to topK snippets ordered by descending relevance.
// An empty slice means no relevant material was found.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error)
}
