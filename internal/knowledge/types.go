package knowledge

import "time"

// VectorDimension is the embedding dimension of the documents table.
// The pgvector column in db/migrations is declared as vector(768);
// the configured embedder must produce vectors of this size.
const VectorDimension = 768

// Metadata keys used by documents in the corpus.
const (
	// MetaTitle is the page title the chunk was cut from.
	MetaTitle = "title"

	// MetaURL is the canonical documentation URL of the page.
	MetaURL = "url"

	// MetaChunkID is the chunk identifier assigned by the offline chunker.
	MetaChunkID = "chunk_id"
)

// Document represents one retrievable chunk of the documentation corpus.
type Document struct {
	ID        string            // Unique identifier
	Content   string            // Chunk text content
	Metadata  map[string]string // Optional metadata (title, url, chunk_id)
	CreatedAt time.Time         // Creation timestamp
}

// Result represents a single search result with similarity score.
// Document is embedded so callers read the chunk fields directly
// (result.Content, result.Metadata).
type Result struct {
	Document
	Similarity float32 // Cosine similarity score (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK    int
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return.
// Default is 5 if not specified.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithTimeout bounds the duration of a single search, including query
// embedding. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
