package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/moodlemate/moodlemate/internal/knowledge"
	"github.com/moodlemate/moodlemate/internal/log"
)

// Source is the caller-facing provenance record for one retrieved
// chunk. Never mutated after creation.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Normalizer maps a raw query into the retrieval key. Implemented by
// Translator.
type Normalizer interface {
	Normalize(ctx context.Context, text string) string
}

// Searcher is the vector index contract the retriever consumes.
// Implemented by knowledge.Store.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// RetrieverConfig carries the construction parameters for Retriever.
type RetrieverConfig struct {
	Searcher   Searcher
	Normalizer Normalizer
	TopK       int     // retrieval depth
	ChunkChars int     // per-chunk character budget in the context string
	ScoreDecay float64 // rank score fallback slope
	Logger     log.Logger
}

// Retriever turns a user query into ranked sources and a generation
// context. Both projections always come from one index call so the
// sources shown to the caller match the text the generator saw. Every
// failure degrades to an empty result.
type Retriever struct {
	searcher   Searcher
	normalizer Normalizer
	topK       int
	chunkChars int
	scoreDecay float64
	logger     log.Logger
}

// NewRetriever creates a Retriever. Zero config values fall back to
// the defaults from the original deployment.
func NewRetriever(cfg RetrieverConfig) *Retriever {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	chunkChars := cfg.ChunkChars
	if chunkChars <= 0 {
		chunkChars = 1000
	}
	scoreDecay := cfg.ScoreDecay
	if scoreDecay <= 0 {
		scoreDecay = 0.1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{
		searcher:   cfg.Searcher,
		normalizer: cfg.Normalizer,
		topK:       topK,
		chunkChars: chunkChars,
		scoreDecay: scoreDecay,
		logger:     logger.With("component", "retriever"),
	}
}

// Retrieve runs one index query and derives both projections from the
// same result set. Returns empty values on any failure.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Source, string) {
	key := query
	if r.normalizer != nil {
		key = r.normalizer.Normalize(ctx, query)
	}

	results, err := r.searcher.Search(ctx, key, knowledge.WithTopK(r.topK))
	if err != nil {
		r.logger.Error("search failed", "error", err)
		return []Source{}, ""
	}

	return r.sources(results), r.context(results)
}

// Search returns the ranked sources for a query. Empty on failure.
func (r *Retriever) Search(ctx context.Context, query string) []Source {
	sources, _ := r.Retrieve(ctx, query)
	return sources
}

// Context returns the concatenated chunk text for a query. Empty on
// failure or no matches.
func (r *Retriever) Context(ctx context.Context, query string) string {
	_, context := r.Retrieve(ctx, query)
	return context
}

// HealthCheck reports whether a minimal search completes.
func (r *Retriever) HealthCheck(ctx context.Context) bool {
	_, err := r.searcher.Search(ctx, "test", knowledge.WithTopK(1))
	if err != nil {
		r.logger.Error("health check failed", "error", err)
		return false
	}
	return true
}

func (r *Retriever) sources(results []knowledge.Result) []Source {
	sources := make([]Source, 0, len(results))
	for i, res := range results {
		sources = append(sources, Source{
			Title:   titleOrDefault(res.Metadata, i),
			URL:     res.Metadata[knowledge.MetaURL],
			ChunkID: chunkIDOrDefault(res.Metadata, i),
			Score:   r.score(res, i),
		})
	}
	return sources
}

func (r *Retriever) context(results []knowledge.Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for i, res := range results {
		content := res.Content
		if len([]rune(content)) > r.chunkChars {
			content = string([]rune(content)[:r.chunkChars]) + "..."
		}
		parts = append(parts, fmt.Sprintf("=== DOCUMENT %d: %s ===\n%s\n",
			i+1, titleOrDefault(res.Metadata, i), content))
	}
	return strings.Join(parts, "\n")
}

// score prefers the index's similarity when it is usable and falls
// back to monotonic rank decay otherwise. The fallback is a stated
// policy, not a calibrated probability.
func (r *Retriever) score(res knowledge.Result, rank int) float64 {
	if s := float64(res.Similarity); s > 0 && s <= 1 {
		return s
	}
	return max(0, 1-r.scoreDecay*float64(rank))
}

func titleOrDefault(metadata map[string]string, rank int) string {
	if title := metadata[knowledge.MetaTitle]; title != "" {
		return title
	}
	return fmt.Sprintf("Document %d", rank+1)
}

func chunkIDOrDefault(metadata map[string]string, rank int) string {
	if id := metadata[knowledge.MetaChunkID]; id != "" {
		return id
	}
	return fmt.Sprintf("chunk_%d", rank)
}
