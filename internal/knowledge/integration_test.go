//go:build integration
// +build integration

package knowledge

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlemate/moodlemate/internal/log"
	"github.com/moodlemate/moodlemate/internal/testutil"
)

// fixedEmbedder maps known texts to fixed 768-dimensional vectors so
// that cosine ordering in the database is fully predictable.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Name() string          { return "fixed-embedder" }
func (f *fixedEmbedder) Register(api.Registry) {}

func (f *fixedEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	text := req.Input[0].Content[0].Text
	vec, ok := f.vectors[text]
	if !ok {
		vec = axis(0)
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: vec}}}, nil
}

// axis returns a unit vector along the given dimension.
func axis(i int) []float32 {
	v := make([]float32, VectorDimension)
	v[i] = 1
	return v
}

// blend returns a normalized mix of two axes, leaning toward the first.
func blend(primary, secondary int) []float32 {
	v := make([]float32, VectorDimension)
	v[primary] = 0.9
	v[secondary] = 0.1
	return v
}

func TestStore_Postgres_RoundTrip(t *testing.T) {
	setup := testutil.SetupPostgres(t)
	ctx := context.Background()

	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"Creating a course in Moodle": axis(0),
		"Managing user accounts":      axis(1),
		"Configuring site settings":   axis(2),
		"how to create a course":      blend(0, 1),
	}}

	store := New(NewQueries(setup.Pool), embedder, log.NewNop())

	docs := []Document{
		{
			ID:      "docs/courses#0",
			Content: "Creating a course in Moodle",
			Metadata: map[string]string{
				MetaTitle: "Course creation",
				MetaURL:   "https://docs.moodle.org/courses",
			},
		},
		{
			ID:      "docs/users#0",
			Content: "Managing user accounts",
			Metadata: map[string]string{
				MetaTitle: "User management",
				MetaURL:   "https://docs.moodle.org/users",
			},
		},
		{
			ID:      "docs/settings#0",
			Content: "Configuring site settings",
			Metadata: map[string]string{
				MetaTitle: "Site settings",
				MetaURL:   "https://docs.moodle.org/settings",
			},
		},
	}
	for _, doc := range docs {
		require.NoError(t, store.Add(ctx, doc))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	t.Run("search orders by similarity", func(t *testing.T) {
		results, err := store.Search(ctx, "how to create a course", WithTopK(2))
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "docs/courses#0", results[0].ID)
		assert.Equal(t, "docs/users#0", results[1].ID)
		assert.Greater(t, results[0].Similarity, results[1].Similarity)
		assert.Equal(t, "Course creation", results[0].Metadata[MetaTitle])
	})

	t.Run("upsert replaces content", func(t *testing.T) {
		updated := docs[0]
		updated.Content = "Creating a course in Moodle"
		updated.Metadata[MetaTitle] = "Course creation (updated)"
		require.NoError(t, store.Add(ctx, updated))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		results, err := store.Search(ctx, "how to create a course", WithTopK(1))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Course creation (updated)", results[0].Metadata[MetaTitle])
	})

	t.Run("delete removes document", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "docs/settings#0"))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}
