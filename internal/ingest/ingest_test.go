package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlemate/moodlemate/internal/knowledge"
)

// mockStore implements Adder with call recording.
type mockStore struct {
	addErr error
	docs   []knowledge.Document
}

func (m *mockStore) Add(_ context.Context, doc knowledge.Document) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *mockStore) Count(context.Context) (int, error) {
	return len(m.docs), nil
}

const sampleChunks = `{"chunk_id":"Course_creation_0","page_id":"1","title":"Course creation","url":"https://docs.moodle.org/403/en/Course_creation","text":"Go to Site administration."}
{"chunk_id":"Course_creation_1","page_id":"1","title":"Course creation","url":"https://docs.moodle.org/403/en/Course_creation","text":"Click Add a new course."}
`

func TestLoad(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	loader := NewLoader(store, nil)

	loaded, skipped, err := loader.load(t.Context(), strings.NewReader(sampleChunks))
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 0, skipped)

	require.Len(t, store.docs, 2)
	doc := store.docs[0]
	assert.Equal(t, "Course_creation_0", doc.ID)
	assert.Equal(t, "Go to Site administration.", doc.Content)
	assert.Equal(t, "Course creation", doc.Metadata[knowledge.MetaTitle])
	assert.Equal(t, "https://docs.moodle.org/403/en/Course_creation", doc.Metadata[knowledge.MetaURL])
}

func TestLoad_SkipsBadLines(t *testing.T) {
	t.Parallel()

	input := `{"chunk_id":"ok_0","title":"T","url":"u","text":"valid chunk"}
not json at all
{"chunk_id":"","title":"T","url":"u","text":"missing id"}
{"chunk_id":"no_text","title":"T","url":"u","text":"  "}

{"chunk_id":"ok_1","title":"T","url":"u","text":"another valid chunk"}
`
	store := &mockStore{}
	loader := NewLoader(store, nil)

	loaded, skipped, err := loader.load(t.Context(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 3, skipped)
}

func TestLoad_StoreFailureAborts(t *testing.T) {
	t.Parallel()

	store := &mockStore{addErr: errors.New("embedder down")}
	loader := NewLoader(store, nil)

	_, _, err := loader.load(t.Context(), strings.NewReader(sampleChunks))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "moodle_chunks.jsonl"), []byte(sampleChunks), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	store := &mockStore{}
	loader := NewLoader(store, nil)

	stats, err := loader.LoadDir(t.Context(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 0, stats.Skipped)
}

func TestLoadDir_NoChunkFiles(t *testing.T) {
	t.Parallel()

	loader := NewLoader(&mockStore{}, nil)
	_, err := loader.LoadDir(t.Context(), t.TempDir())
	assert.Error(t, err)
}
