package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlemate/moodlemate/internal/knowledge"
	"github.com/moodlemate/moodlemate/internal/testutil"
)

// newTestPipeline builds a pipeline around a fake searcher and a mock
// model serving the given response.
func newTestPipeline(t *testing.T, searcher Searcher, response string) *Pipeline {
	t.Helper()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel(response)
	mock.Register(g, "mock/pipeline-model")

	return NewPipeline(PipelineConfig{
		Retriever: NewRetriever(RetrieverConfig{Searcher: searcher}),
		Generator: NewGenerator(GeneratorConfig{
			Genkit:    g,
			ModelName: "mock/pipeline-model",
		}),
		Memory:        NewMemory(10, 24*time.Hour, nil),
		HistoryWindow: 5,
	})
}

func TestPipeline_Answer(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []knowledge.Result{
		result("courses", "Course creation", "Go to Site administration > Courses.", 0.9),
	}}
	p := newTestPipeline(t, searcher, "Open Site administration and add a new course.")

	answer := p.Answer(t.Context(), "How to create a course?", "s1")

	assert.Equal(t, "s1", answer.SessionID)
	assert.NotEmpty(t, answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "Course creation", answer.Sources[0].Title)
}

func TestPipeline_SecondTurnSeesHistory(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []knowledge.Result{
		result("courses", "Course creation", "Course creation steps.", 0.9),
	}}
	p := newTestPipeline(t, searcher, "Here is how you create a course.")

	first := p.Answer(t.Context(), "How to create a course?", "s1")
	p.Answer(t.Context(), "And how do I delete one?", "s1")

	history := p.Memory().History("s1", 5)
	assert.Contains(t, history, "How to create a course?")
	assert.Contains(t, history, first.Text)
}

func TestPipeline_RetrievalFailureSoftFails(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{err: errors.New("index unreachable")}
	p := newTestPipeline(t, searcher, "An answer without grounding.")

	answer := p.Answer(t.Context(), "any question", "s1")

	assert.Equal(t, "s1", answer.SessionID)
	assert.NotEmpty(t, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.NotNil(t, answer.Sources)
}

func TestPipeline_EmptyMessage(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	p := newTestPipeline(t, searcher, "Please ask a question about Moodle.")

	answer := p.Answer(t.Context(), "", "s1")

	assert.Equal(t, "s1", answer.SessionID)
	assert.NotEmpty(t, answer.Text)
}

func TestPipeline_MemoryCommitOrder(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	p := newTestPipeline(t, searcher, "The answer.")

	p.Answer(t.Context(), "The question?", "s1")

	history := p.Memory().History("s1", 5)
	assert.Equal(t, "User: The question?\nAssistant: The answer.", history)
}

func TestPipeline_PanicRecovered(t *testing.T) {
	t.Parallel()

	memory := NewMemory(10, 24*time.Hour, nil)

	// A nil retriever panics on first use; the pipeline converts that
	// into the soft-failure response without touching memory.
	p := NewPipeline(PipelineConfig{
		Retriever: nil,
		Generator: NewGenerator(GeneratorConfig{}),
		Memory:    memory,
	})

	answer := p.Answer(t.Context(), "question", "s1")

	assert.Equal(t, errorResponse, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, "s1", answer.SessionID)
	assert.Equal(t, "", memory.History("s1", 5), "failed turns must not commit to memory")
}

func TestPipeline_HealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		p := newTestPipeline(t, &fakeSearcher{}, "ok")
		assert.True(t, p.HealthCheck(t.Context()))
	})

	t.Run("retriever down", func(t *testing.T) {
		t.Parallel()
		p := newTestPipeline(t, &fakeSearcher{err: errors.New("down")}, "ok")
		assert.False(t, p.HealthCheck(t.Context()))
	})
}
