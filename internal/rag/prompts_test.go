package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_SectionOrder(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("Q-marker", "CTX-marker", "HIST-marker")

	ctxIdx := strings.Index(prompt, "CTX-marker")
	histIdx := strings.Index(prompt, "HIST-marker")
	qIdx := strings.Index(prompt, "QUESTION: Q-marker")

	require.GreaterOrEqual(t, ctxIdx, 0)
	require.GreaterOrEqual(t, histIdx, 0)
	require.GreaterOrEqual(t, qIdx, 0)

	assert.Less(t, ctxIdx, histIdx, "context must precede history")
	assert.Less(t, histIdx, qIdx, "history must precede question")
	assert.True(t, strings.HasSuffix(prompt, "ANSWER:"), "prompt must end with the answer cue")
}

func TestBuildPrompt_OmitsEmptySections(t *testing.T) {
	t.Parallel()

	t.Run("no context", func(t *testing.T) {
		t.Parallel()
		prompt := BuildPrompt("question", "", "some history")
		assert.NotContains(t, prompt, "CONTEXT:")
		assert.Contains(t, prompt, "DIALOGUE HISTORY:")
	})

	t.Run("no history", func(t *testing.T) {
		t.Parallel()
		prompt := BuildPrompt("question", "some context", "")
		assert.Contains(t, prompt, "CONTEXT:")
		assert.NotContains(t, prompt, "DIALOGUE HISTORY:")
	})

	t.Run("question only", func(t *testing.T) {
		t.Parallel()
		prompt := BuildPrompt("question", "", "")
		assert.NotContains(t, prompt, "CONTEXT:")
		assert.NotContains(t, prompt, "DIALOGUE HISTORY:")
		assert.Contains(t, prompt, "QUESTION: question")
	})
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	t.Parallel()

	first := BuildPrompt("q", "c", "h")
	second := BuildPrompt("q", "c", "h")
	assert.Equal(t, first, second)
}

func TestBuildPrompt_BlankLineSeparation(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("q", "c", "h")
	assert.Contains(t, prompt, "CONTEXT:\nc\n\nDIALOGUE HISTORY:\nh\n\nQUESTION: q\n\nANSWER:")
}
