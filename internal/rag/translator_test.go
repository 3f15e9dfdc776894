package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlemate/moodlemate/internal/testutil"
)

func TestTranslator_ASCIIPassthrough(t *testing.T) {
	t.Parallel()

	translator := NewTranslator(TranslatorConfig{Enabled: false})

	inputs := []string{
		"how to create a course",
		"admin settings",
		"User: hello?",
	}
	for _, input := range inputs {
		assert.Equal(t, input, translator.Normalize(context.Background(), input))
	}
}

func TestTranslator_EmptyInput(t *testing.T) {
	t.Parallel()

	translator := NewTranslator(TranslatorConfig{Enabled: false})

	assert.Equal(t, "", translator.Normalize(context.Background(), ""))
	assert.Equal(t, "   ", translator.Normalize(context.Background(), "   "))
}

func TestFallbackTranslate_Dictionary(t *testing.T) {
	t.Parallel()

	out := fallbackTranslate("Как создать новый курс")

	assert.Contains(t, out, "how to")
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "new")
	assert.Contains(t, out, "course")
}

func TestFallbackTranslate_LongestMatchWins(t *testing.T) {
	t.Parallel()

	out := fallbackTranslate("курсы")
	assert.Contains(t, out, "courses")
	assert.NotContains(t, out, "courseы")
}

func TestFallbackTranslate_AnchorKeywords(t *testing.T) {
	t.Parallel()

	out := fallbackTranslate("непереводимое слово")
	for _, keyword := range anchorKeywords {
		assert.Contains(t, out, keyword)
	}

	// Already-present keywords are not duplicated.
	out = fallbackTranslate("курс для admin")
	assert.Equal(t, 1, strings.Count(out, "admin"))
}

func TestFallbackTranslate_Deterministic(t *testing.T) {
	t.Parallel()

	input := "как настроить оценки пользователя"
	first := fallbackTranslate(input)
	for range 10 {
		assert.Equal(t, first, fallbackTranslate(input))
	}
}

func TestTranslator_ModelPath(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel("create a course")
	mock.Register(g, "mock/translator")

	translator := NewTranslator(TranslatorConfig{
		Genkit:    g,
		ModelName: "mock/translator",
		Enabled:   true,
	})

	out := translator.Normalize(context.Background(), "как создать курс")
	assert.Equal(t, "create a course", out)
}

func TestTranslator_ModelFailureFallsBack(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel("unused")
	mock.FailWith(errors.New("model unavailable"))
	mock.Register(g, "mock/broken-translator")

	translator := NewTranslator(TranslatorConfig{
		Genkit:    g,
		ModelName: "mock/broken-translator",
		Enabled:   true,
	})

	out := translator.Normalize(context.Background(), "создать курс")
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "course")
}

func TestTranslator_MissingModelFallsBack(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	translator := NewTranslator(TranslatorConfig{
		Genkit:    g,
		ModelName: "mock/nonexistent",
		Enabled:   true,
	})

	out := translator.Normalize(context.Background(), "создать курс")
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "course")
}

func TestTranslator_InputTruncation(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel("translated")
	mock.Register(g, "mock/truncating-translator")

	translator := NewTranslator(TranslatorConfig{
		Genkit:    g,
		ModelName: "mock/truncating-translator",
		MaxChars:  10,
		Enabled:   true,
	})

	long := strings.Repeat("ы", 100)
	translator.Normalize(context.Background(), long)

	prompts := mock.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], strings.Repeat("ы", 10))
	assert.NotContains(t, prompts[0], strings.Repeat("ы", 11))
}
