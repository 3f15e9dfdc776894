package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlemate/moodlemate/internal/testutil"
)

func TestGenerator_DegradedMode(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	gen := NewGenerator(GeneratorConfig{
		Genkit:    g,
		ModelName: "mock/never-registered",
	})

	assert.Equal(t, degradedResponse, gen.Generate(t.Context(), "any prompt"))
	assert.True(t, gen.HealthCheck(t.Context()), "fallback mode counts as healthy")
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel("  an answer with whitespace  \n")
	mock.Register(g, "mock/generator")

	gen := NewGenerator(GeneratorConfig{
		Genkit:    g,
		ModelName: "mock/generator",
		MaxTokens: 4096,
	})

	answer := gen.Generate(t.Context(), "QUESTION: anything")
	assert.Equal(t, "an answer with whitespace", answer, "output must be trimmed")
}

func TestGenerator_CallFailureFallsBack(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel("unused")
	mock.FailWith(errors.New("backend down"))
	mock.Register(g, "mock/failing-generator")

	gen := NewGenerator(GeneratorConfig{
		Genkit:    g,
		ModelName: "mock/failing-generator",
	})

	assert.Equal(t, degradedResponse, gen.Generate(t.Context(), "prompt"))
}

func TestGenerator_EmptyResponseFallsBack(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel("   ")
	mock.Register(g, "mock/empty-generator")

	gen := NewGenerator(GeneratorConfig{
		Genkit:    g,
		ModelName: "mock/empty-generator",
	})

	assert.Equal(t, degradedResponse, gen.Generate(t.Context(), "prompt"))
}

func TestGenerator_HealthCheckLiveModel(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	mock := testutil.NewMockModel("ok")
	mock.Register(g, "mock/healthy-generator")

	gen := NewGenerator(GeneratorConfig{
		Genkit:    g,
		ModelName: "mock/healthy-generator",
	})

	assert.True(t, gen.HealthCheck(t.Context()))
}
