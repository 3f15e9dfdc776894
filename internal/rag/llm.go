package rag

import (
	"context"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/moodlemate/moodlemate/internal/log"
)

// degradedResponse is returned whenever the model is unavailable or a
// generation call fails. The pipeline never fails a request solely
// because generation failed.
const degradedResponse = "I could not find reliable information for your request in the available documentation. " +
	"Please consult the official Moodle documentation or rephrase your question. " +
	"Make sure a language model is available for more complete answers."

// GeneratorConfig carries the construction parameters for Generator.
type GeneratorConfig struct {
	Genkit        *genkit.Genkit
	ModelName     string // provider-qualified, e.g. "ollama/qwen2.5:7b"
	MaxTokens     int
	Temperature   float32
	TopP          float32
	StopSequences []string
	RateLimiter   *rate.Limiter // optional proactive limiter ahead of model calls
	Logger        log.Logger
}

// Generator wraps the text-generation model. The model is resolved
// eagerly at construction; when resolution fails the Generator enters
// a permanent degraded mode and serves the fixed fallback text
// instead of failing requests.
type Generator struct {
	g             *genkit.Genkit
	model         ai.Model
	maxTokens     int
	temperature   float32
	topP          float32
	stopSequences []string
	limiter       *rate.Limiter
	logger        log.Logger
}

// NewGenerator creates a Generator and resolves the model immediately.
// A missing model is logged as an error but does not fail
// construction.
func NewGenerator(cfg GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With("component", "generator")

	var model ai.Model
	if cfg.Genkit != nil {
		model = genkit.LookupModel(cfg.Genkit, cfg.ModelName)
	}
	if model == nil {
		logger.Error("generation model unavailable, entering degraded mode",
			"model", cfg.ModelName)
	} else {
		logger.Info("generation model resolved", "model", cfg.ModelName)
	}

	return &Generator{
		g:             cfg.Genkit,
		model:         model,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		stopSequences: cfg.StopSequences,
		limiter:       cfg.RateLimiter,
		logger:        logger,
	}
}

// Generate produces text for a prompt. In degraded mode, or when the
// model call fails, it returns the fixed fallback message. Output is
// trimmed of surrounding whitespace.
func (g *Generator) Generate(ctx context.Context, prompt string) string {
	if g.model == nil {
		return degradedResponse
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.logger.Error("rate limiter wait failed", "error", err)
			return degradedResponse
		}
	}

	resp, err := genkit.Generate(ctx, g.g,
		ai.WithModel(g.model),
		ai.WithPrompt("%s", prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			MaxOutputTokens: g.maxTokens,
			Temperature:     float64(g.temperature),
			TopP:            float64(g.topP),
			StopSequences:   g.stopSequences,
		}),
	)
	if err != nil {
		g.logger.Error("generation failed", "error", err)
		return degradedResponse
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		g.logger.Warn("model returned empty response")
		return degradedResponse
	}
	g.logger.Debug("generated answer", "length", len(answer))
	return answer
}

// HealthCheck reports generator health. Degraded mode counts as
// healthy because the fallback path still serves answers; a live
// model is probed with a minimal generation.
func (g *Generator) HealthCheck(ctx context.Context) bool {
	if g.model == nil {
		g.logger.Warn("generation model not loaded, fallback mode active")
		return true
	}
	return g.Generate(ctx, "Test") != ""
}
