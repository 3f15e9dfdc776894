package rag

import (
	"context"

	"github.com/moodlemate/moodlemate/internal/log"
)

// errorResponse is the soft-failure answer returned when a turn fails
// in a way no component's own fallback caught.
const errorResponse = "Something went wrong while processing your request. Please try again later."

// Answer is the result of one conversational turn.
type Answer struct {
	Text      string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}

// PipelineConfig carries the construction parameters for Pipeline.
type PipelineConfig struct {
	Retriever     *Retriever
	Generator     *Generator
	Memory        *Memory
	HistoryWindow int // turns of history fed into the prompt
	Logger        log.Logger
}

// Pipeline composes the answering components for one request and owns
// the catch-all failure boundary. Construct once per process and
// share across request handlers.
type Pipeline struct {
	retriever     *Retriever
	generator     *Generator
	memory        *Memory
	historyWindow int
	logger        log.Logger
}

// NewPipeline assembles the pipeline from its components.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	window := cfg.HistoryWindow
	if window <= 0 {
		window = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		retriever:     cfg.Retriever,
		generator:     cfg.Generator,
		memory:        cfg.Memory,
		historyWindow: window,
		logger:        logger.With("component", "pipeline"),
	}
}

// Answer runs one full turn: history lookup, retrieval, prompt
// construction, generation, then memory commit. Memory is written
// only after generation succeeds, so a failed turn leaves no partial
// state. Any panic escaping a component is converted into the
// soft-failure response; Answer itself never panics and never errors.
func (p *Pipeline) Answer(ctx context.Context, question, sessionID string) (answer Answer) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic recovered", "panic", r, "session_id", sessionID)
			answer = Answer{
				Text:      errorResponse,
				Sources:   []Source{},
				SessionID: sessionID,
			}
		}
	}()

	p.logger.Info("answering question",
		"session_id", sessionID,
		"question", truncateRunes(question, 50))

	history := p.memory.History(sessionID, p.historyWindow)
	sources, context := p.retriever.Retrieve(ctx, question)
	prompt := BuildPrompt(question, context, history)
	text := p.generator.Generate(ctx, prompt)

	p.memory.AddMessage(sessionID, RoleUser, question)
	p.memory.AddMessage(sessionID, RoleAssistant, text)

	return Answer{
		Text:      text,
		Sources:   sources,
		SessionID: sessionID,
	}
}

// HealthCheck reports whether both the retriever and the generator
// are serviceable. Memory has no failure mode worth reporting.
func (p *Pipeline) HealthCheck(ctx context.Context) bool {
	return p.retriever.HealthCheck(ctx) && p.generator.HealthCheck(ctx)
}

// Memory exposes the conversation memory for the session management
// endpoints and the expiry sweeper.
func (p *Pipeline) Memory() *Memory {
	return p.memory
}
