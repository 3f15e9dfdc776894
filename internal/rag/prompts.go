package rag

import "strings"

// systemPrompt establishes the assistant's persona and output rules
// before any grounding content.
const systemPrompt = `You are a Moodle assistant. Use ONLY information from the provided context.

RULES:
1. Answer in the language of the question
2. Give specific step-by-step instructions
3. Use information from the context above
4. Do not give general phrases
5. If the context contains specific instructions, include them in your answer

IMPORTANT: Extract the specific steps from the context and translate them into the question's language if needed.`

const (
	contextHeader = "CONTEXT:"
	historyHeader = "DIALOGUE HISTORY:"
	questionLabel = "QUESTION: "
	answerCue     = "ANSWER:"
)

// BuildPrompt composes the full generation input. Section order is
// fixed: system instructions, retrieved context, dialogue history,
// question, answer cue. Context and history sections are omitted when
// empty. Pure function.
func BuildPrompt(question, context, history string) string {
	parts := make([]string, 0, 5)
	parts = append(parts, systemPrompt)

	if context != "" {
		parts = append(parts, contextHeader+"\n"+context)
	}
	if history != "" {
		parts = append(parts, historyHeader+"\n"+history)
	}

	parts = append(parts, questionLabel+question)
	parts = append(parts, answerCue)

	return strings.Join(parts, "\n\n")
}
