package rag

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/moodlemate/moodlemate/internal/log"
)

// translatePrompt instructs the translation model to emit nothing but
// the translated query.
const translatePrompt = "Translate the following search query to English. Reply with the translation only, no explanations.\n\nQuery: %s"

// fallbackTranslations maps Russian domain keywords to their English
// equivalents for the deterministic dictionary fallback.
var fallbackTranslations = map[string]string{
	"создать":      "create",
	"добавить":     "add",
	"новый":        "new",
	"курс":         "course",
	"курсы":        "courses",
	"настроить":    "configure",
	"настройка":    "configuration",
	"система":      "system",
	"оценки":       "grades",
	"оценка":       "grade",
	"пользователь": "user",
	"пользователи": "users",
	"активность":   "activity",
	"журнал":       "log",
	"журналы":      "logs",
	"просмотреть":  "view",
	"как":          "how to",
	"что":          "what",
	"где":          "where",
	"когда":        "when",
	"почему":       "why",
}

// anchorKeywords are appended by the fallback when a query still looks
// non-English after substitution, so the vector search has something to
// latch onto.
var anchorKeywords = []string{"moodle", "course", "user", "admin", "settings"}

// Translator maps user queries into the retrieval corpus's language.
// The primary strategy is a translation model resolved lazily on first
// use; when the model is unavailable or fails, a deterministic
// dictionary substitution takes over. Normalize never fails.
type Translator struct {
	g         *genkit.Genkit
	modelName string
	maxChars  int
	enabled   bool
	logger    log.Logger

	initOnce sync.Once
	model    ai.Model
}

// TranslatorConfig carries the construction parameters for Translator.
type TranslatorConfig struct {
	Genkit    *genkit.Genkit
	ModelName string // provider-qualified, e.g. "ollama/qwen2.5:1.5b"
	MaxChars  int    // input bound before encoding
	Enabled   bool   // false skips the model and goes straight to the dictionary
	Logger    log.Logger
}

// NewTranslator creates a Translator. The translation model is not
// resolved here; a missing or broken model surfaces on first use as a
// silent switch to the dictionary fallback.
func NewTranslator(cfg TranslatorConfig) *Translator {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 512
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Translator{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		maxChars:  maxChars,
		enabled:   cfg.Enabled,
		logger:    logger.With("component", "translator"),
	}
}

// Normalize returns the retrieval key for a user query. ASCII input
// passes through unchanged. Non-ASCII input is translated by the model
// when available, otherwise by the dictionary fallback. Errors never
// reach the caller.
func (t *Translator) Normalize(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if isASCII(text) {
		return text
	}

	if t.enabled && t.g != nil {
		t.initOnce.Do(func() {
			t.model = genkit.LookupModel(t.g, t.modelName)
			if t.model == nil {
				t.logger.Error("translation model not found, using dictionary fallback",
					"model", t.modelName)
				return
			}
			t.logger.Info("translation model resolved", "model", t.modelName)
		})

		if t.model != nil {
			if translated, err := t.translate(ctx, text); err != nil {
				t.logger.Error("translation failed, using dictionary fallback", "error", err)
			} else if translated != "" {
				return translated
			}
		}
	}

	return fallbackTranslate(text)
}

func (t *Translator) translate(ctx context.Context, text string) (string, error) {
	resp, err := genkit.Generate(ctx, t.g,
		ai.WithModel(t.model),
		ai.WithPrompt(translatePrompt, truncateRunes(text, t.maxChars)),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// fallbackTranslate substitutes known domain keywords and appends
// anchor keywords when the result still contains non-ASCII characters.
// Deterministic and side-effect free.
func fallbackTranslate(text string) string {
	translated := strings.ToLower(text)

	// Longest keys first so "курсы" wins over "курс"; alphabetical
	// within a length to keep the order stable.
	keys := make([]string, 0, len(fallbackTranslations))
	for k := range fallbackTranslations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		translated = strings.ReplaceAll(translated, k, fallbackTranslations[k])
	}

	if !isASCII(text) {
		for _, keyword := range anchorKeywords {
			if !strings.Contains(translated, keyword) {
				translated += " " + keyword
			}
		}
	}

	return translated
}

// isASCII reports whether every byte fits in 7 bits.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// truncateRunes bounds s to n runes without splitting a character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
