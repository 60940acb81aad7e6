// ABOUTME: Dream interpretation through an eino chat model.
// ABOUTME: Formats the analyst prompt, extracts the JSON reply, and validates it against the schema.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/2389-research/dreamscribe/internal/models"
)

// Ark endpoint defaults.
const (
	DefaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	DefaultArkRegion  = "cn-beijing"
)

// The system prompt is an FString template; it must not contain braces.
const interpretSystemPrompt = `You are an experienced dream analyst. You draw on common psychological frameworks (Jungian, Freudian, Archetypal) and modern dream analysis.
Reply with a single JSON object and nothing else. The object has these fields, all required:
- "title": a creative, short title for the dream.
- "summary": a concise one-paragraph summary of the dream.
- "themes": an array of 2 to 4 short strings naming the main themes (for example "loss of control", "freedom").
- "symbols": an array of objects with "symbol" (the symbol identified), "meaning" (its potential meaning in the dream's context), and "psychology" (a brief Freudian, Jungian, or Archetypal reading).
- "emotions": an array of objects with "emotion" (a dominant emotion) and "analysis" (how it manifests and what it might signify).
- "interpretation": a comprehensive interpretation weaving themes, symbols, and emotions into a cohesive narrative for self-reflection.`

const interpretUserPrompt = `Analyze the following dream. Identify key symbols, emotions, and themes. Dream: "{dream}"`

// ChatModel is the part of an eino chat model the interpreter needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Interpreter turns dream text into a structured Interpretation.
type Interpreter struct {
	model    ChatModel
	template prompt.ChatTemplate
	log      zerolog.Logger
}

// NewInterpreter creates an interpreter over chatModel. A nil model yields an
// interpreter whose every call fails with ErrNotConfigured.
func NewInterpreter(chatModel ChatModel, log zerolog.Logger) *Interpreter {
	return &Interpreter{
		model: chatModel,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage(interpretSystemPrompt),
			schema.UserMessage(interpretUserPrompt),
		),
		log: log.With().Str("component", "interpreter").Logger(),
	}
}

// Interpret requests an interpretation for text. Every failure is an *EnrichmentFailure.
func (i *Interpreter) Interpret(ctx context.Context, text string) (*models.Interpretation, error) {
	if i.model == nil {
		return nil, interpretFailure(ErrNotConfigured)
	}

	messages, err := i.template.Format(ctx, map[string]any{"dream": strings.TrimSpace(text)})
	if err != nil {
		return nil, interpretFailure(fmt.Errorf("failed to format prompt: %w", err))
	}

	resp, err := i.model.Generate(ctx, messages)
	if err != nil {
		return nil, interpretFailure(fmt.Errorf("model request failed: %w", err))
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, interpretFailure(fmt.Errorf("empty model response"))
	}

	interp, err := ParseInterpretation(resp.Content)
	if err != nil {
		i.log.Debug().Str("content", resp.Content).Msg("unusable interpretation response")
		return nil, interpretFailure(err)
	}
	return interp, nil
}

// ParseInterpretation extracts the outermost JSON object from content and validates it.
func ParseInterpretation(content string) (*models.Interpretation, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	var interp models.Interpretation
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &interp); err != nil {
		return nil, fmt.Errorf("malformed json: %w", err)
	}
	if err := interp.Validate(); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}
	return &interp, nil
}

// ArkConfig holds the Ark chat model settings.
type ArkConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Region  string
}

// NewArkChatModel creates the Ark chat model used for interpretations.
func NewArkChatModel(ctx context.Context, c ArkConfig) (*ark.ChatModel, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(c.Model) == "" {
		return nil, fmt.Errorf("ai model is required")
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultArkBaseURL
	}
	region := c.Region
	if region == "" {
		region = DefaultArkRegion
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: baseURL,
		Region:  region,
		APIKey:  c.APIKey,
		Model:   c.Model,
	})
}
