package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"briefing/internal/config"
	"briefing/internal/services"
)

const systemPrompt = "You are an expert executive briefing assistant."

const userPrompt = "Summarise the following transcript." +
	" Produce a concise tl_dr under 60 words, a list of 3-5 key highlights," +
	" and a single notable quote (or null if unavailable)." +
	" Return JSON with keys tl_dr (string), highlights (array of strings), key_quote (string or null)." +
	" Do not include text outside the JSON object."

// OpenAIGenerator produces summaries through a chat-completion endpoint.
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	maxChars int
	timeout  time.Duration
}

// NewOpenAIGenerator builds the LLM generator from configuration. It
// errors when no API key is configured.
func NewOpenAIGenerator(cfg *config.Config) (*OpenAIGenerator, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "summary", "openai", "api key is not configured", nil)
	}
	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	return &OpenAIGenerator{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.OpenAI.Model,
		maxChars: cfg.OpenAI.MaxChars,
		timeout:  time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
	}, nil
}

type summaryPayload struct {
	TLDR       string   `json:"tl_dr"`
	Highlights []string `json:"highlights"`
	KeyQuote   *string  `json:"key_quote"`
}

// Generate asks the model for a JSON summary of the transcript.
func (g *OpenAIGenerator) Generate(ctx context.Context, input Input) (*Result, error) {
	transcript := strings.TrimSpace(input.Transcript)
	if transcript == "" {
		return nil, services.Wrap(services.ErrValidation, "summary", "generate", "transcript is empty", nil)
	}
	if g.maxChars > 0 && len(transcript) > g.maxChars {
		transcript = transcript[:g.maxChars]
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(transcript, input)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty response")
	}

	payload, err := parsePayload(resp.Choices[len(resp.Choices)-1].Message.Content)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TLDR:       strings.TrimSpace(payload.TLDR),
		Highlights: payload.Highlights,
		Model:      g.model,
	}
	if payload.KeyQuote != nil {
		result.KeyQuote = strings.TrimSpace(*payload.KeyQuote)
	}
	if result.TLDR == "" {
		return nil, fmt.Errorf("chat completion: missing tl_dr")
	}
	return result, nil
}

func buildUserMessage(transcript string, input Input) string {
	var b strings.Builder
	b.WriteString(userPrompt)
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(transcript)

	var lines []string
	if len(input.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(input.Tags, ", "))
	}
	if len(input.Hashtags) > 0 {
		lines = append(lines, "Hashtags: "+strings.Join(input.Hashtags, ", "))
	}
	if len(input.Sponsors) > 0 {
		lines = append(lines, "Sponsor mentions: "+strings.Join(input.Sponsors, "; "))
	}
	if description := strings.TrimSpace(input.CleanDescription); description != "" {
		if len(description) > 1000 {
			description = description[:1000] + "…"
		}
		lines = append(lines, "Description snippet: "+description)
	}
	if len(lines) > 0 {
		b.WriteString("\n\nMetadata:\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

// parsePayload decodes the model output, tolerating Markdown code fences
// around the JSON object.
func parsePayload(content string) (*summaryPayload, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.Trim(content, "`\n")
		content = strings.TrimPrefix(content, "json")
		content = strings.TrimSpace(content)
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode summary payload: %w", err)
	}
	return &payload, nil
}
