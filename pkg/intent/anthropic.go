package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-5"
	maxReplyTokens          = 512
)

// Anthropic answers with a Claude model; the model replies FALLBACK when it cannot help.
type Anthropic struct {
	client  *anthropic.Client
	model   string
	prompt  string
	baseURL string
}

func NewAnthropic(apiKey, apiBase, model, prompt string) *Anthropic {
	baseURL := normalizeAnthropicBaseURL(apiBase)
	client := anthropic.NewClient(
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithBaseURL(baseURL),
	)
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		client:  &client,
		model:   model,
		prompt:  systemPrompt(prompt),
		baseURL: baseURL,
	}
}

func (a *Anthropic) BaseURL() string {
	return a.baseURL
}

func (a *Anthropic) DetectIntent(ctx context.Context, sessionID, text string) (Result, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxReplyTokens,
		System:    []anthropic.TextBlockParam{{Text: a.prompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		Metadata: anthropic.MetadataParam{UserID: anthropic.String(sessionID)},
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("claude API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return resultFromCompletion(sb.String()), nil
}

func normalizeAnthropicBaseURL(apiBase string) string {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		return defaultAnthropicBaseURL
	}

	base = strings.TrimRight(base, "/")
	if b, ok := strings.CutSuffix(base, "/v1"); ok {
		base = b
	}
	if base == "" {
		return defaultAnthropicBaseURL
	}

	return base
}
