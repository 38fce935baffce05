package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	openaioption "github.com/openai/openai-go/v3/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI answers with a chat-completions model using the same FALLBACK convention as Anthropic.
type OpenAI struct {
	client openai.Client
	model  string
	prompt string
}

func NewOpenAI(apiKey, apiBase, model, prompt string) *OpenAI {
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(apiKey)}
	if apiBase != "" {
		opts = append(opts, openaioption.WithBaseURL(apiBase))
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		prompt: systemPrompt(prompt),
	}
}

func (o *OpenAI) DetectIntent(ctx context.Context, _ string, text string) (Result, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.prompt),
			openai.UserMessage(text),
		},
		MaxCompletionTokens: openai.Int(maxReplyTokens),
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("openai API call: empty choices")
	}
	return resultFromCompletion(resp.Choices[0].Message.Content), nil
}
