// Package intent turns user text into a reply through an intent-detection backend.
package intent

import (
	"context"
	"fmt"
	"strings"
)

// Result is the answer of a detector for one user message.
// IsFallback reports that the backend could not interpret the input.
type Result struct {
	Reply      string
	IsFallback bool
}

type Detector interface {
	DetectIntent(ctx context.Context, sessionID, text string) (Result, error)
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(ctx context.Context, sessionID, text string) (Result, error)

func (f DetectorFunc) DetectIntent(ctx context.Context, sessionID, text string) (Result, error) {
	return f(ctx, sessionID, text)
}

// SessionID builds the per-user conversation id, e.g. "vk-42" or "tg-42".
func SessionID(channel string, userID int64) string {
	return fmt.Sprintf("%s-%d", channel, userID)
}

// Static always answers with the same result.
type Static struct {
	Reply    string
	Fallback bool
}

func (s Static) DetectIntent(_ context.Context, _, _ string) (Result, error) {
	return Result{Reply: s.Reply, IsFallback: s.Fallback}, nil
}

// fallbackToken is what LLM backends are told to answer when they cannot help.
const fallbackToken = "FALLBACK"

const defaultPrompt = `You are the support assistant of an online publishing company.
Answer the user's message briefly, in the language the user wrote in.
If the message is not a question you can answer from general knowledge about the company's
services (account access, publishing, payments, working hours), reply with exactly ` + fallbackToken + ` and nothing else.`

func systemPrompt(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return defaultPrompt
}

func resultFromCompletion(text string) Result {
	reply := strings.TrimSpace(text)
	if reply == "" || strings.EqualFold(strings.Trim(reply, ".! "), fallbackToken) {
		return Result{Reply: reply, IsFallback: true}
	}
	return Result{Reply: reply}
}
