// File: internal/infra/intent/gemini_extractor.go
package intent

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"catering-platform/internal/domain/ports/adapter"
)

var _ adapter.IntentExtractor = (*GeminiExtractor)(nil)

// GeminiExtractor implements adapter.IntentExtractor on the official
// Gemini SDK. It speaks the same JSON verdict contract as LLMExtractor,
// so the two are interchangeable behind the port.
type GeminiExtractor struct {
	client *genai.Client
	model  string
	maxOut int
}

func NewGeminiExtractor(ctx context.Context, apiKey, baseURL, mdl string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key empty")
	}
	if mdl == "" {
		mdl = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiExtractor{client: c, model: mdl, maxOut: 1024}, nil
}

func (g *GeminiExtractor) Extract(ctx context.Context, req adapter.IntentRequest) (adapter.IntentResult, error) {
	messages := buildPromptMessages(req)
	last := messages[len(messages)-1]
	history := toGenAIHistory(messages[:len(messages)-1])

	chat, err := g.client.Chats.Create(
		ctx,
		g.model,
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
		history,
	)
	if err != nil {
		return adapter.IntentResult{}, err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return adapter.IntentResult{}, err
	}
	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return adapter.IntentResult{}, errors.New("empty gemini response")
	}
	return parseVerdict(text)
}

// toGenAIHistory maps chat messages onto the SDK's content slices. Gemini
// has no separate system role in history; system messages ride as user
// turns, which is enough for the prompt contract.
func toGenAIHistory(msgs []chatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if strings.EqualFold(m.Role, "assistant") {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
