// File: internal/infra/intent/llm_extractor.go
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.IntentExtractor = (*LLMExtractor)(nil)

// noChanges is the sentinel the model returns when a turn does not touch
// the draft at all.
const noChanges = "NO CHANGES"

const systemPrompt = `You take food orders for a catering service. The user talks to you in free form; you answer ONLY with a single JSON object, no prose around it:
{"action":"update_draft"|"info"|"confirm"|"none","draft":{"items":[{"dish_id":"...","quantity":1}],"delivery_provider":"","expedited":false},"reply":"text for the user"}
Rules:
- "update_draft" whenever the user adds, removes or changes dishes, chooses a courier, or asks to expedite. "draft" must then hold the FULL updated draft, not a delta.
- "confirm" when the user wants to place the order or agrees to a confirmation question.
- "info" for questions about the menu or their order; answer in "reply".
- "none" otherwise.
- Only dishes from the menu below may appear in the draft; use their ids.
- If the message changes nothing, you may answer with the exact text NO CHANGES instead of JSON.`

// LLMExtractor implements adapter.IntentExtractor against any
// OpenAI-compatible chat completions endpoint.
// Authorization: Bearer <API_KEY>; path /chat/completions.
type LLMExtractor struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewLLMExtractor(apiKey, base, mdl string) (*LLMExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("llm api key empty")
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if mdl == "" {
		mdl = "gpt-4o-mini"
	}
	return &LLMExtractor{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  mdl,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireItem struct {
	DishID   string `json:"dish_id"`
	Quantity int    `json:"quantity"`
}

type wireDraft struct {
	Items     []wireItem `json:"items"`
	Provider  string     `json:"delivery_provider"`
	Expedited bool       `json:"expedited"`
}

type wireVerdict struct {
	Action string     `json:"action"`
	Draft  *wireDraft `json:"draft"`
	Reply  string     `json:"reply"`
}

func (l *LLMExtractor) Extract(ctx context.Context, req adapter.IntentRequest) (adapter.IntentResult, error) {
	messages := buildPromptMessages(req)

	reqBody := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{Model: l.model, Messages: messages}

	b, _ := json.Marshal(reqBody)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, l.base+"/chat/completions", bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return adapter.IntentResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return adapter.IntentResult{}, fmt.Errorf("llm http %d", resp.StatusCode)
	}
	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.IntentResult{}, err
	}
	if len(payload.Choices) == 0 {
		return adapter.IntentResult{}, errors.New("no choice content")
	}
	return parseVerdict(payload.Choices[0].Message.Content)
}

// buildPromptMessages renders the shared prompt contract; every model
// backend speaks it, whatever transport carries the messages.
func buildPromptMessages(req adapter.IntentRequest) []chatMessage {
	var menu strings.Builder
	menu.WriteString("Menu:\n")
	for _, d := range req.Menu {
		fmt.Fprintf(&menu, "- id=%s name=%q provider=%s price_cents=%d\n", d.ID, d.Name, d.Provider, d.PriceCents)
	}
	draftJSON, _ := json.Marshal(toWireDraft(req.Draft))

	messages := make([]chatMessage, 0, len(req.Turns)+3)
	messages = append(messages,
		chatMessage{Role: "system", Content: systemPrompt},
		chatMessage{Role: "system", Content: menu.String() + "\nCurrent draft: " + string(draftJSON)},
	)
	for _, t := range req.Turns {
		role := "assistant"
		if t.Role == "user" {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: t.Content})
	}
	// The new message is the last turn already; repeat it only when the
	// caller did not include it.
	if len(req.Turns) == 0 || req.Turns[len(req.Turns)-1].Content != req.Message {
		messages = append(messages, chatMessage{Role: "user", Content: req.Message})
	}
	return messages
}

// parseVerdict decodes the model's JSON contract. Anything unparseable,
// including the NO CHANGES sentinel, degrades to a no-op verdict rather
// than an error: a confused model must never corrupt a draft.
func parseVerdict(content string) (adapter.IntentResult, error) {
	content = strings.TrimSpace(content)
	if strings.EqualFold(content, noChanges) {
		return adapter.IntentResult{Action: adapter.IntentNone}, nil
	}
	// Some models wrap JSON in code fences.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var v wireVerdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return adapter.IntentResult{Action: adapter.IntentNone, Reply: content}, nil
	}
	res := adapter.IntentResult{Reply: v.Reply}
	switch v.Action {
	case "update_draft":
		res.Action = adapter.IntentUpdateDraft
		res.Draft = fromWireDraft(v.Draft)
	case "confirm":
		res.Action = adapter.IntentConfirm
	case "info":
		res.Action = adapter.IntentInfo
	default:
		res.Action = adapter.IntentNone
	}
	return res, nil
}

func toWireDraft(d *model.DraftOrder) *wireDraft {
	w := &wireDraft{Items: []wireItem{}}
	if d == nil {
		return w
	}
	for _, it := range d.Items {
		w.Items = append(w.Items, wireItem{DishID: it.DishID, Quantity: it.Quantity})
	}
	w.Provider = d.Provider
	w.Expedited = d.Expedited
	return w
}

func fromWireDraft(w *wireDraft) *model.DraftOrder {
	if w == nil {
		return nil
	}
	d := &model.DraftOrder{Provider: w.Provider, Expedited: w.Expedited}
	for _, it := range w.Items {
		d.SetItem(it.DishID, it.Quantity)
	}
	return d
}
