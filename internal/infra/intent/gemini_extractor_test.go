package intent

import (
	"testing"

	"google.golang.org/genai"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
)

func TestGeminiHistoryRoles(t *testing.T) {
	msgs := []chatMessage{
		{Role: "system", Content: "instructions"},
		{Role: "user", Content: "2 burgers"},
		{Role: "assistant", Content: "Added."},
	}
	out := toGenAIHistory(msgs)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	// System messages travel as user turns; assistant maps to the model role.
	wantRoles := []string{string(genai.RoleUser), string(genai.RoleUser), string(genai.RoleModel)}
	for i, c := range out {
		if string(c.Role) != wantRoles[i] {
			t.Errorf("role[%d] = %s, want %s", i, c.Role, wantRoles[i])
		}
		if len(c.Parts) != 1 || c.Parts[0].Text != msgs[i].Content {
			t.Errorf("content[%d] = %+v, want text %q", i, c.Parts, msgs[i].Content)
		}
	}
}

func TestPromptMessagesEndWithUserMessage(t *testing.T) {
	req := adapter.IntentRequest{
		Message: "confirm",
		Turns: []model.ChatTurn{
			{Role: "user", Content: "2 burgers"},
			{Role: "system", Content: "Added 2 burgers."},
			{Role: "user", Content: "confirm"},
		},
		Menu: []*model.Dish{{ID: "d-burger", Name: "Burger", Provider: "kfc", PriceCents: 900}},
	}
	msgs := buildPromptMessages(req)
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "confirm" {
		t.Fatalf("last message = %+v, want the user's current message", last)
	}
	// The current message already sits in the turn history, so it must not
	// be appended a second time.
	count := 0
	for _, m := range msgs {
		if m.Content == "confirm" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("current message appears %d times, want 1", count)
	}
}
