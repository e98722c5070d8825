package adapter

import (
	"context"

	"catering-platform/internal/domain/model"
)

type IntentAction string

const (
	IntentUpdateDraft IntentAction = "update_draft"
	IntentInfo        IntentAction = "info"
	IntentConfirm     IntentAction = "confirm"
	IntentNone        IntentAction = "none"
)

// IntentRequest carries everything the extractor may ground its answer on:
// the new user message, the conversation so far, the current draft and the
// available menu.
type IntentRequest struct {
	Message string
	Turns   []model.ChatTurn
	Draft   *model.DraftOrder
	Menu    []*model.Dish
}

// IntentResult is the extractor's verdict on one user turn. Draft is the
// full updated draft when Action is update_draft; Reply is the text to show
// the user.
type IntentResult struct {
	Action IntentAction
	Draft  *model.DraftOrder
	Reply  string
}

// IntentExtractor turns free-form conversation input into draft-order
// changes. Implementations: an LLM-backed extractor and a deterministic
// rule-based one for dev mode and tests.
type IntentExtractor interface {
	Extract(ctx context.Context, req IntentRequest) (IntentResult, error)
}
