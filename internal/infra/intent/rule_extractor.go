package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.IntentExtractor = (*RuleExtractor)(nil)

// RuleExtractor is the deterministic extractor used in dev mode and tests.
// It understands a narrow command vocabulary:
//
//	"2 burgers" / "2x burger"    add or set a dish quantity
//	"remove burger"              drop a dish
//	"deliver with uklon"         choose a courier
//	"asap" / "expedite"          expedited flag
//	"menu"                       list available dishes
//	"confirm" / "yes" / "order"  confirm
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor { return &RuleExtractor{} }

var qtyPattern = regexp.MustCompile(`(\d+)\s*x?\s+([a-zA-Z][a-zA-Z ]*)`)

var confirmWords = map[string]bool{
	"confirm": true, "yes": true, "ok": true, "order": true, "place the order": true, "that's all": true,
}

func (r *RuleExtractor) Extract(_ context.Context, req adapter.IntentRequest) (adapter.IntentResult, error) {
	msg := strings.ToLower(strings.TrimSpace(req.Message))

	if confirmWords[strings.Trim(msg, "!. ")] {
		return adapter.IntentResult{Action: adapter.IntentConfirm}, nil
	}
	if strings.Contains(msg, "menu") || strings.Contains(msg, "what do you have") {
		return adapter.IntentResult{Action: adapter.IntentInfo, Reply: menuReply(req.Menu)}, nil
	}

	draft := cloneDraft(req.Draft)
	changed := false

	if strings.Contains(msg, "remove ") {
		rest := strings.TrimSpace(msg[strings.Index(msg, "remove ")+len("remove "):])
		if dish := matchDish(req.Menu, rest); dish != nil {
			draft.SetItem(dish.ID, 0)
			changed = true
		}
	}
	for _, m := range qtyPattern.FindAllStringSubmatch(msg, -1) {
		qty, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if dish := matchDish(req.Menu, strings.TrimSpace(m[2])); dish != nil {
			draft.SetItem(dish.ID, qty)
			changed = true
		}
	}
	for _, courier := range []string{"uklon", "uber"} {
		if strings.Contains(msg, courier) {
			draft.Provider = courier
			changed = true
		}
	}
	if strings.Contains(msg, "asap") || strings.Contains(msg, "expedite") || strings.Contains(msg, "urgent") {
		draft.Expedited = true
		changed = true
	}

	if changed {
		return adapter.IntentResult{Action: adapter.IntentUpdateDraft, Draft: draft}, nil
	}
	return adapter.IntentResult{Action: adapter.IntentNone}, nil
}

func cloneDraft(d *model.DraftOrder) *model.DraftOrder {
	cp := &model.DraftOrder{}
	if d == nil {
		return cp
	}
	cp.Items = append([]model.LineItem(nil), d.Items...)
	cp.Provider = d.Provider
	cp.ETA = d.ETA
	cp.Expedited = d.Expedited
	return cp
}

// matchDish finds the menu dish whose name matches the phrase, tolerating a
// trailing plural "s" and trailing filler words ("2 burgers please").
func matchDish(menu []*model.Dish, phrase string) *model.Dish {
	words := strings.Fields(phrase)
	for end := len(words); end > 0; end-- {
		candidate := strings.TrimSuffix(strings.Join(words[:end], " "), "s")
		if candidate == "" {
			continue
		}
		for _, d := range menu {
			name := strings.ToLower(d.Name)
			if name == candidate || strings.TrimSuffix(name, "s") == candidate {
				return d
			}
		}
	}
	return nil
}

func menuReply(menu []*model.Dish) string {
	if len(menu) == 0 {
		return "The menu is empty right now."
	}
	var b strings.Builder
	b.WriteString("Available dishes: ")
	for i, d := range menu {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%d.%02d)", d.Name, d.PriceCents/100, d.PriceCents%100)
	}
	return b.String()
}
