package enhance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/parsers"
)

const systemPromptTemplate = `You are a senior game designer reviewing %s cards for Flomanji, a survival card game set in a weird, sweltering Florida.

Review every card for:
- terminology consistency with the rest of the deck
- rule clarity: rules must be unambiguous and actionable
- keyword completeness: every mechanic used in the rules has a keyword
- balance against other %s cards
- theme: names and flavor text fit the swampy, absurd tone

%s
Reply with JSON only, in this shape:
{"cards":[{"id":"...","name":"...","keywords":["..."],"rules":["..."],"flavor":"..."}],
 "suggestions":[{"cardName":"...","field":"...","suggestion":"...","reason":"..."}]}

Return the cards in the order you received them. Only name, keywords, rules and flavor may be changed; leave a field out to keep it as is. Put anything you are unsure about in suggestions instead of editing the card.`

func systemPrompt(category entities.Category, def parsers.CategoryDefaults) string {
	description := ""
	if def.Description != "" {
		description = "About this category: " + def.Description + "\n"
	}
	return fmt.Sprintf(systemPromptTemplate, category, category, description)
}

// pruneCard builds the view of a card sent to the model: the reviewable
// text fields plus the category's scalar fields, never the whole record.
func pruneCard(c entities.Card, promptFields []string) map[string]any {
	view := map[string]any{
		entities.FieldName: c.Name,
		entities.FieldType: string(c.Type),
	}
	if c.ID != "" {
		view[entities.FieldID] = c.ID
	}
	if c.Category != "" {
		view[entities.FieldCategory] = c.Category
	}
	if len(c.Keywords) > 0 {
		view[entities.FieldKeywords] = c.Keywords
	}
	if len(c.Rules) > 0 {
		view[entities.FieldRules] = c.Rules
	}
	if c.Flavor != "" {
		view[entities.FieldFlavor] = c.Flavor
	}
	for _, f := range promptFields {
		if entities.IsKnownField(f) {
			continue
		}
		// scalars only, nested structures blow up the prompt
		if v, ok := c.Extra[f]; ok && entities.ScalarString(v) != "" {
			view[f] = v
		}
	}
	return view
}

func userPrompt(cards []entities.Card, category entities.Category, promptFields []string) (string, error) {
	pruned := make([]map[string]any, len(cards))
	for i, c := range cards {
		pruned[i] = pruneCard(c, promptFields)
	}
	data, err := json.Marshal(pruned)
	if err != nil {
		return "", fmt.Errorf("encode cards for prompt: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review and enhance these %d %s cards:\n\n", len(cards), category)
	b.Write(data)
	return b.String(), nil
}
