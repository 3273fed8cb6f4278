package enhance

import "github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"

// Merge overlays the model's edits onto copies of the original cards by
// position. Only name, keywords, rules and flavor may change, and only to a
// non-empty value; every other field is kept as it was.
func Merge(original []entities.Card, enhanced []map[string]any) []entities.Card {
	out := entities.CloneCards(original)
	for i := range out {
		if i >= len(enhanced) || enhanced[i] == nil {
			continue
		}
		mergeCard(&out[i], enhanced[i])
	}
	return out
}

func mergeCard(card *entities.Card, ai map[string]any) {
	if v := entities.ScalarString(ai[entities.FieldName]); v != "" {
		card.Name = v
	}
	if v := entities.CoerceKeywords(ai[entities.FieldKeywords]); len(v) > 0 {
		card.Keywords = v
	}
	if v := entities.CoerceStrings(ai[entities.FieldRules]); len(v) > 0 {
		card.Rules = v
	}
	if v := entities.ScalarString(ai[entities.FieldFlavor]); v != "" {
		card.Flavor = v
	}
}
