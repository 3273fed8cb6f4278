package enhance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

var ErrSuggestionNotFound = errors.New("suggestion not found")

// Suggestions holds the outstanding suggestions of one import session in
// the order the model produced them. It is not safe for concurrent use.
type Suggestions struct {
	items []entities.Suggestion
}

func NewSuggestions(items []entities.Suggestion) *Suggestions {
	s := &Suggestions{}
	s.Reset(items)
	return s
}

// Reset replaces the outstanding suggestions.
func (s *Suggestions) Reset(items []entities.Suggestion) {
	s.items = append([]entities.Suggestion(nil), items...)
}

func (s *Suggestions) Len() int {
	return len(s.items)
}

// Pending returns a copy of the outstanding suggestions.
func (s *Suggestions) Pending() []entities.Suggestion {
	return append([]entities.Suggestion{}, s.items...)
}

// Apply writes suggestion index into every card named after it and consumes
// the suggestion. The input slice is left untouched.
func (s *Suggestions) Apply(index int, cards []entities.Card) ([]entities.Card, entities.Suggestion, error) {
	sug, err := s.take(index)
	if err != nil {
		return nil, entities.Suggestion{}, err
	}
	return ApplySuggestion(cards, sug), sug, nil
}

// Ignore drops suggestion index without touching any card.
func (s *Suggestions) Ignore(index int) (entities.Suggestion, error) {
	return s.take(index)
}

func (s *Suggestions) take(index int) (entities.Suggestion, error) {
	if index < 0 || index >= len(s.items) {
		return entities.Suggestion{}, fmt.Errorf("%w: index %d of %d", ErrSuggestionNotFound, index, len(s.items))
	}
	sug := s.items[index]
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	return sug, nil
}

// ApplySuggestion returns copies of cards where every card named
// sug.CardName has sug.Field set to sug.Suggestion.
func ApplySuggestion(cards []entities.Card, sug entities.Suggestion) []entities.Card {
	out := entities.CloneCards(cards)
	for i := range out {
		if out[i].Name == sug.CardName {
			SetField(&out[i], sug.Field, sug.Suggestion)
		}
	}
	return out
}

// SetField overwrites one field of a card. Known fields are matched without
// regard to case; anything else is stored in Extra under the given name.
func SetField(card *entities.Card, field, value string) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "id":
		card.ID = value
	case "name", "title":
		card.Name = value
	case "type":
		card.Type = entities.Category(entities.NormalizeTag(value))
	case "category", "subtype":
		card.Category = value
	case "keywords", "keyword":
		card.Keywords = entities.SplitList(value)
	case "rules", "rule":
		card.Rules = entities.CoerceStrings(value)
	case "flavor", "flavortext", "flavor_text":
		card.Flavor = value
	case "icons", "icon":
		card.Icons = entities.SplitList(value)
	case "imageprompt", "image_prompt":
		card.ImagePrompt = value
	default:
		if card.Extra == nil {
			card.Extra = make(map[string]any)
		}
		card.Extra[field] = value
	}
}
