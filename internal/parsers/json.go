package parsers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

// decodeRecords accepts a single object, an array of objects or an object
// wrapping them in a "cards" array.
func decodeRecords(raw []byte, kind FormatKind) ([]map[string]any, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, &ParseError{Format: kind, Msg: "Invalid JSON file", Err: err}
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		if cards, ok := v["cards"].([]any); ok {
			items = cards
		} else {
			items = []any{v}
		}
	default:
		return nil, &ParseError{
			Format: kind,
			Msg:    "Invalid JSON file",
			Err:    errors.New("expected an object or an array of objects"),
		}
	}

	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &ParseError{
				Format: kind,
				Msg:    "Invalid JSON file",
				Err:    fmt.Errorf("record %d is not an object", i+1),
			}
		}
		records = append(records, m)
	}
	return records, nil
}

func (p *Parser) parseStandardJSON(raw []byte) ([]entities.Card, error) {
	records, err := decodeRecords(raw, FormatJSONStandard)
	if err != nil {
		return nil, err
	}

	cards := make([]entities.Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, normalizeType(entities.CardFromMap(r)))
	}
	return cards, nil
}

// transformAliases maps the alternate schema onto card fields, in priority
// order. A canonical key present on the record always wins over its aliases.
var transformAliases = []struct{ from, to string }{
	{"title", entities.FieldName},
	{"Title", entities.FieldName},
	{"NAME", entities.FieldName},
	{"TYPE", entities.FieldType},
	{"Type", entities.FieldType},
	{"cardType", entities.FieldType},
	{"card_type", entities.FieldType},
	{"subType", entities.FieldCategory},
	{"subtype", entities.FieldCategory},
	{"sub_type", entities.FieldCategory},
	{"Category", entities.FieldCategory},
	{"text", entities.FieldRules},
	{"rulesText", entities.FieldRules},
	{"rules_text", entities.FieldRules},
	{"effect", entities.FieldRules},
	{"description", entities.FieldRules},
	{"keyword", entities.FieldKeywords},
	{"Keywords", entities.FieldKeywords},
	{"tags", entities.FieldKeywords},
	{"flavorText", entities.FieldFlavor},
	{"flavor_text", entities.FieldFlavor},
	{"icon", entities.FieldIcons},
	{"artPrompt", entities.FieldImagePrompt},
	{"art_prompt", entities.FieldImagePrompt},
	{"image_prompt", entities.FieldImagePrompt},
}

func isAlias(key string) bool {
	for _, a := range transformAliases {
		if a.from == key {
			return true
		}
	}
	return false
}

func (p *Parser) parseTransformJSON(raw []byte) ([]entities.Card, error) {
	records, err := decodeRecords(raw, FormatJSONTransform)
	if err != nil {
		return nil, err
	}

	cards := make([]entities.Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, normalizeType(entities.CardFromMap(remapRecord(r))))
	}
	return cards, nil
}

func normalizeType(card entities.Card) entities.Card {
	if card.Type != "" {
		card.Type = entities.Category(entities.NormalizeTag(string(card.Type)))
	}
	return card
}

func remapRecord(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if !isAlias(k) {
			out[k] = v
		}
	}
	for _, a := range transformAliases {
		v, ok := r[a.from]
		if !ok {
			continue
		}
		if _, taken := out[a.to]; taken {
			continue
		}
		out[a.to] = v
	}
	return out
}
