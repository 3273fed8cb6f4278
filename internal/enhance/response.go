package enhance

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

var (
	ErrNoJSON        = errors.New("no JSON found in AI response")
	ErrEmptyResponse = errors.New("AI response has neither cards nor suggestions")
)

var (
	fencedJSONBlock = regexp.MustCompile("(?is)```json[ \t]*\n?(.*?)```")
	fencedBlock     = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\n?(.*?)```")
)

// ExtractJSON pulls the JSON payload out of a model reply. It prefers a
// ```json fence, then any fence, then the first balanced object in the
// prose that is valid JSON. A bare array in prose only counts when it
// holds at least one object, so "[1]" style references are skipped.
func ExtractJSON(raw string) (string, bool) {
	for _, re := range []*regexp.Regexp{fencedJSONBlock, fencedBlock} {
		if m := re.FindStringSubmatch(raw); m != nil {
			if body := strings.TrimSpace(m[1]); body != "" && json.Valid([]byte(body)) {
				return body, true
			}
		}
	}

	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' && raw[i] != '[' {
			continue
		}
		end, ok := balancedEnd(raw, i)
		if !ok {
			continue
		}
		if candidate := raw[i : end+1]; acceptProse(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func acceptProse(candidate string) bool {
	if candidate[0] == '{' {
		return json.Valid([]byte(candidate))
	}
	var items []any
	if err := json.Unmarshal([]byte(candidate), &items); err != nil {
		return false
	}
	for _, item := range items {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

// balancedEnd returns the index of the bracket closing the one at start.
// Brackets inside JSON strings are ignored.
func balancedEnd(s string, start int) (int, bool) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// reply is a decoded model response. Cards are positional; a nil entry
// means the model returned something unusable for that position.
type reply struct {
	Cards       []map[string]any
	Suggestions []entities.Suggestion
}

func parseReply(raw string) (*reply, error) {
	payload, ok := ExtractJSON(raw)
	if !ok {
		return nil, ErrNoJSON
	}

	var root any
	if err := json.Unmarshal([]byte(payload), &root); err != nil {
		return nil, fmt.Errorf("decode AI response: %w", err)
	}

	switch v := root.(type) {
	case []any:
		r := &reply{Cards: cardObjects(v)}
		if r.empty() {
			return nil, ErrEmptyResponse
		}
		return r, nil
	case map[string]any:
		cards, hasCards := v["cards"]
		if !hasCards {
			cards, hasCards = v["enhancedCards"]
		}
		suggestions, hasSuggestions := v["suggestions"]
		if !hasCards && !hasSuggestions {
			return nil, ErrEmptyResponse
		}
		r := &reply{}
		if list, ok := cards.([]any); ok {
			r.Cards = cardObjects(list)
		}
		if list, ok := suggestions.([]any); ok {
			r.Suggestions = toSuggestions(list)
		}
		if r.empty() {
			return nil, ErrEmptyResponse
		}
		return r, nil
	default:
		return nil, ErrEmptyResponse
	}
}

// empty reports a reply with no usable card object and no suggestions.
func (r *reply) empty() bool {
	if len(r.Suggestions) > 0 {
		return false
	}
	for _, c := range r.Cards {
		if c != nil {
			return false
		}
	}
	return true
}

func cardObjects(items []any) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			out[i] = m
		}
	}
	return out
}

const (
	defaultSuggestionCard   = "Unknown Card"
	defaultSuggestionField  = "general"
	defaultSuggestionText   = "No suggestion provided"
	defaultSuggestionReason = "No reason provided"
)

// toSuggestions maps the model's suggestions onto the Suggestion shape,
// filling gaps with placeholders instead of dropping the entry.
func toSuggestions(items []any) []entities.Suggestion {
	out := make([]entities.Suggestion, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, entities.Suggestion{
				CardName:   firstString(v, defaultSuggestionCard, "cardName", "card", "name"),
				Field:      firstString(v, defaultSuggestionField, "field"),
				Suggestion: firstString(v, defaultSuggestionText, "suggestion", "value", "text"),
				Reason:     firstString(v, defaultSuggestionReason, "reason", "rationale"),
			})
		case string:
			if text := strings.TrimSpace(v); text != "" {
				out = append(out, entities.Suggestion{
					CardName:   defaultSuggestionCard,
					Field:      defaultSuggestionField,
					Suggestion: text,
					Reason:     defaultSuggestionReason,
				})
			}
		}
	}
	return out
}

func firstString(m map[string]any, fallback string, keys ...string) string {
	for _, k := range keys {
		if s := entities.ScalarString(m[k]); s != "" {
			return s
		}
	}
	return fallback
}
