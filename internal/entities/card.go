package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Category is the target card classification that drives default field injection.
type Category string

const (
	CategoryGear            Category = "gear"
	CategoryTreasure        Category = "treasure"
	CategoryHazard          Category = "hazard"
	CategoryRegion          Category = "region"
	CategoryNPC             Category = "npc"
	CategoryPlayerCharacter Category = "player-character"
	CategoryFlomanjified    Category = "flomanjified"
	CategorySecret          Category = "secret"
	CategoryChaos           Category = "chaos"
)

// KnownCategories lists every category the importer understands, in display order.
var KnownCategories = []Category{
	CategoryGear,
	CategoryTreasure,
	CategoryHazard,
	CategoryRegion,
	CategoryNPC,
	CategoryPlayerCharacter,
	CategoryFlomanjified,
	CategorySecret,
	CategoryChaos,
}

// ParseCategory normalizes a user supplied tag ("Player Character", "GEAR")
// into a Category. Unknown tags are returned normalized with ok=false.
func ParseCategory(s string) (Category, bool) {
	c := Category(NormalizeTag(s))
	for _, known := range KnownCategories {
		if c == known {
			return c, true
		}
	}
	return c, false
}

// NormalizeTag lower-cases a tag and joins words with hyphens.
func NormalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), "-")
}

// Card is one in-flight card record. Only Name and Type are mandatory and
// that is checked by validation, never at construction, so partial cards
// stay inspectable.
//
// Extra carries category-specific fields that have no dedicated struct field.
// They are flattened into the top-level JSON object.
type Card struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        Category       `json:"type"`
	Category    string         `json:"category,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Rules       []string       `json:"rules,omitempty"`
	Flavor      string         `json:"flavor,omitempty"`
	Icons       []string       `json:"icons,omitempty"`
	ImagePrompt string         `json:"imagePrompt,omitempty"`
	Extra       map[string]any `json:"-"`
}

// Card field names as they appear on the wire.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldType        = "type"
	FieldCategory    = "category"
	FieldKeywords    = "keywords"
	FieldRules       = "rules"
	FieldFlavor      = "flavor"
	FieldIcons       = "icons"
	FieldImagePrompt = "imagePrompt"
)

var knownFields = map[string]struct{}{
	FieldID: {}, FieldName: {}, FieldType: {}, FieldCategory: {}, FieldKeywords: {},
	FieldRules: {}, FieldFlavor: {}, FieldIcons: {}, FieldImagePrompt: {},
}

// IsKnownField reports whether name maps onto a dedicated Card field.
func IsKnownField(name string) bool {
	_, ok := knownFields[name]
	return ok
}

// Clone returns a deep copy so that later stages never share slices or maps
// with earlier ones.
func (c Card) Clone() Card {
	out := c
	out.Keywords = cloneStrings(c.Keywords)
	out.Rules = cloneStrings(c.Rules)
	out.Icons = cloneStrings(c.Icons)
	if c.Extra != nil {
		out.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// CloneCards deep-copies a slice of cards.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ToMap flattens the card into a JSON-shaped map, Extra included.
func (c Card) ToMap() map[string]any {
	m := make(map[string]any, len(c.Extra)+9)
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.ID != "" {
		m[FieldID] = c.ID
	}
	m[FieldName] = c.Name
	m[FieldType] = string(c.Type)
	if c.Category != "" {
		m[FieldCategory] = c.Category
	}
	if len(c.Keywords) > 0 {
		m[FieldKeywords] = c.Keywords
	}
	if len(c.Rules) > 0 {
		m[FieldRules] = c.Rules
	}
	if c.Flavor != "" {
		m[FieldFlavor] = c.Flavor
	}
	if len(c.Icons) > 0 {
		m[FieldIcons] = c.Icons
	}
	if c.ImagePrompt != "" {
		m[FieldImagePrompt] = c.ImagePrompt
	}
	return m
}

// CardFromMap builds a card from a decoded JSON object. List fields accept
// either an array or a bare string; unknown keys land in Extra.
func CardFromMap(m map[string]any) Card {
	var c Card
	for k, v := range m {
		switch k {
		case FieldID:
			c.ID = ScalarString(v)
		case FieldName:
			c.Name = ScalarString(v)
		case FieldType:
			c.Type = Category(ScalarString(v))
		case FieldCategory:
			c.Category = ScalarString(v)
		case FieldKeywords:
			c.Keywords = CoerceKeywords(v)
		case FieldRules:
			c.Rules = CoerceStrings(v)
		case FieldFlavor:
			c.Flavor = ScalarString(v)
		case FieldIcons:
			c.Icons = CoerceStrings(v)
		case FieldImagePrompt:
			c.ImagePrompt = ScalarString(v)
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			c.Extra[k] = v
		}
	}
	return c
}

// MarshalJSON flattens Extra next to the dedicated fields.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToMap())
}

// UnmarshalJSON accepts the flattened shape produced by MarshalJSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = CardFromMap(m)
	return nil
}

// ExtraKeys returns the Extra keys in sorted order.
func (c Card) ExtraKeys() []string {
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ScalarString renders a decoded JSON scalar as a trimmed string.
// Objects and arrays yield "".
func ScalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool, int, int64:
		return fmt.Sprintf("%v", t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// CoerceStrings turns an array or a bare string into a string slice,
// dropping empty entries. Anything else yields nil.
func CoerceStrings(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case []string:
		return compact(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := ScalarString(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// CoerceKeywords is CoerceStrings with comma-splitting of bare strings.
func CoerceKeywords(v any) []string {
	if s, ok := v.(string); ok {
		return SplitList(s)
	}
	return CoerceStrings(v)
}

// SplitList splits a comma separated list, trimming entries and dropping empties.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
