package parsers

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

//go:embed categories.yaml
var builtinCategoriesYAML []byte

// CategoryDefaults holds the defaults configured for one category.
type CategoryDefaults struct {
	Description     string   `yaml:"description"`
	DefaultCategory string   `yaml:"default_category"`
	PromptFields    []string `yaml:"prompt_fields"`
}

type categoriesFile struct {
	Categories map[string]CategoryDefaults `yaml:"categories"`
}

// Defaults maps a category tag to its defaults.
type Defaults struct {
	byCategory map[entities.Category]CategoryDefaults
}

// BuiltinDefaults returns the defaults shipped with the binary.
func BuiltinDefaults() *Defaults {
	d, err := ParseDefaults(builtinCategoriesYAML)
	if err != nil {
		panic(fmt.Sprintf("parsers: embedded categories.yaml is invalid: %v", err))
	}
	return d
}

// ParseDefaults decodes a categories YAML document.
func ParseDefaults(data []byte) (*Defaults, error) {
	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	d := &Defaults{byCategory: make(map[entities.Category]CategoryDefaults, len(f.Categories))}
	for tag, def := range f.Categories {
		d.byCategory[entities.Category(entities.NormalizeTag(tag))] = def
	}
	return d, nil
}

// LoadDefaults returns the builtin defaults overlaid with the categories in
// path. An empty path yields the builtin defaults.
func LoadDefaults(path string) (*Defaults, error) {
	d := BuiltinDefaults()
	if path == "" {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file %s: %w", path, err)
	}
	override, err := ParseDefaults(data)
	if err != nil {
		return nil, err
	}
	for c, def := range override.byCategory {
		d.byCategory[c] = def
	}
	return d, nil
}

// For returns the defaults of a category.
func (d *Defaults) For(c entities.Category) (CategoryDefaults, bool) {
	if d == nil {
		return CategoryDefaults{}, false
	}
	def, ok := d.byCategory[entities.Category(entities.NormalizeTag(string(c)))]
	return def, ok
}

// Apply fills in the sub-category of a card whose type has a configured
// default and which carries none yet.
func (d *Defaults) Apply(card *entities.Card) {
	if card.Category != "" {
		return
	}
	if def, ok := d.For(card.Type); ok && def.DefaultCategory != "" {
		card.Category = def.DefaultCategory
	}
}
