package parsers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

// ErrUnsupportedFormat is returned for files whose format cannot be parsed.
var ErrUnsupportedFormat = errors.New("Unsupported file format.")

// ParseError describes a file that was recognized but could not be parsed.
type ParseError struct {
	Format FormatKind
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns raw file content into draft cards.
type Parser struct {
	defaults *Defaults
	newID    func(name string) string
}

// NewParser creates a parser using the given category defaults.
// A nil defaults value falls back to the builtin ones.
func NewParser(defaults *Defaults) *Parser {
	if defaults == nil {
		defaults = BuiltinDefaults()
	}
	return &Parser{
		defaults: defaults,
		newID:    NewCardID,
	}
}

// Defaults exposes the category defaults used by the parser.
func (p *Parser) Defaults() *Defaults {
	return p.defaults
}

// Parse converts raw content of the given format into draft cards. Cards are
// not validated here; partial cards are returned as-is for diagnostics.
func (p *Parser) Parse(raw []byte, target entities.Category, format DetectedFormat) ([]entities.Card, error) {
	var (
		cards []entities.Card
		err   error
	)

	switch format.Kind {
	case FormatMarkdown:
		cards, err = p.parseMarkdown(string(raw), target)
	case FormatJSONStandard:
		cards, err = p.parseStandardJSON(raw)
	case FormatJSONTransform:
		cards, err = p.parseTransformJSON(raw)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	for i := range cards {
		p.defaults.Apply(&cards[i])
		if cards[i].ID == "" {
			cards[i].ID = p.newID(cards[i].Name)
		}
	}
	return cards, nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// NewCardID derives a unique card id from the card name.
func NewCardID(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	slug := Slugify(name)
	if slug == "" {
		slug = "card"
	}
	return slug + "-" + suffix
}
