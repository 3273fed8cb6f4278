package parsers

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

// Section is one candidate card block cut out of a Markdown document.
type Section struct {
	Title string
	Body  string
}

// SectionExtractor splits a document into sections. A nil or empty result
// means the extractor did not recognize the document.
type SectionExtractor func(doc string) []Section

// markdownExtractors are tried in order until one yields sections.
// Card authors mix Markdown dialects, so each later extractor is looser.
var markdownExtractors = []SectionExtractor{
	NumberedBoldSections,
	HeadingSections,
	ParagraphSections,
}

// SplitSections runs the extractor chain over doc.
func SplitSections(doc string) []Section {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	for _, extract := range markdownExtractors {
		if sections := extract(doc); len(sections) > 0 {
			return sections
		}
	}
	return nil
}

// Format 1: **1. Card Name**
var numberedBoldHeader = regexp.MustCompile(`(?m)^[ \t]*\*\*[ \t]*\d+\.[ \t]*(.+?)[ \t]*:?[ \t]*\*\*[ \t]*$`)

// NumberedBoldSections splits on numbered bold header lines.
func NumberedBoldSections(doc string) []Section {
	matches := numberedBoldHeader.FindAllStringSubmatchIndex(doc, -1)
	if len(matches) == 0 {
		return nil
	}

	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		end := len(doc)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, Section{
			Title: cleanTitle(doc[m[2]:m[3]]),
			Body:  strings.TrimSpace(doc[m[1]:end]),
		})
	}
	return sections
}

// HeadingSections splits on top-level ATX headings found by the goldmark
// parser. A heading with an empty body is a document or group title and is
// dropped.
func HeadingSections(doc string) []Section {
	src := []byte(doc)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))

	type mark struct {
		lineStart int
		bodyStart int
		title     string
	}
	var marks []mark

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		seg := heading.Lines().At(0)
		lineStart := bytes.LastIndexByte(src[:seg.Start], '\n') + 1
		if !bytes.HasPrefix(bytes.TrimLeft(src[lineStart:], " \t"), []byte("#")) {
			// setext heading
			continue
		}
		bodyStart := len(src)
		if nl := bytes.IndexByte(src[seg.Stop:], '\n'); nl >= 0 {
			bodyStart = seg.Stop + nl + 1
		}
		marks = append(marks, mark{
			lineStart: lineStart,
			bodyStart: bodyStart,
			title:     cleanTitle(string(seg.Value(src))),
		})
	}

	var sections []Section
	for i, m := range marks {
		end := len(src)
		if i+1 < len(marks) {
			end = marks[i+1].lineStart
		}
		body := ""
		if m.bodyStart < end {
			body = strings.TrimSpace(string(src[m.bodyStart:end]))
		}
		if body == "" {
			continue
		}
		sections = append(sections, Section{Title: m.title, Body: body})
	}
	return sections
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// ParagraphSections treats every blank-line separated paragraph as a card
// whose first line is the title.
func ParagraphSections(doc string) []Section {
	var sections []Section
	for _, chunk := range blankLines.Split(doc, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		title, body, _ := strings.Cut(chunk, "\n")
		sections = append(sections, Section{
			Title: cleanTitle(title),
			Body:  strings.TrimSpace(body),
		})
	}
	return sections
}

var (
	leadingNumber = regexp.MustCompile(`^\d+[.)][ \t]*`)
	leadingHashes = regexp.MustCompile(`^#+[ \t]*`)
)

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = leadingHashes.ReplaceAllString(s, "")
	s = strings.Trim(s, "*_ \t")
	s = leadingNumber.ReplaceAllString(s, "")
	return strings.TrimSpace(strings.Trim(s, "*_: \t"))
}

// fieldPattern matches "Label: value" lines, bolded or not.
type fieldPattern struct {
	bold  *regexp.Regexp
	plain *regexp.Regexp
}

const bullet = `(?:[-*+][ \t]+)?`

func newFieldPattern(labels string) fieldPattern {
	return fieldPattern{
		// **Label:** value  or  **Label**: value
		bold: regexp.MustCompile(`(?im)^[ \t]*` + bullet + `\*\*[ \t]*(?:` + labels + `)[ \t]*(?::[ \t]*\*\*|\*\*[ \t]*:)[ \t]*(.*?)[ \t]*$`),
		// Label: value
		plain: regexp.MustCompile(`(?im)^[ \t]*` + bullet + `(?:` + labels + `)[ \t]*:[ \t]*(.*?)[ \t]*$`),
	}
}

// find returns the first non-empty value, preferring the bolded form.
func (f fieldPattern) find(body string) (string, bool) {
	for _, re := range []*regexp.Regexp{f.bold, f.plain} {
		if m := re.FindStringSubmatch(body); m != nil {
			if v := strings.TrimSpace(strings.Trim(m[1], "*_ \t")); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

var (
	nameField        = newFieldPattern(`name|title`)
	typeField        = newFieldPattern(`type|card[ \t]*type`)
	categoryField    = newFieldPattern(`category|sub[ \t-]*type|subcategory`)
	iconsField       = newFieldPattern(`icons?|icon\(s\)`)
	keywordsField    = newFieldPattern(`keywords?`)
	rulesField       = newFieldPattern(`rules?|rules[ \t]*text|effect`)
	flavorField      = newFieldPattern(`flavou?r(?:[ \t]*text)?`)
	imagePromptField = newFieldPattern(`image[ \t]*prompt|art[ \t]*prompt`)

	bracketToken = regexp.MustCompile(`\[([^\[\]]+)\]`)
)

func (p *Parser) parseMarkdown(doc string, target entities.Category) ([]entities.Card, error) {
	sections := SplitSections(doc)
	if len(sections) == 0 {
		return nil, &ParseError{Format: FormatMarkdown, Msg: "No card sections found in Markdown file."}
	}

	cards := make([]entities.Card, 0, len(sections))
	for _, s := range sections {
		cards = append(cards, sectionToCard(s, target))
	}
	return cards, nil
}

func sectionToCard(s Section, target entities.Category) entities.Card {
	card := entities.Card{Name: s.Title, Type: target}

	if v, ok := nameField.find(s.Body); ok {
		card.Name = v
	}
	if v, ok := typeField.find(s.Body); ok {
		card.Type = entities.Category(entities.NormalizeTag(v))
	}
	if v, ok := categoryField.find(s.Body); ok {
		card.Category = v
	}
	if v, ok := iconsField.find(s.Body); ok {
		card.Icons = parseIcons(v)
	}
	if v, ok := keywordsField.find(s.Body); ok {
		card.Keywords = entities.SplitList(v)
	}
	if v, ok := rulesField.find(s.Body); ok {
		card.Rules = []string{v}
	}
	if v, ok := flavorField.find(s.Body); ok {
		card.Flavor = strings.Trim(v, `"“”`)
	}
	if v, ok := imagePromptField.find(s.Body); ok {
		card.ImagePrompt = v
	}
	return card
}

// parseIcons reads "[Swamp] [Heat]" style tokens, falling back to a comma list.
func parseIcons(v string) []string {
	matches := bracketToken.FindAllStringSubmatch(v, -1)
	if len(matches) == 0 {
		return entities.SplitList(v)
	}
	icons := make([]string, 0, len(matches))
	for _, m := range matches {
		if icon := strings.TrimSpace(m[1]); icon != "" {
			icons = append(icons, icon)
		}
	}
	return icons
}
