package parsers

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// FormatKind classifies an uploaded file.
type FormatKind string

const (
	FormatMarkdown      FormatKind = "markdown"
	FormatJSONStandard  FormatKind = "json-standard"
	FormatJSONTransform FormatKind = "json-transform"
	FormatUnknown       FormatKind = "unknown"
)

// DetectedFormat is the outcome of format detection for one file.
type DetectedFormat struct {
	Kind      FormatKind `json:"kind"`
	Extension string     `json:"extension,omitempty"`
}

// IsJSON reports whether the format is one of the JSON dialects.
func (f DetectedFormat) IsJSON() bool {
	return f.Kind == FormatJSONStandard || f.Kind == FormatJSONTransform
}

var acceptedExtensions = map[string]struct{}{
	".json":     {},
	".md":       {},
	".markdown": {},
}

// AcceptedExtension reports whether the file name carries an extension the
// importer accepts at all.
func AcceptedExtension(name string) bool {
	_, ok := acceptedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detect classifies a file by its extension and a best-effort sniff of its
// content. It is a pure function: the same input always yields the same format.
func Detect(name string, content []byte) DetectedFormat {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".md", ".markdown":
		return DetectedFormat{Kind: FormatMarkdown, Extension: ext}
	case ".json":
		return DetectedFormat{Kind: sniffJSON(content), Extension: ext}
	case "":
		// no extension to go on, look at the content
	default:
		return DetectedFormat{Kind: FormatUnknown, Extension: ext}
	}

	trimmed := bytes.TrimLeftFunc(bytes.TrimPrefix(content, utf8BOM), unicode.IsSpace)
	if len(trimmed) == 0 {
		return DetectedFormat{Kind: FormatUnknown}
	}
	switch trimmed[0] {
	case '{', '[':
		return DetectedFormat{Kind: sniffJSON(content)}
	case '#', '*':
		return DetectedFormat{Kind: FormatMarkdown}
	}
	return DetectedFormat{Kind: FormatUnknown}
}

// sniffJSON decides between the standard schema and the alternate
// (title / upper-case type) schema by looking at the first record.
// Invalid JSON is reported as standard so that parsing surfaces the error.
func sniffJSON(content []byte) FormatKind {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !gjson.ValidBytes(content) {
		return FormatJSONStandard
	}

	record := firstRecord(gjson.ParseBytes(content))
	if !record.IsObject() {
		return FormatJSONStandard
	}

	if record.Get("TYPE").Exists() {
		return FormatJSONTransform
	}
	if record.Get("title").Exists() && !record.Get("name").Exists() {
		return FormatJSONTransform
	}
	if t := record.Get("type"); t.Type == gjson.String && isUpperTag(t.String()) {
		return FormatJSONTransform
	}
	return FormatJSONStandard
}

func firstRecord(root gjson.Result) gjson.Result {
	if root.IsArray() {
		return root.Get("0")
	}
	if root.IsObject() {
		if cards := root.Get("cards"); cards.IsArray() {
			return cards.Get("0")
		}
	}
	return root
}

// isUpperTag reports whether s is an all-caps tag such as "GEAR" or "PLAYER_CHARACTER".
func isUpperTag(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
