package entities

import "time"

// Suggestion is one proposed field-level edit produced by AI enhancement.
// Suggestions are advisory and live only as long as their import session.
type Suggestion struct {
	CardName   string `json:"cardName"`
	Field      string `json:"field"`
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason"`
}

// ImportError is one entry of an import report.
type ImportError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportResult is the structured report of one import attempt.
// Updated is always zero: imports are insert-only.
type ImportResult struct {
	Imported int           `json:"imported"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors"`
}

// HasErrors reports whether the import was rejected.
func (r ImportResult) HasErrors() bool {
	return len(r.Errors) > 0
}

type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is an advisory, toast-style message for the user.
type Notification struct {
	Level       NotificationLevel `json:"level"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	At          time.Time         `json:"at"`
}
