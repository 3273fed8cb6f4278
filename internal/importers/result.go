package importers

import "github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"

const (
	validationErrorName = "Validation error"
	importErrorName     = "Import error"
)

// BuildResult produces the import report. Validation is all-or-nothing: any
// error fails every card.
func BuildResult(cards []entities.Card, validationErrors []string) entities.ImportResult {
	if len(validationErrors) > 0 {
		errs := make([]entities.ImportError, len(validationErrors))
		for i, msg := range validationErrors {
			errs[i] = entities.ImportError{Name: validationErrorName, Error: msg}
		}
		return entities.ImportResult{
			Imported: 0,
			Failed:   len(cards),
			Errors:   errs,
		}
	}

	return entities.ImportResult{
		Imported: len(cards),
		Errors:   []entities.ImportError{},
	}
}

// FailureResult reports a file that never produced cards.
func FailureResult(msg string) entities.ImportResult {
	return entities.ImportResult{
		Errors: []entities.ImportError{{Name: importErrorName, Error: msg}},
	}
}
