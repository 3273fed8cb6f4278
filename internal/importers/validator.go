package importers

import (
	"fmt"
	"strings"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

// Validate checks the mandatory fields of every card and returns one message
// per missing field, in card order. Card numbers are 1-based.
func Validate(cards []entities.Card) []string {
	var errs []string
	for i, c := range cards {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Sprintf("Card #%d: Missing name", i+1))
		}
		if strings.TrimSpace(string(c.Type)) == "" {
			errs = append(errs, fmt.Sprintf("Card #%d: Missing type", i+1))
		}
	}
	return errs
}
