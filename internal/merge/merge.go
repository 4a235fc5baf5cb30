// Package merge folds suggestions that propose the same fix for the same line.
package merge

import (
	"strings"

	"github.com/juparave/legacyfix/internal/domain"
)

const (
	typeSeparator    = ", "
	messageSeparator = "; "
)

type key struct {
	line       int
	suggestion string
}

// Merge groups suggestions by (line, suggestion). Groups are emitted in order
// of first appearance; types are joined with ", " and messages with "; ".
func Merge(suggestions []domain.Suggestion) []domain.MergedSuggestion {
	groups := make(map[key]int, len(suggestions))
	types := make([][]string, 0, len(suggestions))
	messages := make([][]string, 0, len(suggestions))
	merged := make([]domain.MergedSuggestion, 0, len(suggestions))

	for _, s := range suggestions {
		k := key{line: s.Line, suggestion: s.Suggestion}
		idx, seen := groups[k]
		if !seen {
			idx = len(merged)
			groups[k] = idx
			merged = append(merged, domain.MergedSuggestion{Line: s.Line, Suggestion: s.Suggestion})
			types = append(types, nil)
			messages = append(messages, nil)
		}
		types[idx] = append(types[idx], s.Type)
		messages[idx] = append(messages[idx], s.Message)
	}

	for i := range merged {
		merged[i].Type = strings.Join(types[i], typeSeparator)
		merged[i].Message = strings.Join(messages[i], messageSeparator)
	}
	return merged
}

// Remerge runs already merged entries through Merge again
func Remerge(merged []domain.MergedSuggestion) []domain.MergedSuggestion {
	suggestions := make([]domain.Suggestion, len(merged))
	for i, m := range merged {
		suggestions[i] = m.AsSuggestion()
	}
	return Merge(suggestions)
}
