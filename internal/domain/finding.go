package domain

import "strings"

// SyntaxErrorType is the pattern type of the synthetic finding produced
// when a file cannot be parsed.
const SyntaxErrorType = "SyntaxError"

// Finding is a single deprecated-pattern occurrence detected in a file
type Finding struct {
	Type    string `json:"type"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Suggestion pairs a Finding with the replacement code proposed for it
type Suggestion struct {
	Finding
	Suggestion string `json:"suggestion"`
}

// MergedSuggestion folds every Suggestion that shares a line and a proposed fix
type MergedSuggestion struct {
	Line       int    `json:"line"`
	Suggestion string `json:"suggestion"`
	Type       string `json:"type"`    // ", " joined pattern types
	Message    string `json:"message"` // "; " joined messages
}

// PrimaryType returns the first pattern type folded into the suggestion
func (m MergedSuggestion) PrimaryType() string {
	primary, _, _ := strings.Cut(m.Type, ",")
	return strings.TrimSpace(primary)
}

// AsSuggestion turns a merged entry back into a plain Suggestion so that
// it can be fed through the merger again.
func (m MergedSuggestion) AsSuggestion() Suggestion {
	return Suggestion{
		Finding:    Finding{Type: m.Type, Line: m.Line, Message: m.Message},
		Suggestion: m.Suggestion,
	}
}

// Documentation points at reference material for a pattern type
type Documentation struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// UnavailableDocumentation is used whenever a lookup fails or times out
var UnavailableDocumentation = Documentation{
	URL:         "#",
	Description: "Documentation unavailable",
}

// EnrichedSuggestion is a MergedSuggestion with its documentation attached
type EnrichedSuggestion struct {
	MergedSuggestion
	Documentation Documentation `json:"documentation"`
}
