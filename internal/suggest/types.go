// Package suggest requests AI replacement code for detected findings and
// hosts the generator behind the suggestion service.
package suggest

import (
	"slices"

	"github.com/juparave/legacyfix/internal/domain"
)

// Placeholder suggestions
const (
	NoSuggestion       = "No suggestion provided by AI."
	MissingTokenPrefix = "Failed to generate suggestion: "
)

// MissingTokenSuggestion is used for every finding when no credential is available
const MissingTokenSuggestion = MissingTokenPrefix + "Authentication token missing."

// DefaultMaxCodeChars bounds the source sent to the suggestion service
const DefaultMaxCodeChars = 10000

// SupportedLanguages is the fixed set accepted by the suggestion service
var SupportedLanguages = []domain.Language{domain.LanguageJavaScript, domain.LanguagePython}

// IsSupportedLanguage reports whether the suggestion service accepts lang
func IsSupportedLanguage(lang string) bool {
	return slices.Contains(SupportedLanguages, domain.Language(lang))
}

// UpdateRequest is the suggestion service request body
type UpdateRequest struct {
	LegacyCode string           `json:"legacyCode"`
	Language   string           `json:"language"`
	Patterns   []domain.Finding `json:"patterns"`
}

// UpdatedSuggestion is one replacement, positionally aligned with the request patterns
type UpdatedSuggestion struct {
	Type        string `json:"type"`
	UpdatedCode string `json:"updatedCode"`
}

// UpdateResponse is the suggestion service response body
type UpdateResponse struct {
	UpdatedSuggestions []UpdatedSuggestion `json:"updatedSuggestions"`
}

// RequestError is a request the generator refuses to process
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}
