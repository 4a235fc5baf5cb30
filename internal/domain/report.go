package domain

import "time"

// OutcomeKind tags the terminal state of one file's analysis
type OutcomeKind string

const (
	OutcomeError       OutcomeKind = "error"
	OutcomeNoIssues    OutcomeKind = "noIssues"
	OutcomeSuggestions OutcomeKind = "suggestions"
)

// Fixed user-facing outcome messages
const (
	MsgUnsupportedFileType = "Unsupported file type."
	MsgNoIssues            = "No deprecated patterns found."
)

// Outcome holds exactly one of an error message, a no-issues message or
// a list of suggestions. Use the constructors; they never populate more
// than one variant.
type Outcome struct {
	Kind        OutcomeKind          `json:"kind"`
	Message     string               `json:"message,omitempty"`
	Suggestions []EnrichedSuggestion `json:"suggestions,omitempty"`
}

// ErrorOutcome reports a failed file
func ErrorOutcome(message string) Outcome {
	return Outcome{Kind: OutcomeError, Message: message}
}

// NoIssuesOutcome reports a file without deprecated patterns
func NoIssuesOutcome(message string) Outcome {
	return Outcome{Kind: OutcomeNoIssues, Message: message}
}

// SuggestionsOutcome reports the enriched suggestions for a file
func SuggestionsOutcome(suggestions []EnrichedSuggestion) Outcome {
	if suggestions == nil {
		suggestions = []EnrichedSuggestion{}
	}
	return Outcome{Kind: OutcomeSuggestions, Suggestions: suggestions}
}

// FileReport is the analysis result for one submitted file
type FileReport struct {
	File    string  `json:"file"`
	Outcome Outcome `json:"outcome"`
}

// IsError returns true if the file failed
func (r FileReport) IsError() bool {
	return r.Outcome.Kind == OutcomeError
}

// AnalysisRun is the ordered set of file reports for one submission
type AnalysisRun struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Reports   []FileReport  `json:"reports"`
}

// Count returns the number of reports with the given outcome kind
func (r *AnalysisRun) Count(kind OutcomeKind) int {
	count := 0
	for _, rep := range r.Reports {
		if rep.Outcome.Kind == kind {
			count++
		}
	}
	return count
}

// TotalSuggestions returns the number of merged suggestions across all files
func (r *AnalysisRun) TotalSuggestions() int {
	total := 0
	for _, rep := range r.Reports {
		total += len(rep.Outcome.Suggestions)
	}
	return total
}

// HasSuggestions returns true if any file produced suggestions
func (r *AnalysisRun) HasSuggestions() bool {
	return r.TotalSuggestions() > 0
}
