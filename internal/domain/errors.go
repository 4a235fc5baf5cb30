package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrParseFailure         = errors.New("parse failure")
	ErrMissingCredential    = errors.New("authentication token missing")
	ErrSuggestionTimeout    = errors.New("suggestion request timed out")
	ErrSuggestionTransport  = errors.New("suggestion request failed")
	ErrDocumentationTimeout = errors.New("documentation lookup timed out")
	ErrNoFiles              = errors.New("no files submitted")
)

// SyntaxError is returned when no grammar could parse a file
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Message)
	}
	return "syntax error: " + e.Message
}

func (e *SyntaxError) Unwrap() error {
	return ErrParseFailure
}

// Finding returns the synthetic SyntaxError finding for the failure
func (e *SyntaxError) Finding() Finding {
	return Finding{Type: SyntaxErrorType, Line: e.Line, Message: e.Message}
}

var lineRef = regexp.MustCompile(`(?i)\bline\s+(\d+)`)

// SyntaxErrorFromMessage builds a SyntaxError from a parser diagnostic.
// The line is taken from the first "line N" in the text, 0 if there is none.
func SyntaxErrorFromMessage(message string) *SyntaxError {
	line := 0
	if m := lineRef.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			line = n
		}
	}
	return &SyntaxError{Line: line, Message: message}
}

// Diagnostic is the message with its line appended when the message does not
// already name one. SyntaxErrorFromMessage recovers the line from it.
func (e *SyntaxError) Diagnostic() string {
	if e.Line <= 0 || lineRef.MatchString(e.Message) {
		return e.Message
	}
	return fmt.Sprintf("%s (line %d)", e.Message, e.Line)
}
