package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntaxError(t *testing.T) {
	err := &SyntaxError{Line: 7, Message: `unexpected "}"`}

	assert.Equal(t, `syntax error at line 7: unexpected "}"`, err.Error())
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), ErrParseFailure))
	assert.Equal(t, Finding{Type: "SyntaxError", Line: 7, Message: `unexpected "}"`}, err.Finding())
	assert.Equal(t, `unexpected "}" (line 7)`, err.Diagnostic())

	noLine := &SyntaxError{Message: "no grammar available"}
	assert.Equal(t, "syntax error: no grammar available", noLine.Error())
	assert.Equal(t, "no grammar available", noLine.Diagnostic())
}

func TestSyntaxErrorFromMessage(t *testing.T) {
	tests := []struct {
		msg  string
		line int
	}{
		{"Unexpected token (line 12)", 12},
		{"bad input on Line 3, column 4", 3},
		{"Failed to parse JavaScript code.", 0},
		{"timeline 5", 0},
	}
	for _, tt := range tests {
		got := SyntaxErrorFromMessage(tt.msg)
		assert.Equal(t, tt.line, got.Line, tt.msg)
		assert.Equal(t, tt.msg, got.Message)
	}

	// Diagnostic output parses back to the same line
	orig := &SyntaxError{Line: 21, Message: "missing \")\""}
	assert.Equal(t, 21, SyntaxErrorFromMessage(orig.Diagnostic()).Line)
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]Language{
		"app.js":         LanguageJavaScript,
		"component.jsx":  LanguageJavaScript,
		"loader.mjs":     LanguageJavaScript,
		"SCRIPT.PY":      LanguagePython,
		"lib/helpers.py": LanguagePython,
		"notes.txt":      LanguageUnknown,
		"style.css":      LanguageUnknown,
		"Makefile":       LanguageUnknown,
		"binding.gyp":    LanguageUnknown,
		"stubs.pyi":      LanguageUnknown,
		"legacy.es6":     LanguageUnknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, DetectLanguage(name), name)
	}

	f := NewSourceFile("a.py", "print 'hi'")
	assert.Equal(t, LanguagePython, f.Language)
	assert.Equal(t, 10, f.Size())
	assert.True(t, f.Language.IsSupported())
	assert.False(t, LanguageUnknown.IsSupported())
}

func TestNewSourceFileShebang(t *testing.T) {
	script := NewSourceFile("bin/manage", "#!/usr/bin/env python3\nprint 'hi'\n")
	assert.Equal(t, LanguagePython, script.Language)

	assert.Equal(t, LanguageUnknown, NewSourceFile("bin/run", "echo hi\n").Language)
	// an unsupported extension is never overridden by the shebang
	assert.Equal(t, LanguageUnknown, NewSourceFile("tool.sh", "#!/usr/bin/env python3\n").Language)
}

func TestMergedSuggestionPrimaryType(t *testing.T) {
	m := MergedSuggestion{Line: 3, Suggestion: "x", Type: "var_usage, arguments.callee", Message: "a; b"}
	assert.Equal(t, "var_usage", m.PrimaryType())
	assert.Equal(t, "React.createClass", MergedSuggestion{Type: "React.createClass"}.PrimaryType())

	s := m.AsSuggestion()
	assert.Equal(t, 3, s.Line)
	assert.Equal(t, "var_usage, arguments.callee", s.Type)
	assert.Equal(t, "x", s.Suggestion)
}

func TestOutcomes(t *testing.T) {
	assert.Equal(t, Outcome{Kind: OutcomeError, Message: "boom"}, ErrorOutcome("boom"))
	assert.Equal(t, Outcome{Kind: OutcomeNoIssues, Message: MsgNoIssues}, NoIssuesOutcome(MsgNoIssues))

	empty := SuggestionsOutcome(nil)
	assert.Equal(t, OutcomeSuggestions, empty.Kind)
	assert.NotNil(t, empty.Suggestions)
	assert.Empty(t, empty.Message)
}

func TestAnalysisRunCounters(t *testing.T) {
	run := AnalysisRun{Reports: []FileReport{
		{File: "a.js", Outcome: SuggestionsOutcome(make([]EnrichedSuggestion, 3))},
		{File: "b.py", Outcome: NoIssuesOutcome(MsgNoIssues)},
		{File: "c.txt", Outcome: ErrorOutcome(MsgUnsupportedFileType)},
		{File: "d.js", Outcome: SuggestionsOutcome(make([]EnrichedSuggestion, 1))},
	}}

	assert.Equal(t, 2, run.Count(OutcomeSuggestions))
	assert.Equal(t, 1, run.Count(OutcomeError))
	assert.Equal(t, 4, run.TotalSuggestions())
	assert.True(t, run.HasSuggestions())
	assert.True(t, run.Reports[2].IsError())
}
