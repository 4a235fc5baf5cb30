package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	exportDefault = regexp.MustCompile(`export\s+default\s+`)
	exportNamed   = regexp.MustCompile(`export\s+(const|let|var|function|class)`)
)

func exportInfo(code string) string {
	switch {
	case exportDefault.MatchString(code):
		return "The code has an export default statement."
	case exportNamed.MatchString(code):
		return "The code has named exports."
	default:
		return "The code has no exports."
	}
}

func buildPrompt(req UpdateRequest, maxChars int) string {
	var sb strings.Builder

	safeCode := strings.ReplaceAll(truncate(req.LegacyCode, maxChars), "`", "\\`")

	fmt.Fprintf(&sb, "You are an AI assistant that updates legacy %s codebases.\n", req.Language)
	sb.WriteString("The following code contains deprecated patterns. Update the code to fix these specific issues, using modern best practices:\n\n")

	sb.WriteString("### Deprecated Patterns:\n")
	for _, p := range req.Patterns {
		fmt.Fprintf(&sb, "- %s at line %d: %s\n", p.Type, p.Line, p.Message)
	}

	sb.WriteString("\n### Legacy Code:\n")
	sb.WriteString(safeCode)
	sb.WriteString("\n\n### Export Information:\n")
	sb.WriteString(exportInfo(req.LegacyCode))
	sb.WriteString("\n")
	sb.WriteString(outputInstructions)

	return sb.String()
}

// parseResponse pulls the JSON array of suggestions out of a model reply,
// tolerating Markdown fences and surrounding prose.
func parseResponse(text string) ([]UpdatedSuggestion, error) {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end < start {
		return nil, errors.New("no JSON array found in response")
	}
	text = text[start : end+1]

	var out []UpdatedSuggestion
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		// Models sometimes wrap code in stray backticks
		cleaned := strings.ReplaceAll(text, "`", "")
		if err2 := json.Unmarshal([]byte(cleaned), &out); err2 != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return out, nil
}

const outputInstructions = `
For each deprecated pattern, provide the updated code snippet to fix that specific issue.
- Preserve the original export behavior: if the code has no exports, do not add any; if it has an export default, include one; if it has named exports, maintain them.
- Do not add explanatory text or Markdown formatting.
Return a JSON array of suggestions, one entry per pattern and in the same order, in the format:
[
  { "type": "pattern type", "updatedCode": "updated code snippet" },
  ...
]

Respond ONLY with the JSON array, no additional text.`
