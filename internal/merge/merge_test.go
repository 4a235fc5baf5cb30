package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juparave/legacyfix/internal/domain"
)

func suggestion(typ string, line int, msg, fix string) domain.Suggestion {
	return domain.Suggestion{
		Finding:    domain.Finding{Type: typ, Line: line, Message: msg},
		Suggestion: fix,
	}
}

func TestMergeSameLineSameFix(t *testing.T) {
	got := Merge([]domain.Suggestion{
		suggestion("var_usage", 10, "Use let or const instead of var.", "X"),
		suggestion("arguments.callee", 10, "arguments.callee is deprecated.", "X"),
	})

	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Line)
	assert.Equal(t, "X", got[0].Suggestion)
	assert.Equal(t, "var_usage, arguments.callee", got[0].Type)
	assert.Equal(t, "Use let or const instead of var.; arguments.callee is deprecated.", got[0].Message)
	assert.Equal(t, "var_usage", got[0].PrimaryType())
}

func TestMergeKeepsFirstAppearanceOrder(t *testing.T) {
	got := Merge([]domain.Suggestion{
		suggestion("a", 3, "m1", "fix-a"),
		suggestion("b", 1, "m2", "fix-b"),
		suggestion("c", 3, "m3", "fix-a"),
		suggestion("d", 3, "m4", "fix-other"),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "a, c", got[0].Type)
	assert.Equal(t, "m1; m3", got[0].Message)
	assert.Equal(t, "b", got[1].Type)
	assert.Equal(t, "d", got[2].Type)
}

func TestMergeDisjointKeys(t *testing.T) {
	in := []domain.Suggestion{
		suggestion("a", 1, "m", "fix"),
		suggestion("a", 2, "m", "fix"),
		suggestion("a", 1, "m", "other"),
	}
	got := Merge(in)

	require.Len(t, got, len(in))
	for i, m := range got {
		assert.Equal(t, in[i].Line, m.Line)
		assert.Equal(t, in[i].Suggestion, m.Suggestion)
		assert.Equal(t, in[i].Type, m.Type)
	}
}

func TestMergeIdempotent(t *testing.T) {
	once := Merge([]domain.Suggestion{
		suggestion("var_usage", 10, "m1", "X"),
		suggestion("arguments.callee", 10, "m2", "X"),
		suggestion("print_statement", 4, "m3", "print(x)"),
	})
	assert.Equal(t, once, Remerge(once))
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil))
}
