package detect

import (
	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/juparave/legacyfix/internal/domain"
)

// Python pattern types
const (
	TypePrintStatement = "print_statement"
	TypeOldFormat      = "old_format"
	TypeXrangeUsage    = "xrange_usage"
	TypeCmpUsage       = "cmp_usage"
	TypeApplyUsage     = "apply_usage"
)

var pyMessages = map[string]string{
	TypePrintStatement: "Python 2 print statement is deprecated. Use print() function.",
	TypeOldFormat:      "Old-style % formatting is deprecated. Use f-strings or str.format().",
	TypeXrangeUsage:    "xrange is deprecated in Python 3. Use range() instead.",
	TypeCmpUsage:       "cmp parameter in sorted() is deprecated. Use key function instead.",
	TypeApplyUsage:     "apply() was removed in Python 3. Use f(*args, **kwargs) instead.",
}

// NewPythonParser parses with the python grammar, which still accepts the
// Python 2 print statement.
func NewPythonParser() Chain {
	return Chain{
		newTreeParser("python", python.GetLanguage, []rule{pyRule}),
	}
}

func pyFinding(typ string, n sitter.Node) domain.Finding {
	return domain.Finding{Type: typ, Line: lineOf(n), Message: pyMessages[typ]}
}

func pyRule(n sitter.Node, src []byte) (domain.Finding, bool) {
	switch n.Type() {
	case "print_statement":
		return pyFinding(TypePrintStatement, n), true

	case "expression_statement":
		// a bare "print" parses as a lone identifier
		if n.NamedChildCount() == 1 {
			if only := n.NamedChild(0); only.Type() == "identifier" && nodeText(only, src) == "print" {
				return pyFinding(TypePrintStatement, n), true
			}
		}

	case "binary_operator":
		op := n.ChildByFieldName("operator")
		left := n.ChildByFieldName("left")
		if !op.IsNull() && op.Type() == "%" && !left.IsNull() &&
			(left.Type() == "string" || left.Type() == "concatenated_string") {
			return pyFinding(TypeOldFormat, n), true
		}

	case "identifier":
		if nodeText(n, src) == "xrange" {
			return pyFinding(TypeXrangeUsage, n), true
		}

	case "call":
		fn := n.ChildByFieldName("function")
		if fn.IsNull() || fn.Type() != "identifier" {
			break
		}
		switch nodeText(fn, src) {
		case "apply":
			return pyFinding(TypeApplyUsage, n), true
		case "sorted":
			if hasKeyword(n.ChildByFieldName("arguments"), "cmp", src) {
				return pyFinding(TypeCmpUsage, n), true
			}
		}
	}
	return domain.Finding{}, false
}

func hasKeyword(args sitter.Node, name string, src []byte) bool {
	if args.IsNull() {
		return false
	}
	for idx := range args.NamedChildCount() {
		arg := args.NamedChild(idx)
		if arg.Type() == "keyword_argument" && field(arg, "name", src) == name {
			return true
		}
	}
	return false
}
