package detect

import (
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/tsx"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/juparave/legacyfix/internal/domain"
)

// JavaScript pattern types
const (
	TypeCreateClass     = "React.createClass"
	TypePromiseDefer    = "Promise.defer"
	TypePropTypes       = "PropTypes"
	TypeVarUsage        = "var_usage"
	TypeArgumentsCallee = "arguments.callee"
	TypeBindUsage       = "bind_usage"
)

var jsMessages = map[string]string{
	TypeCreateClass:     "React.createClass is deprecated. Use functional components or class components.",
	TypePromiseDefer:    "Promise.defer is non-standard and deprecated. Use Promise constructor.",
	TypePropTypes:       "PropTypes is deprecated in favor of TypeScript or prop validation libraries.",
	TypeVarUsage:        "var declarations are function-scoped. Use let or const.",
	TypeArgumentsCallee: "arguments.callee is forbidden in strict mode. Use a named function expression.",
	TypeBindUsage:       "Binding handlers with .bind(this) is outdated. Use arrow functions or class fields.",
}

// NewJavaScriptParser parses module code first (tsx grammar, which accepts
// JSX and type annotations) and falls back to the plain javascript grammar
// for legacy scripts.
func NewJavaScriptParser() Chain {
	rules := []rule{jsCallRule, jsImportRule, jsVarRule, jsCalleeRule}
	return Chain{
		newTreeParser("tsx", tsx.GetLanguage, rules),
		newTreeParser("javascript", javascript.GetLanguage, rules),
	}
}

func jsFinding(typ string, n sitter.Node) domain.Finding {
	return domain.Finding{Type: typ, Line: lineOf(n), Message: jsMessages[typ]}
}

// memberParts splits `object.property` into its two texts
func memberParts(n sitter.Node, src []byte) (object, property string, ok bool) {
	if n.IsNull() || n.Type() != "member_expression" {
		return "", "", false
	}
	return field(n, "object", src), field(n, "property", src), true
}

func firstArgument(call sitter.Node) sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args.IsNull() || args.NamedChildCount() == 0 {
		return sitter.Node{}
	}
	return args.NamedChild(0)
}

func jsCallRule(n sitter.Node, src []byte) (domain.Finding, bool) {
	if n.Type() != "call_expression" {
		return domain.Finding{}, false
	}
	callee := n.ChildByFieldName("function")
	if callee.IsNull() {
		return domain.Finding{}, false
	}

	// require('prop-types') in CommonJS scripts
	if callee.Type() == "identifier" && nodeText(callee, src) == "require" {
		arg := firstArgument(n)
		if !arg.IsNull() && arg.Type() == "string" && unquote(nodeText(arg, src)) == "prop-types" {
			return jsFinding(TypePropTypes, n), true
		}
		return domain.Finding{}, false
	}

	object, property, ok := memberParts(callee, src)
	if !ok {
		return domain.Finding{}, false
	}
	switch {
	case object == "React" && property == "createClass":
		return jsFinding(TypeCreateClass, n), true
	case object == "Promise" && property == "defer":
		return jsFinding(TypePromiseDefer, n), true
	case property == "bind":
		// this.handler.bind(this)
		inner := callee.ChildByFieldName("object")
		innerObject, _, isMember := memberParts(inner, src)
		arg := firstArgument(n)
		if isMember && innerObject == "this" && !arg.IsNull() && nodeText(arg, src) == "this" {
			return jsFinding(TypeBindUsage, n), true
		}
	}
	return domain.Finding{}, false
}

func jsImportRule(n sitter.Node, src []byte) (domain.Finding, bool) {
	if n.Type() != "import_statement" {
		return domain.Finding{}, false
	}
	if unquote(field(n, "source", src)) == "prop-types" {
		return jsFinding(TypePropTypes, n), true
	}
	return domain.Finding{}, false
}

func jsVarRule(n sitter.Node, _ []byte) (domain.Finding, bool) {
	if n.Type() != "variable_declaration" {
		return domain.Finding{}, false
	}
	return jsFinding(TypeVarUsage, n), true
}

func jsCalleeRule(n sitter.Node, src []byte) (domain.Finding, bool) {
	object, property, ok := memberParts(n, src)
	if ok && object == "arguments" && property == "callee" {
		return jsFinding(TypeArgumentsCallee, n), true
	}
	return domain.Finding{}, false
}
