package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/juparave/legacyfix/internal/domain"
)

// maxSnippet bounds the source excerpt quoted in syntax error messages
const maxSnippet = 32

// rule inspects one node and reports a finding when it matches
type rule func(n sitter.Node, src []byte) (domain.Finding, bool)

// treeParser parses with a single tree-sitter grammar and walks the tree
type treeParser struct {
	grammar string
	pool    sync.Pool
	rules   []rule
}

func newTreeParser(grammar string, langFn func() unsafe.Pointer, rules []rule) *treeParser {
	lang := sitter.NewLanguage(langFn())
	p := &treeParser{grammar: grammar, rules: rules}
	p.pool.New = func() any {
		tsParser := sitter.NewParser()
		tsParser.SetLanguage(lang)
		return tsParser
	}
	return p
}

// Parse implements Parser
func (p *treeParser) Parse(ctx context.Context, file domain.SourceFile) ([]domain.Finding, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, fmt.Errorf("%s: parser pool returned unexpected type", p.grammar)
	}
	defer p.pool.Put(tsParser)

	src := []byte(file.Content)
	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%s grammar: %w", p.grammar, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, &domain.SyntaxError{Message: "empty syntax tree"}
	}
	if root.HasError() {
		return nil, syntaxErrorAt(firstErrorNode(root), src)
	}

	findings := []domain.Finding{}
	p.walk(root, src, &findings)
	return findings, nil
}

// walk visits named nodes in pre-order so findings come out in detection order
func (p *treeParser) walk(n sitter.Node, src []byte, out *[]domain.Finding) {
	for _, r := range p.rules {
		if f, ok := r(n, src); ok {
			*out = append(*out, f)
		}
	}
	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if !child.IsNull() {
			p.walk(child, src, out)
		}
	}
}

func firstErrorNode(n sitter.Node) sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for idx := range n.ChildCount() {
		child := n.Child(idx)
		if !child.IsNull() && (child.HasError() || child.IsMissing()) {
			return firstErrorNode(child)
		}
	}
	return n
}

func syntaxErrorAt(n sitter.Node, src []byte) *domain.SyntaxError {
	line := lineOf(n)
	if n.IsMissing() {
		return &domain.SyntaxError{
			Line:    line,
			Message: fmt.Sprintf("missing %q", n.Type()),
		}
	}

	snippet := nodeText(n, src)
	if first, _, found := strings.Cut(snippet, "\n"); found {
		snippet = first
	}
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return &domain.SyntaxError{
		Line:    line,
		Message: fmt.Sprintf("unexpected %q", strings.TrimSpace(snippet)),
	}
}

func lineOf(n sitter.Node) int {
	return int(n.StartPoint().Row) + 1 //nolint:gosec // tree-sitter rows fit in int
}

func nodeText(n sitter.Node, src []byte) string {
	start, end := int(n.StartByte()), int(n.EndByte()) //nolint:gosec // byte offsets fit in int
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}

// field returns the text of a named field child, "" when absent
func field(n sitter.Node, name string, src []byte) string {
	child := n.ChildByFieldName(name)
	if child.IsNull() {
		return ""
	}
	return nodeText(child, src)
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
}

// Chain tries each parser in order until one succeeds. Only syntax
// failures move on to the next parser; any other error stops the chain.
// When every parser fails, the first syntax error is returned.
type Chain []Parser

// Parse implements Parser
func (c Chain) Parse(ctx context.Context, file domain.SourceFile) ([]domain.Finding, error) {
	var firstErr error
	for _, p := range c {
		findings, err := p.Parse(ctx, file)
		if err == nil {
			return findings, nil
		}
		if !errors.Is(err, domain.ErrParseFailure) {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		return nil, &domain.SyntaxError{Message: "no grammar available"}
	}
	return nil, firstErr
}
