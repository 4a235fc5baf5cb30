// Package detect turns source text into deprecated-pattern findings.
package detect

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/juparave/legacyfix/internal/domain"
)

// Parser produces the ordered findings for one file. A file that cannot be
// parsed yields a *domain.SyntaxError.
type Parser interface {
	Parse(ctx context.Context, file domain.SourceFile) ([]domain.Finding, error)
}

// Registry selects a Parser by the file's language and enforces the size limit
type Registry struct {
	parsers  map[domain.Language]Parser
	maxBytes int
}

// NewRegistry creates a Registry with the tree-sitter parsers for every
// supported language. maxBytes <= 0 uses domain.DefaultMaxSourceBytes.
func NewRegistry(maxBytes int) *Registry {
	if maxBytes <= 0 {
		maxBytes = domain.DefaultMaxSourceBytes
	}
	return &Registry{
		parsers: map[domain.Language]Parser{
			domain.LanguageJavaScript: NewJavaScriptParser(),
			domain.LanguagePython:     NewPythonParser(),
		},
		maxBytes: maxBytes,
	}
}

// Register replaces the parser for a language
func (r *Registry) Register(lang domain.Language, p Parser) {
	r.parsers[lang] = p
}

// MaxBytes returns the size limit applied before parsing
func (r *Registry) MaxBytes() int {
	return r.maxBytes
}

// Check validates a file without parsing it
func (r *Registry) Check(file domain.SourceFile) error {
	if _, ok := r.parsers[file.Language]; !ok {
		return fmt.Errorf("%s: %w", file.Name, domain.ErrUnsupportedFileType)
	}
	if file.Size() > r.maxBytes {
		return fmt.Errorf("%w: %s exceeds %s", domain.ErrFileTooLarge,
			humanize.IBytes(uint64(file.Size())), humanize.IBytes(uint64(r.maxBytes)))
	}
	return nil
}

// Parse validates the file and hands it to the parser for its language
func (r *Registry) Parse(ctx context.Context, file domain.SourceFile) ([]domain.Finding, error) {
	if err := r.Check(file); err != nil {
		return nil, err
	}
	return r.parsers[file.Language].Parse(ctx, file)
}
