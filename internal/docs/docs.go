// Package docs attaches reference documentation to merged suggestions.
package docs

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/race"
)

// DefaultTimeout bounds a single documentation lookup
const DefaultTimeout = 5 * time.Second

// Source resolves documentation for a pattern type
type Source interface {
	Lookup(ctx context.Context, patternType string) (domain.Documentation, error)
}

// Fallback is returned for pattern types without a dedicated entry
var Fallback = domain.Documentation{
	URL:         "https://developer.mozilla.org/en-US/",
	Description: "No specific documentation found. Refer to MDN for general guidance.",
}

var reference = map[string]domain.Documentation{
	"React.createClass": {
		URL:         "https://react.dev/learn/your-first-component",
		Description: "Official React documentation on functional and class components.",
	},
	"PropTypes": {
		URL:         "https://www.typescriptlang.org/docs/handbook/2/everyday-types.html",
		Description: "TypeScript documentation for type checking in React.",
	},
	"Promise.defer": {
		URL:         "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Global_Objects/Promise",
		Description: "MDN documentation on modern Promise usage.",
	},
	"print_statement": {
		URL:         "https://docs.python.org/3/reference/simple_stmts.html#the-print-statement",
		Description: "Python documentation on print() function.",
	},
	"old_format": {
		URL:         "https://docs.python.org/3/tutorial/inputoutput.html#fancier-output-formatting",
		Description: "Python documentation on f-strings and str.format().",
	},
	"bind_usage": {
		URL:         "https://react.dev/learn/responding-to-events",
		Description: "React documentation on handling events without bind.",
	},
	"var_usage": {
		URL:         "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Statements/let",
		Description: "MDN documentation on using let and const.",
	},
	"apply_usage": {
		URL:         "https://docs.python.org/3/tutorial/controlflow.html#unpacking-argument-lists",
		Description: "Python documentation on argument unpacking.",
	},
	"xrange_usage": {
		URL:         "https://docs.python.org/3/library/functions.html#range",
		Description: "Python documentation on range() function.",
	},
	"arguments.callee": {
		URL:         "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Functions/arguments/callee",
		Description: "MDN documentation on alternatives to arguments.callee.",
	},
	"cmp_usage": {
		URL:         "https://docs.python.org/3/howto/sorting.html#sorting-how-to",
		Description: "Python documentation on sorting with key functions.",
	},
}

// StaticSource serves the built-in reference table
type StaticSource struct{}

// Lookup returns the entry for patternType or Fallback
func (StaticSource) Lookup(_ context.Context, patternType string) (domain.Documentation, error) {
	if doc, ok := reference[patternType]; ok {
		return doc, nil
	}
	return Fallback, nil
}

// Keys returns the pattern types with a dedicated entry
func Keys() []string {
	keys := make([]string, 0, len(reference))
	for k := range reference {
		keys = append(keys, k)
	}
	return keys
}

// Enricher attaches documentation to merged suggestions
type Enricher struct {
	source  Source
	timeout time.Duration
	logger  *log.Logger
}

// NewEnricher creates an enricher. A nil source uses the built-in table.
func NewEnricher(source Source, timeout time.Duration, logger *log.Logger) *Enricher {
	if source == nil {
		source = StaticSource{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Enricher{source: source, timeout: timeout, logger: logger}
}

// Enrich looks up documentation for the primary pattern type. It never fails:
// lookup errors and timeouts yield domain.UnavailableDocumentation.
func (e *Enricher) Enrich(ctx context.Context, m domain.MergedSuggestion) domain.EnrichedSuggestion {
	primary := m.PrimaryType()
	doc, err := race.WithTimeout(ctx, e.timeout, func(ctx context.Context) (domain.Documentation, error) {
		return e.source.Lookup(ctx, primary)
	})
	if err != nil {
		if errors.Is(err, race.ErrTimeout) {
			err = domain.ErrDocumentationTimeout
		}
		e.logger.Warn("documentation lookup failed", "type", primary, "err", err)
		doc = domain.UnavailableDocumentation
	}
	return domain.EnrichedSuggestion{MergedSuggestion: m, Documentation: doc}
}
