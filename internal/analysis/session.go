package analysis

import (
	"context"
	"sync"

	"github.com/juparave/legacyfix/internal/domain"
)

// Session binds one submitted file set to an Analyzer. Run analyzes the
// set at most once; later calls return the first result.
type Session struct {
	analyzer *Analyzer
	files    []domain.SourceFile

	once sync.Once
	run  domain.AnalysisRun
	err  error
}

// NewSession creates a Session for files
func (a *Analyzer) NewSession(files []domain.SourceFile) *Session {
	return &Session{analyzer: a, files: files}
}

// Run executes the analysis on first call
func (s *Session) Run(ctx context.Context) (domain.AnalysisRun, error) {
	s.once.Do(func() {
		s.run, s.err = s.analyzer.Analyze(ctx, s.files)
	})
	return s.run, s.err
}
