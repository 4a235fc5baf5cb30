// Package source collects the files submitted for analysis from disk.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/juparave/legacyfix/internal/domain"
)

// ExcludedDirs are directories to skip while walking
var ExcludedDirs = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
	"vendor":           true,
	"dist":             true,
	"build":            true,
	"coverage":         true,
	"__pycache__":      true,
	".venv":            true,
	"venv":             true,
	"site-packages":    true,
}

// excludedSuffixes are generated or bundled files nobody edits by hand
var excludedSuffixes = []string{
	".min.js",
	".bundle.js",
	".chunk.js",
	"_pb2.py",
}

// Collector reads source files from paths
type Collector struct {
	logger   *log.Logger
	maxBytes int
}

// NewCollector creates a Collector. Files larger than maxBytes are only read
// up to maxBytes+1 bytes, enough for the size check to reject them.
func NewCollector(maxBytes int, logger *log.Logger) *Collector {
	if maxBytes <= 0 {
		maxBytes = domain.DefaultMaxSourceBytes
	}
	return &Collector{logger: logger, maxBytes: maxBytes}
}

// Collect returns the files named by paths in argument order. Directories are
// walked for supported files; a file named explicitly is always included so
// that unsupported ones are reported rather than silently dropped.
func (c *Collector) Collect(paths []string) ([]domain.SourceFile, error) {
	var files []domain.SourceFile
	seen := make(map[string]bool)

	add := func(path string) error {
		if seen[path] {
			return nil
		}
		seen[path] = true

		file, err := c.read(path)
		if err != nil {
			return err
		}
		files = append(files, file)
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", root, err)
		}
		if !info.IsDir() {
			if err := add(filepath.Clean(root)); err != nil {
				return nil, err
			}
			continue
		}

		candidates, err := c.walk(root)
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
		for _, path := range candidates {
			if err := add(path); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Debug("collected source files", "count", len(files))
	return files, nil
}

// walk finds supported source files under root
func (c *Collector) walk(root string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("skipping unreadable path", "path", path, "err", err)
			return nil
		}

		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if ExcludedDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || !d.Type().IsRegular() || ShouldExclude(rel) {
			return nil
		}
		if domain.DetectLanguage(name).IsSupported() {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

func (c *Collector) read(path string) (domain.SourceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.SourceFile{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(c.maxBytes)+1))
	if err != nil {
		return domain.SourceFile{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return domain.NewSourceFile(path, string(data)), nil
}

// ShouldExclude reports whether a path is generated or vendored code
func ShouldExclude(path string) bool {
	slashed := filepath.ToSlash(path)
	for dir := range ExcludedDirs {
		if strings.Contains(slashed, "/"+dir+"/") || strings.HasPrefix(slashed, dir+"/") {
			return true
		}
	}
	lower := strings.ToLower(slashed)
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
