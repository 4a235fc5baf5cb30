package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/juparave/legacyfix/internal/domain"
)

// ChangedFiles lists the supported source files that differ between ref and
// the working tree of the repository at repoPath. Deleted files are skipped.
func ChangedFiles(ctx context.Context, repoPath, ref string) ([]string, error) {
	top, err := gitOutput(ctx, repoPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(top))

	out, err := gitOutput(ctx, root, "diff", "--name-status", "--no-renames", ref)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, rel := range parseNameStatus(out) {
		if ShouldExclude(rel) || !domain.DetectLanguage(rel).IsSupported() {
			continue
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
	}
	return files, nil
}

// parseNameStatus reads "M\tpath" lines, dropping deletions
func parseNameStatus(output []byte) []string {
	var files []string
	s := bufio.NewScanner(bytes.NewReader(output))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		status, path, ok := strings.Cut(line, "\t")
		if !ok || strings.HasPrefix(status, "D") {
			continue
		}
		files = append(files, strings.TrimSpace(path))
	}
	return files
}

func gitOutput(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}
