package source

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestChangedFilesSkipsUnsupported(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "README.md"), "# app\n")
	writeFile(t, filepath.Join(dir, "app.js"), "var a = 1;\n")
	writeFile(t, filepath.Join(dir, "old.py"), "print 'x'\n")
	writeFile(t, filepath.Join(dir, "node_modules/lib/index.js"), "var b;\n")

	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "dev@example.com")
	runGit(t, dir, "config", "user.name", "dev")
	runGit(t, dir, "config", "commit.gpgsign", "false")
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-q", "-m", "init")

	writeFile(t, filepath.Join(dir, "README.md"), "# app\n\nmore\n")
	writeFile(t, filepath.Join(dir, "app.js"), "var a = 2;\n")
	writeFile(t, filepath.Join(dir, "node_modules/lib/index.js"), "var c;\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "old.py")))

	changed, err := ChangedFiles(context.Background(), dir, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "app.js")}, changed)
}
