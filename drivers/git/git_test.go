package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emenda-labs/hookup/pkg/shell"
)

// gitRepo creates a repository with two commits and returns it with the
// commit ids. The first commit adds a.rb and b.rb; the second modifies a.rb,
// deletes b.rb and adds c.rb.
func gitRepo(t *testing.T) (dir, first, second string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir = t.TempDir()

	run := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test User", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test User", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
		return strings.TrimSpace(string(out))
	}
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	run("init", "-q")
	write("a.rb", "one\n")
	write("b.rb", "two\n")
	run("add", ".")
	run("commit", "-q", "-m", "first")
	first = run("rev-parse", "HEAD")

	write("a.rb", "one changed\n")
	write("c.rb", "three\n")
	run("rm", "-q", "b.rb")
	run("add", ".")
	run("commit", "-q", "-m", "second")
	second = run("rev-parse", "HEAD")
	return dir, first, second
}

func newGit(dir string) *Git {
	r := shell.NewRunner(dir, nil)
	r.Stdout, r.Stderr = nil, nil
	return New(r)
}

func TestDiff(t *testing.T) {
	dir, first, second := gitRepo(t)
	g := newGit(dir)

	out, err := g.Diff(context.Background(), first, second)
	require.NoError(t, err)
	assert.Equal(t, "M\ta.rb\nD\tb.rb\nA\tc.rb\n", out)

	out, err = g.Diff(context.Background(), first, second, "a.rb")
	require.NoError(t, err)
	assert.Equal(t, "M\ta.rb\n", out)
}

func TestCheckoutRemoveAndWorkTreeDiff(t *testing.T) {
	dir, first, second := gitRepo(t)
	g := newGit(dir)
	ctx := context.Background()

	require.NoError(t, g.CheckoutFiles(ctx, first, "a.rb", "b.rb"))
	data, err := os.ReadFile(filepath.Join(dir, "a.rb"))
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(data))

	out, err := g.DiffWorkTree(ctx, second, "a.rb")
	require.NoError(t, err)
	assert.Equal(t, "M\ta.rb\n", out)

	require.NoError(t, g.RemoveFiles(ctx, "b.rb"))
	_, err = os.Stat(filepath.Join(dir, "b.rb"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, g.CheckoutFiles(ctx, second, "a.rb"))
	out, err = g.DiffWorkTree(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMergeFile_ConflictsAreNotErrors(t *testing.T) {
	dir, _, _ := gitRepo(t)
	g := newGit(dir)
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	current := write("current.rb", "version: 5\n")
	base := write("base.rb", "version: 1\n")
	other := write("other.rb", "version: 7\n")

	require.NoError(t, g.MergeFile(context.Background(), current, base, other, 9))

	data, err := os.ReadFile(current)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<<<<<<<<< ")
	assert.Contains(t, string(data), ">>>>>>>>> ")
}

func TestMergeFile_MissingInput(t *testing.T) {
	dir, _, _ := gitRepo(t)
	g := newGit(dir)

	err := g.MergeFile(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "nope"), filepath.Join(dir, "nope"), 7)
	assert.Error(t, err)
}
