package testutils

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// GitRepo is a throwaway git working tree for tests.
type GitRepo struct {
	t   *testing.T
	Dir string
}

// SetupGitRepo creates a temporary directory and initializes a git
// repository on branch main with one commit. It skips the test when git is
// not installed and fails it immediately on any other error.
func SetupGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo := &GitRepo{t: t, Dir: absPath}
	repo.Git("init", "--quiet", "--initial-branch=main")
	repo.Git("config", "user.name", "Test")
	repo.Git("config", "user.email", "test@test.local")
	repo.Git("config", "commit.gpgsign", "false")
	repo.WriteFile("README.md", "test\n")
	repo.Commit("initial")
	return repo
}

// Git runs a git command in the repository and returns trimmed stdout.
func (r *GitRepo) Git(args ...string) string {
	r.t.Helper()
	command := exec.Command("git", append([]string{"-C", r.Dir}, args...)...)
	command.Env = append(os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.local",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.local",
	)
	output, err := command.CombinedOutput()
	require.NoError(r.t, err, "git %s: %s", strings.Join(args, " "), output)
	return strings.TrimSpace(string(output))
}

// WriteFile writes content to a path relative to the repository root.
func (r *GitRepo) WriteFile(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Dir, filepath.FromSlash(path))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(r.t, os.WriteFile(full, []byte(content), 0o644))
}

// Commit stages everything and commits it, returning the new head.
func (r *GitRepo) Commit(message string) string {
	r.t.Helper()
	r.Git("add", "--all")
	r.Git("commit", "--quiet", "--allow-empty", "-m", message)
	return r.Head()
}

// Head returns the current head revision.
func (r *GitRepo) Head() string {
	r.t.Helper()
	return r.Git("rev-parse", "HEAD")
}

// Branch returns the checked-out branch.
func (r *GitRepo) Branch() string {
	r.t.Helper()
	return r.Git("rev-parse", "--abbrev-ref", "HEAD")
}
