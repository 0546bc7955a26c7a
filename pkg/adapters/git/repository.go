// Package git implements ports.ChangeSource on top of the git CLI.
// Every command targets the repository directory through "git -C <dir>".
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os/exec"
	"strings"
)

// ErrDetachedHead is returned by CurrentBranch when HEAD names no branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// Repository is a git working tree.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting dir.
func NewRepository(dir string) *Repository {
	if dir == "" {
		dir = "."
	}
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command and returns stdout. Stderr is included in the
// returned error.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := r.Command(ctx, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Command returns an *exec.Cmd for a git command without running it.
func (r *Repository) Command(ctx context.Context, args ...string) *exec.Cmd {
	fullArgs := append([]string{"-C", r.dir}, args...)
	return exec.CommandContext(ctx, "git", fullArgs...)
}

func (r *Repository) runTrimmed(ctx context.Context, args ...string) (string, error) {
	out, err := r.Run(ctx, args...)
	return strings.TrimSpace(out), err
}

// CurrentBranch returns the checked-out branch name.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	branch, err := r.runTrimmed(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if branch == "HEAD" {
		return "", ErrDetachedHead
	}
	return branch, nil
}

// Checkout switches the working tree to ref.
func (r *Repository) Checkout(ctx context.Context, ref string) error {
	_, err := r.Run(ctx, "checkout", "--quiet", ref)
	return err
}

// Head returns the full hash of HEAD.
func (r *Repository) Head(ctx context.Context) (string, error) {
	return r.runTrimmed(ctx, "rev-parse", "HEAD")
}

// Commits streams `git rev-list HEAD`, newest first. The git process is
// killed when the caller stops iterating.
func (r *Repository) Commits(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var stderr bytes.Buffer
		command := r.Command(ctx, "rev-list", "HEAD")
		command.Stderr = &stderr
		stdout, err := command.StdoutPipe()
		if err != nil {
			yield("", err)
			return
		}
		if err := command.Start(); err != nil {
			yield("", fmt.Errorf("git rev-list in %s: %w", r.dir, err))
			return
		}

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				cancel()
				_ = command.Wait()
				return
			}
		}

		scanErr := scanner.Err()
		waitErr := command.Wait()
		switch {
		case scanErr != nil:
			yield("", scanErr)
		case waitErr != nil:
			yield("", fmt.Errorf("git rev-list in %s: %w (stderr: %s)",
				r.dir, waitErr, strings.TrimSpace(stderr.String())))
		}
	}
}

// ChangedFiles lists paths that differ between from and to. Renames are
// reported as a deletion plus an addition so both paths show up.
func (r *Repository) ChangedFiles(ctx context.Context, from, to string) ([]string, error) {
	out, err := r.Run(ctx, "diff", "--name-only", "--no-renames", from, to, "--")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// FileContent returns path as of rev, or nil when rev has no such file.
func (r *Repository) FileContent(ctx context.Context, rev, path string) ([]byte, error) {
	listed, err := r.runTrimmed(ctx, "ls-tree", "--name-only", rev, "--", path)
	if err != nil {
		return nil, err
	}
	if listed == "" {
		return nil, nil
	}
	out, err := r.Run(ctx, "show", rev+":"+path)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Add stages paths.
func (r *Repository) Add(ctx context.Context, paths ...string) error {
	_, err := r.Run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// HasStagedChanges reports whether the index differs from HEAD for paths.
func (r *Repository) HasStagedChanges(ctx context.Context, paths ...string) (bool, error) {
	command := r.Command(ctx, append([]string{"diff", "--cached", "--quiet", "--"}, paths...)...)
	err := command.Run()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff --cached in %s: %w", r.dir, err)
}

// Commit records the index with message.
func (r *Repository) Commit(ctx context.Context, message string) error {
	_, err := r.Run(ctx, "commit", "--quiet", "-m", message)
	return err
}

// Push pushes the current branch to remote.
func (r *Repository) Push(ctx context.Context, remote string) error {
	_, err := r.Run(ctx, "push", "--quiet", remote, "HEAD")
	return err
}

// RepoRoot returns the top-level directory of the working tree.
func (r *Repository) RepoRoot(ctx context.Context) (string, error) {
	return r.runTrimmed(ctx, "rev-parse", "--show-toplevel")
}

func splitLines(s string) []string {
	var out []string
	for line := range strings.SplitSeq(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
