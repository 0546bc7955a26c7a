package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/internal/testutils"
)

func TestRepository_Branches(t *testing.T) {
	fixture := testutils.SetupGitRepo(t)
	repo := NewRepository(fixture.Dir)
	ctx := context.Background()

	branch, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	fixture.Git("branch", "release")
	require.NoError(t, repo.Checkout(ctx, "release"))
	branch, err = repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "release", branch)

	fixture.Git("checkout", "--quiet", "--detach")
	_, err = repo.CurrentBranch(ctx)
	assert.ErrorIs(t, err, ErrDetachedHead)

	assert.Error(t, repo.Checkout(ctx, "does-not-exist"))
}

func TestRepository_History(t *testing.T) {
	fixture := testutils.SetupGitRepo(t)
	repo := NewRepository(fixture.Dir)
	ctx := context.Background()

	first := fixture.Head()
	fixture.WriteFile("src/main.go", "package main\n")
	second := fixture.Commit("add main")
	fixture.WriteFile("docs/index.md", "# docs\n")
	third := fixture.Commit("add docs")

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, third, head)

	var revs []string
	for rev, err := range repo.Commits(ctx) {
		require.NoError(t, err)
		revs = append(revs, rev)
	}
	assert.Equal(t, []string{third, second, first}, revs)

	t.Run("Early Stop", func(t *testing.T) {
		var seen []string
		for rev, err := range repo.Commits(ctx) {
			require.NoError(t, err)
			seen = append(seen, rev)
			break
		}
		assert.Equal(t, []string{third}, seen)
	})

	t.Run("Changed Files", func(t *testing.T) {
		files, err := repo.ChangedFiles(ctx, first, third)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"src/main.go", "docs/index.md"}, files)

		files, err = repo.ChangedFiles(ctx, third, third)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestRepository_RenamesShowBothPaths(t *testing.T) {
	fixture := testutils.SetupGitRepo(t)
	repo := NewRepository(fixture.Dir)

	fixture.WriteFile("old/name.txt", "same content\nacross the rename\n")
	before := fixture.Commit("add")
	fixture.Git("mv", "old/name.txt", "new/name.txt")
	after := fixture.Commit("rename")

	files, err := repo.ChangedFiles(context.Background(), before, after)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old/name.txt", "new/name.txt"}, files)
}

func TestRepository_FileContent(t *testing.T) {
	fixture := testutils.SetupGitRepo(t)
	repo := NewRepository(fixture.Dir)
	ctx := context.Background()

	before := fixture.Head()
	fixture.WriteFile("config/app.yml", "version: 2\n")
	after := fixture.Commit("add config")

	content, err := repo.FileContent(ctx, after, "config/app.yml")
	require.NoError(t, err)
	assert.Equal(t, "version: 2\n", string(content))

	content, err = repo.FileContent(ctx, before, "config/app.yml")
	require.NoError(t, err)
	assert.Nil(t, content)
}

func TestRepository_StageCommit(t *testing.T) {
	fixture := testutils.SetupGitRepo(t)
	repo := NewRepository(fixture.Dir)
	ctx := context.Background()

	fixture.WriteFile(".plumber.checkpoint.yml", "build: {}\n")
	require.NoError(t, repo.Add(ctx, ".plumber.checkpoint.yml"))

	staged, err := repo.HasStagedChanges(ctx, ".plumber.checkpoint.yml")
	require.NoError(t, err)
	assert.True(t, staged)

	require.NoError(t, repo.Commit(ctx, "checkpoint"))
	staged, err = repo.HasStagedChanges(ctx, ".plumber.checkpoint.yml")
	require.NoError(t, err)
	assert.False(t, staged)
	assert.Equal(t, "checkpoint", fixture.Git("log", "-1", "--format=%s"))
}
