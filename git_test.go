package reltag

import (
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	t.Run("Repo with no tags", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		_, err = testRepoCommit(repo, "test.txt", "Hello world")
		require.NoError(t, err)

		tag, err := NewGitTags(repo).Describe()
		require.NoError(t, err)
		require.Equal(t, DefaultTag, tag)
	})

	t.Run("Repo with exact tag at HEAD", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		require.NoError(t, testRepoTagSequence(repo, []string{"v1.0.0"}))

		tag, err := NewGitTags(repo).Describe()
		require.NoError(t, err)
		require.Equal(t, "v1.0.0", tag)
	})

	t.Run("Most recent tag wins", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		require.NoError(t, testRepoTagSequence(repo, []string{"v1.0.0", "v1.1.0-rc.1", "v1.1.0-rc.2"}))

		tag, err := NewGitTags(repo).Describe()
		require.NoError(t, err)
		require.Equal(t, "v1.1.0-rc.2", tag)
	})

	t.Run("Tag behind HEAD is still found", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		require.NoError(t, testRepoTagSequence(repo, []string{"v1.2.0"}))
		_, err = testRepoCommit(repo, "post.txt", "post-release work")
		require.NoError(t, err)

		tag, err := NewGitTags(repo).Describe()
		require.NoError(t, err)
		require.Equal(t, "v1.2.0", tag)
	})

	t.Run("Non-release tags are ignored", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		require.NoError(t, testRepoTagSequence(repo, []string{"v1.0.0"}))

		hash, err := testRepoCommit(repo, "extra.txt", "extra")
		require.NoError(t, err)
		for _, name := range []string{"sdk/v2.0.0", "v2.0.0-beta.1", "nightly"} {
			_, err = repo.CreateTag(name, hash, nil)
			require.NoError(t, err)
		}

		tag, err := NewGitTags(repo).Describe()
		require.NoError(t, err)
		require.Equal(t, "v1.0.0", tag)
	})

	t.Run("Nil repository", func(t *testing.T) {
		_, err := NewGitTags(nil).Describe()
		require.Error(t, err)
		require.Contains(t, err.Error(), "repository is required")
	})
}

func TestPublishTag(t *testing.T) {
	t.Run("Creates a lightweight tag at HEAD", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		head, err := testRepoCommit(repo, "test.txt", "Hello world")
		require.NoError(t, err)

		tags := NewGitTags(repo)
		require.NoError(t, tags.PublishTag("v1.0.0", ""))

		ref, err := repo.Tag("v1.0.0")
		require.NoError(t, err)
		require.Equal(t, head, ref.Hash())
	})

	t.Run("Creates an annotated tag when a tagger is set", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		_, err = testRepoCommit(repo, "test.txt", "Hello world")
		require.NoError(t, err)

		tags := NewGitTags(repo)
		tags.Tagger = testSignature
		require.NoError(t, tags.PublishTag("v1.0.0", "Release v1.0.0"))

		ref, err := repo.Tag("v1.0.0")
		require.NoError(t, err)

		obj, err := repo.TagObject(ref.Hash())
		require.NoError(t, err)
		require.Equal(t, "Release v1.0.0", strings.TrimSpace(obj.Message))
	})

	t.Run("Publishing twice replaces the tag", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		_, err = testRepoCommit(repo, "one.txt", "one")
		require.NoError(t, err)

		tags := NewGitTags(repo)
		require.NoError(t, tags.PublishTag("v1.0.0", ""))

		head, err := testRepoCommit(repo, "two.txt", "two")
		require.NoError(t, err)
		require.NoError(t, tags.PublishTag("v1.0.0", ""))

		ref, err := repo.Tag("v1.0.0")
		require.NoError(t, err)
		require.Equal(t, head, ref.Hash())
	})

	t.Run("Nil repository", func(t *testing.T) {
		err := NewGitTags(nil).PublishTag("v1.0.0", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "repository is required")
	})
}

func TestDescribeEmptyRepository(t *testing.T) {
	repo, err := testRepoCreate()
	require.NoError(t, err)

	tag, err := NewGitTags(repo).Describe()
	require.NoError(t, err)
	require.Equal(t, DefaultTag, tag)
}

func TestOpenRepositoryMissingPath(t *testing.T) {
	_, err := OpenRepository(t.TempDir())
	require.ErrorIs(t, err, git.ErrRepositoryNotExists)
}
