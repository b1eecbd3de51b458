package postgres_test

import (
	"context"
	"testing"

	"github.com/dom/document-viewer/internal/repository"
	"github.com/dom/document-viewer/internal/repository/postgres"
	"github.com/dom/document-viewer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// An update that loses a race with a delete must not bring the row back.
func TestUpdate_DeletedRowStaysDeleted(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	eng := newGroup("eng")
	require.NoError(t, repos.Group.Create(ctx, eng))

	t.Run("user", func(t *testing.T) {
		user := newUser("alice", eng.ID)
		require.NoError(t, repos.User.Create(ctx, user))
		stale, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)

		deleted, err := repos.User.Delete(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		stale.Email = "changed@example.com"
		assert.ErrorIs(t, repos.User.Update(ctx, stale), repository.ErrNotFound)
		assert.ErrorIs(t, repos.User.UpdateWithGroups(ctx, stale), repository.ErrNotFound)

		_, err = repos.User.GetByID(ctx, user.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		n, err := repos.User.CountByGroup(ctx, eng.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("group", func(t *testing.T) {
		ops := newGroup("ops")
		require.NoError(t, repos.Group.Create(ctx, ops))
		deleted, err := repos.Group.Delete(ctx, ops.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		ops.Description = "changed"
		assert.ErrorIs(t, repos.Group.Update(ctx, ops), repository.ErrNotFound)
		_, err = repos.Group.GetByID(ctx, ops.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("document", func(t *testing.T) {
		doc := newDocument("D9")
		assert.ErrorIs(t, repos.Document.Update(ctx, doc), repository.ErrNotFound)
		_, err := repos.Document.GetByID(ctx, "D9")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("existing rows still update", func(t *testing.T) {
		user := newUser("bob")
		require.NoError(t, repos.User.Create(ctx, user))
		user.IsActive = false
		require.NoError(t, repos.User.Update(ctx, user))

		found, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, found.IsActive)
	})
}
