package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/dom/document-viewer/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroup(t *testing.T, repos *repository.Repositories, name string) *domain.UserGroup {
	t.Helper()
	g := &domain.UserGroup{ID: uuid.New(), Name: name, IsActive: true}
	require.NoError(t, repos.Group.Create(context.Background(), g))
	return g
}

func newUser(t *testing.T, repos *repository.Repositories, username string, groups ...uuid.UUID) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		IsActive:     true,
		GroupIDs:     groups,
	}
	require.NoError(t, repos.User.Create(context.Background(), u))
	return u
}

func TestUserRepository_Unique(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	newUser(t, repos, "alice")

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{name: "duplicate username", username: "alice", email: "other@example.com"},
		{name: "duplicate email", username: "bob", email: "alice@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repos.User.Create(ctx, &domain.User{Username: tt.username, Email: tt.email})
			assert.ErrorIs(t, err, repository.ErrDuplicate)
		})
	}
}

func TestUserRepository_CreateUnknownGroup(t *testing.T) {
	repos := memory.NewRepositories()
	err := repos.User.Create(context.Background(), &domain.User{
		Username: "carol",
		Email:    "carol@example.com",
		GroupIDs: []uuid.UUID{uuid.New()},
	})
	assert.ErrorIs(t, err, repository.ErrReferenced)

	_, err = repos.User.GetByUsername(context.Background(), "carol")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_Memberships(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	eng := newGroup(t, repos, "eng")
	ops := newGroup(t, repos, "ops")
	alice := newUser(t, repos, "alice", eng.ID)

	added, err := repos.User.AddGroup(ctx, alice.ID, ops.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repos.User.AddGroup(ctx, alice.ID, ops.ID)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := repos.User.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{eng.ID, ops.ID}, got.GroupIDs)

	removed, err := repos.User.RemoveGroup(ctx, alice.ID, eng.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repos.User.RemoveGroup(ctx, alice.ID, eng.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := repos.User.CountByGroup(ctx, ops.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got.GroupIDs = []uuid.UUID{eng.ID}
	require.NoError(t, repos.User.UpdateWithGroups(ctx, got))
	got, err = repos.User.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{eng.ID}, got.GroupIDs)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	eng := newGroup(t, repos, "eng")
	alice := newUser(t, repos, "alice", eng.ID)
	require.NoError(t, repos.Session.Create(ctx, &domain.Session{
		UserID:    alice.ID,
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	deleted, err := repos.User.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repos.Session.GetByTokenHash(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := repos.User.CountByGroup(ctx, eng.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	deleted, err = repos.User.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGroupRepository_Delete(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	eng := newGroup(t, repos, "eng")
	ops := newGroup(t, repos, "ops")
	newUser(t, repos, "alice", eng.ID)
	require.NoError(t, repos.Document.Create(ctx, &domain.Document{
		ID:       "D1",
		Name:     "D1",
		IsActive: true,
		GroupIDs: []uuid.UUID{eng.ID, ops.ID},
	}))

	_, err := repos.Group.Delete(ctx, eng.ID)
	assert.ErrorIs(t, err, repository.ErrReferenced)

	deleted, err := repos.Group.Delete(ctx, ops.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	doc, err := repos.Document.GetByID(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{eng.ID}, doc.GroupIDs)

	deleted, err = repos.Group.Delete(ctx, ops.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGroupRepository_GetByIDs(t *testing.T) {
	repos := memory.NewRepositories()
	ops := newGroup(t, repos, "ops")
	eng := newGroup(t, repos, "eng")

	groups, err := repos.Group.GetByIDs(context.Background(), []uuid.UUID{ops.ID, uuid.New(), eng.ID, ops.ID})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "eng", groups[0].Name)
	assert.Equal(t, "ops", groups[1].Name)
}

func TestSessionRepository_Deletes(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	alice := newUser(t, repos, "alice")
	bob := newUser(t, repos, "bob")
	now := time.Now()

	for _, s := range []*domain.Session{
		{UserID: alice.ID, TokenHash: "a1", ExpiresAt: now.Add(time.Hour)},
		{UserID: alice.ID, TokenHash: "a2", ExpiresAt: now.Add(time.Hour)},
		{UserID: alice.ID, TokenHash: "a3", ExpiresAt: now.Add(-time.Minute)},
		{UserID: bob.ID, TokenHash: "b1", ExpiresAt: now},
	} {
		require.NoError(t, repos.Session.Create(ctx, s))
	}

	err := repos.Session.Create(ctx, &domain.Session{UserID: bob.ID, TokenHash: "a1"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	n, err := repos.Session.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repos.Session.DeleteByUserIDExcept(ctx, alice.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := repos.Session.DeleteByTokenHash(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = repos.Session.DeleteByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDocumentRepository_ACL(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	eng := newGroup(t, repos, "eng")
	ops := newGroup(t, repos, "ops")

	for _, d := range []*domain.Document{
		{ID: "D1", Name: "one", IsActive: true, GroupIDs: []uuid.UUID{eng.ID}},
		{ID: "D2", Name: "two", IsActive: true, GroupIDs: []uuid.UUID{ops.ID}},
		{ID: "D3", Name: "three", IsActive: false, GroupIDs: []uuid.UUID{eng.ID}},
	} {
		require.NoError(t, repos.Document.Create(ctx, d))
	}

	docs, err := repos.Document.ListByGroupIDs(ctx, []uuid.UUID{eng.ID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "D1", docs[0].ID)

	docs, err = repos.Document.ListByGroupIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)

	added, err := repos.Document.AddPermission(ctx, "D1", eng.ID)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = repos.Document.AddPermission(ctx, "missing", eng.ID)
	assert.ErrorIs(t, err, repository.ErrReferenced)

	err = repos.Document.ReplacePermissions(ctx, "D1", []uuid.UUID{ops.ID, uuid.New()})
	assert.ErrorIs(t, err, repository.ErrReferenced)
	doc, err := repos.Document.GetByID(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{eng.ID}, doc.GroupIDs)

	require.NoError(t, repos.Document.ReplacePermissions(ctx, "D1", []uuid.UUID{ops.ID, ops.ID}))
	docs, err = repos.Document.ListByGroupIDs(ctx, []uuid.UUID{ops.ID})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "D1", docs[0].ID)
	assert.Equal(t, []uuid.UUID{ops.ID}, docs[0].GroupIDs)

	all, err := repos.Document.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
