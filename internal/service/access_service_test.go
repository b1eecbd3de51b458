package service_test

import (
	"context"
	"testing"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessService_HasAccess(t *testing.T) {
	env := testutil.NewEnv(t)
	access := env.Services.Access
	ctx := context.Background()

	eng := testutil.NewGroup(t, env.Repos, "eng")
	ops := testutil.NewGroup(t, env.Repos, "ops")
	testutil.NewDocumentBuilder("D1").SharedWith(eng).Build(t, env.Repos, env.Store)
	testutil.NewDocumentBuilder("D2").SharedWith(eng).Inactive().Build(t, env.Repos, env.Store)
	testutil.NewDocumentBuilder("D3").Build(t, env.Repos, env.Store)

	tests := []struct {
		name   string
		doc    string
		groups []uuid.UUID
		want   bool
	}{
		{name: "group in acl", doc: "D1", groups: []uuid.UUID{eng.ID}, want: true},
		{name: "one of several groups in acl", doc: "D1", groups: []uuid.UUID{ops.ID, eng.ID}, want: true},
		{name: "group not in acl", doc: "D1", groups: []uuid.UUID{ops.ID}},
		{name: "no groups", doc: "D1"},
		{name: "inactive document", doc: "D2", groups: []uuid.UUID{eng.ID}},
		{name: "empty acl", doc: "D3", groups: []uuid.UUID{eng.ID, ops.ID}},
		{name: "unknown document", doc: "missing", groups: []uuid.UUID{eng.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := access.HasAccess(ctx, tt.doc, tt.groups)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessService_EditPermissions(t *testing.T) {
	env := testutil.NewEnv(t)
	access := env.Services.Access
	ctx := context.Background()

	eng := testutil.NewGroup(t, env.Repos, "eng")
	ops := testutil.NewGroup(t, env.Repos, "ops")
	testutil.NewDocumentBuilder("D1").SharedWith(eng).Build(t, env.Repos, env.Store)

	acl := func(t *testing.T) []uuid.UUID {
		t.Helper()
		doc, err := env.Repos.Document.GetByID(ctx, "D1")
		require.NoError(t, err)
		return doc.GroupIDs
	}

	t.Run("add is idempotent", func(t *testing.T) {
		require.NoError(t, access.AddPermission(ctx, "D1", ops.ID))
		require.NoError(t, access.AddPermission(ctx, "D1", ops.ID))
		assert.ElementsMatch(t, []uuid.UUID{eng.ID, ops.ID}, acl(t))
	})

	t.Run("add unknown group", func(t *testing.T) {
		err := access.AddPermission(ctx, "D1", uuid.New())
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("add to unknown document", func(t *testing.T) {
		err := access.AddPermission(ctx, "missing", eng.ID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		require.NoError(t, access.RemovePermission(ctx, "D1", ops.ID))
		require.NoError(t, access.RemovePermission(ctx, "D1", ops.ID))
		assert.Equal(t, []uuid.UUID{eng.ID}, acl(t))
	})

	t.Run("replace deduplicates", func(t *testing.T) {
		require.NoError(t, access.ReplacePermissions(ctx, "D1", []uuid.UUID{ops.ID, ops.ID}))
		assert.Equal(t, []uuid.UUID{ops.ID}, acl(t))
	})

	t.Run("replace with unknown group changes nothing", func(t *testing.T) {
		unknown := uuid.New()
		err := access.ReplacePermissions(ctx, "D1", []uuid.UUID{eng.ID, unknown})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownGroups)
		assert.Contains(t, domain.MessageOf(err), unknown.String())
		assert.Equal(t, []uuid.UUID{ops.ID}, acl(t))
	})

	t.Run("replace with empty list clears acl", func(t *testing.T) {
		require.NoError(t, access.ReplacePermissions(ctx, "D1", nil))
		assert.Empty(t, acl(t))
	})
}
