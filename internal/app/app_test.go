package app_test

import (
	"context"
	"testing"

	"github.com/dom/document-viewer/internal/app"
	"github.com/dom/document-viewer/internal/logging"
	"github.com/dom/document-viewer/internal/security"
	"github.com/dom/document-viewer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNew_MemoryStore(t *testing.T) {
	a, err := app.New(testutil.TestConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx := context.Background()
	_, err = a.Services.Admin.EnsureAdmin(ctx, "root", "root@example.com", "rootpassword")
	require.NoError(t, err)

	user, err := a.Repos.User.GetByUsername(ctx, "root")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, security.PasswordCost, cost)
}

func TestNew_UnknownStore(t *testing.T) {
	cfg := testutil.TestConfig(t)
	cfg.Store = "sqlite"

	_, err := app.New(cfg, logging.Discard())
	assert.ErrorContains(t, err, `unknown store "sqlite"`)
}
