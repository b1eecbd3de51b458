package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/security"
	"github.com/dom/document-viewer/internal/service"
	"github.com/dom/document-viewer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	eng := testutil.NewGroup(t, env.Repos, "eng")
	user, password := testutil.NewUserBuilder().WithUsername("alice").InGroups(eng).Build(t, env.Repos)
	testutil.NewUserBuilder().WithUsername("bob").Inactive().Build(t, env.Repos)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid credentials", username: "alice", password: password},
		{name: "wrong password", username: "alice", password: "wrongpassword", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", username: "nobody", password: password, wantErr: domain.ErrInvalidCredentials},
		{name: "inactive user", username: "bob", password: testutil.DefaultPassword, wantErr: domain.ErrAccountInactive},
		{name: "inactive user with wrong password", username: "bob", password: "wrongpassword", wantErr: domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.Services.Auth.Login(ctx, service.LoginInput{
				Username: tt.username,
				Password: tt.password,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, result.Token)
			assert.Equal(t, env.Clock.Now().Add(service.SessionDuration), result.ExpiresAt)
			assert.Equal(t, user.ID, result.User.UserID)
			assert.Equal(t, []string{"eng"}, result.User.Groups)
		})
	}

	t.Run("records last login", func(t *testing.T) {
		stored, err := env.Repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastLogin)
	})

	t.Run("stores only the token hash", func(t *testing.T) {
		result, err := env.Services.Auth.Login(ctx, service.LoginInput{Username: "alice", Password: password})
		require.NoError(t, err)

		session, err := env.Repos.Session.GetByTokenHash(ctx, security.HashToken(result.Token))
		require.NoError(t, err)
		assert.NotEqual(t, result.Token, session.TokenHash)
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Services.Auth
	ctx := context.Background()

	eng := testutil.NewGroup(t, env.Repos, "eng")
	user, password := testutil.NewUserBuilder().InGroups(eng).Build(t, env.Repos)

	login := func(t *testing.T) string {
		t.Helper()
		result, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
		require.NoError(t, err)
		return result.Token
	}

	t.Run("valid token", func(t *testing.T) {
		token := login(t)
		p, err := auth.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, p.UserID)
		assert.Equal(t, []string{"eng"}, p.Groups)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := auth.ValidateSession(ctx, "  ")
		assert.ErrorIs(t, err, domain.ErrMissingToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := auth.ValidateSession(ctx, "not-a-real-token")
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("expired token is deleted", func(t *testing.T) {
		token := login(t)
		env.Clock.Advance(service.SessionDuration)

		_, err := auth.ValidateSession(ctx, token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)

		_, err = env.Repos.Session.GetByTokenHash(ctx, security.HashToken(token))
		assert.Error(t, err)
	})

	t.Run("deactivated user", func(t *testing.T) {
		token := login(t)

		stored, err := env.Repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		stored.IsActive = false
		require.NoError(t, env.Repos.User.Update(ctx, stored))

		_, err = auth.ValidateSession(ctx, token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)

		stored.IsActive = true
		require.NoError(t, env.Repos.User.Update(ctx, stored))
	})

	t.Run("groups are resolved on every call", func(t *testing.T) {
		token := login(t)
		ops := testutil.NewGroup(t, env.Repos, "ops")
		_, err := env.Repos.User.AddGroup(ctx, user.ID, ops.ID)
		require.NoError(t, err)

		p, err := auth.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"eng", "ops"}, p.Groups)
	})

	t.Run("inactive groups are ignored", func(t *testing.T) {
		token := login(t)
		eng.IsActive = false
		require.NoError(t, env.Repos.Group.Update(ctx, eng))

		p, err := auth.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.NotContains(t, p.Groups, "eng")
	})
}

func TestAuthService_SessionChurn(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Services.Auth
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, env.Repos)

	var tokens []string
	for i := 0; i < 5; i++ {
		result, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
		require.NoError(t, err)
		tokens = append(tokens, result.Token)
	}

	for _, token := range tokens {
		_, err := auth.ValidateSession(ctx, token)
		require.NoError(t, err)
	}

	deleted, err := auth.Logout(ctx, tokens[0])
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = auth.ValidateSession(ctx, tokens[0])
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	deleted, err = auth.Logout(ctx, tokens[0])
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := auth.LogoutAllSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	for _, token := range tokens[1:] {
		_, err := auth.ValidateSession(ctx, token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	}
}

func TestAuthService_TokenCollision(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	tokens := []string{"fixed", "fixed", "fresh"}
	gen := func() (string, error) {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok, nil
	}
	auth := service.NewAuthService(env.Repos.User, env.Repos.Group, env.Repos.Session,
		testutil.TestHasher(), discardLogger(), service.WithTokenSource(gen))

	user, password := testutil.NewUserBuilder().Build(t, env.Repos)

	first, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
	require.NoError(t, err)
	assert.Equal(t, "fixed", first.Token)

	second, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.Token)
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Services.Auth
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, env.Repos)

	current, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
	require.NoError(t, err)
	other, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
	require.NoError(t, err)

	t.Run("new password too short", func(t *testing.T) {
		err := auth.ChangePassword(ctx, user.ID, current.Token, password, "abc")
		assert.ErrorIs(t, err, domain.ErrNewPasswordShort)
	})

	t.Run("wrong current password", func(t *testing.T) {
		err := auth.ChangePassword(ctx, user.ID, current.Token, "wrongpassword", "newpassword")
		assert.ErrorIs(t, err, domain.ErrWrongPassword)
	})

	t.Run("success revokes other sessions", func(t *testing.T) {
		require.NoError(t, auth.ChangePassword(ctx, user.ID, current.Token, password, "newpassword"))

		_, err := auth.ValidateSession(ctx, current.Token)
		assert.NoError(t, err)
		_, err = auth.ValidateSession(ctx, other.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)

		_, err = auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		_, err = auth.Login(ctx, service.LoginInput{Username: user.Username, Password: "newpassword"})
		assert.NoError(t, err)
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Services.Auth
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, env.Repos)
	testutil.NewUserBuilder().WithUsername("bob").Build(t, env.Repos)

	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		input    service.ProfileInput
		wantKind domain.Kind
		check    func(t *testing.T, u *domain.User)
	}{
		{
			name:     "no fields",
			input:    service.ProfileInput{},
			wantKind: domain.KindValidation,
		},
		{
			name:     "invalid email",
			input:    service.ProfileInput{Email: str("not-an-email")},
			wantKind: domain.KindValidation,
		},
		{
			name:     "email taken",
			input:    service.ProfileInput{Email: str("bob@example.com")},
			wantKind: domain.KindValidation,
		},
		{
			name:  "email is trimmed",
			input: service.ProfileInput{Email: str("  alice.new@example.com ")},
			check: func(t *testing.T, u *domain.User) {
				assert.Equal(t, "alice.new@example.com", u.Email)
			},
		},
		{
			name:  "full name",
			input: service.ProfileInput{FullName: str("Alice Liddell")},
			check: func(t *testing.T, u *domain.User) {
				require.NotNil(t, u.FullName)
				assert.Equal(t, "Alice Liddell", *u.FullName)
			},
		},
		{
			name:  "blank full name clears it",
			input: service.ProfileInput{FullName: str("   ")},
			check: func(t *testing.T, u *domain.User) {
				assert.Nil(t, u.FullName)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := auth.UpdateProfile(ctx, user.ID, tt.input)
			if tt.check == nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, updated)
		})
	}
}

func TestAuthService_SweepExpired(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Services.Auth
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, env.Repos)

	old, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
	require.NoError(t, err)

	env.Clock.Advance(service.SessionDuration - time.Hour)
	fresh, err := auth.Login(ctx, service.LoginInput{Username: user.Username, Password: password})
	require.NoError(t, err)

	env.Clock.Advance(2 * time.Hour)
	n, err := auth.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = env.Repos.Session.GetByTokenHash(ctx, security.HashToken(old.Token))
	assert.Error(t, err)
	_, err = auth.ValidateSession(ctx, fresh.Token)
	assert.NoError(t, err)
}
