package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/dom/document-viewer/internal/security"
	"github.com/google/uuid"
)

// SessionDuration is how long a session token stays valid. Sessions are
// never extended.
const SessionDuration = 24 * time.Hour

// MinChangePasswordLength applies to self-service password changes.
const MinChangePasswordLength = 6

const maxTokenAttempts = 3

type AuthService struct {
	userRepo    repository.UserRepository
	groupRepo   repository.GroupRepository
	sessionRepo repository.SessionRepository
	hasher      *security.Hasher
	logger      *slog.Logger
	now         func() time.Time
	newToken    func() (string, error)
}

type AuthOption func(*AuthService)

// WithClock replaces the time source.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithTokenSource replaces the session token generator.
func WithTokenSource(gen func() (string, error)) AuthOption {
	return func(s *AuthService) { s.newToken = gen }
}

func NewAuthService(
	userRepo repository.UserRepository,
	groupRepo repository.GroupRepository,
	sessionRepo repository.SessionRepository,
	hasher *security.Hasher,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		userRepo:    userRepo,
		groupRepo:   groupRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		logger:      logger,
		now:         time.Now,
		newToken:    security.NewSessionToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	Token     string            `json:"sessionToken"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *domain.Principal `json:"user"`
}

type ProfileInput struct {
	Email    *string
	FullName *string
}

// Login verifies the credentials and opens a new session. Unknown usernames
// and wrong passwords are indistinguishable; an inactive account is only
// reported once the password has been verified.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Burn(input.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal("failed to load user", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}

	principal, err := s.resolvePrincipal(ctx, user)
	if err != nil {
		return nil, err
	}

	token, session, err := s.openSession(ctx, user.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, session.CreatedAt); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return &LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      principal,
	}, nil
}

func (s *AuthService) openSession(ctx context.Context, userID uuid.UUID, ip, agent string) (string, *domain.Session, error) {
	now := s.now()
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", nil, domain.Internal("failed to generate session token", err)
		}
		session := &domain.Session{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: security.HashToken(token),
			ExpiresAt: now.Add(SessionDuration),
			CreatedAt: now,
			IPAddress: ip,
			UserAgent: agent,
		}
		err = s.sessionRepo.Create(ctx, session)
		if err == nil {
			return token, session, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", nil, domain.Internal("failed to create session", err)
		}
	}
	return "", nil, domain.Internal("failed to create session", errors.New("session token collided repeatedly"))
}

// ValidateSession returns the current principal behind token. Expired
// sessions and sessions of missing or inactive users are deleted.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	hash := security.HashToken(token)

	session, err := s.sessionRepo.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, domain.Internal("failed to load session", err)
	}

	if session.Expired(s.now()) {
		s.dropSession(ctx, hash)
		return nil, domain.ErrInvalidSession
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal("failed to load user", err)
	}
	if user == nil || !user.IsActive {
		s.dropSession(ctx, hash)
		return nil, domain.ErrInvalidSession
	}

	return s.resolvePrincipal(ctx, user)
}

func (s *AuthService) dropSession(ctx context.Context, hash string) {
	if _, err := s.sessionRepo.DeleteByTokenHash(ctx, hash); err != nil {
		s.logger.Warn("failed to delete stale session", "error", err)
	}
}

// resolvePrincipal looks up the user's groups. Inactive groups grant nothing.
func (s *AuthService) resolvePrincipal(ctx context.Context, user *domain.User) (*domain.Principal, error) {
	groups, err := s.groupRepo.GetByIDs(ctx, user.GroupIDs)
	if err != nil {
		return nil, domain.Internal("failed to load groups", err)
	}
	active := make([]*domain.UserGroup, 0, len(groups))
	for _, g := range groups {
		if g.IsActive {
			active = append(active, g)
		}
	}
	return domain.NewPrincipal(user, active), nil
}

// Logout deletes the session behind token. It reports whether one existed.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	deleted, err := s.sessionRepo.DeleteByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return false, domain.Internal("failed to delete session", err)
	}
	return deleted, nil
}

func (s *AuthService) LogoutAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.sessionRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, domain.Internal("failed to delete sessions", err)
	}
	if n > 0 {
		s.logger.Info("revoked sessions", "user_id", userID, "count", n)
	}
	return n, nil
}

// ChangePassword replaces the user's password after checking the current
// one. Every other session of the user is revoked; token stays valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, token, current, next string) error {
	if len(next) < MinChangePasswordLength {
		return domain.ErrNewPasswordShort
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return domain.Internal("failed to load user", err)
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return domain.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return domain.Internal("failed to hash password", err)
	}
	user.PasswordHash = hash
	if err := s.userRepo.Update(ctx, user); err != nil {
		return domain.Internal("failed to update password", err)
	}

	n, err := s.sessionRepo.DeleteByUserIDExcept(ctx, userID, security.HashToken(token))
	if err != nil {
		return domain.Internal("failed to revoke sessions", err)
	}
	s.logger.Info("password changed", "user_id", userID, "revoked_sessions", n)
	return nil
}

// UpdateProfile changes the caller's own email and full name.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.User, error) {
	if input.Email == nil && input.FullName == nil {
		return nil, domain.NewValidationError("at least one field (email or fullName) is required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal("failed to load user", err)
	}

	if input.Email != nil {
		email, err := domain.NormalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			user.FullName = nil
		} else {
			user.FullName = &name
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrEmailExists
		}
		return nil, domain.Internal("failed to update profile", err)
	}
	return user, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return domain.Internal("failed to check email", err)
	case existing.ID != self:
		return domain.ErrEmailExists
	}
	return nil
}

// SweepExpired deletes every expired session.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, domain.Internal("failed to sweep sessions", err)
	}
	return n, nil
}
