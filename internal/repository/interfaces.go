package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/google/uuid"
)

// Errors shared by every store backend.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate key")
	ErrReferenced = errors.New("record is still referenced")
)

type UserRepository interface {
	// Create inserts the user together with its memberships in one transaction.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.User, error)
	// Update saves the user's columns; memberships are left alone.
	Update(ctx context.Context, user *domain.User) error
	// UpdateWithGroups saves the user's columns and replaces its memberships
	// with user.GroupIDs in one transaction.
	UpdateWithGroups(ctx context.Context, user *domain.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	AddGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error)
	RemoveGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error)
	CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error)
}

type GroupRepository interface {
	Create(ctx context.Context, group *domain.UserGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserGroup, error)
	GetByName(ctx context.Context, name string) (*domain.UserGroup, error)
	// GetByIDs returns the groups that exist among ids, ordered by name.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.UserGroup, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.UserGroup, error)
	Update(ctx context.Context, group *domain.UserGroup) error
	// Delete removes the group unless a user still references it, in which
	// case it returns ErrReferenced and changes nothing.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteByUserIDExcept(ctx context.Context, userID uuid.UUID, keepTokenHash string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	// GetByID returns the document whether or not it is active.
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Document, error)
	// ListByGroupIDs returns active documents whose ACL intersects groupIDs.
	ListByGroupIDs(ctx context.Context, groupIDs []uuid.UUID) ([]*domain.Document, error)
	Update(ctx context.Context, doc *domain.Document) error
	AddPermission(ctx context.Context, documentID string, groupID uuid.UUID) (bool, error)
	RemovePermission(ctx context.Context, documentID string, groupID uuid.UUID) (bool, error)
	ReplacePermissions(ctx context.Context, documentID string, groupIDs []uuid.UUID) error
}

type Repositories struct {
	User     UserRepository
	Group    GroupRepository
	Session  SessionRepository
	Document DocumentRepository
}
