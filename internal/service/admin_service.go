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

// MinPasswordLength applies to passwords set by an administrator.
const MinPasswordLength = 8

// AdminService manages users and groups.
type AdminService struct {
	userRepo  repository.UserRepository
	groupRepo repository.GroupRepository
	auth      *AuthService
	hasher    *security.Hasher
	logger    *slog.Logger
}

func NewAdminService(
	userRepo repository.UserRepository,
	groupRepo repository.GroupRepository,
	auth *AuthService,
	hasher *security.Hasher,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		userRepo:  userRepo,
		groupRepo: groupRepo,
		auth:      auth,
		hasher:    hasher,
		logger:    logger,
	}
}

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	FullName *string
	GroupIDs []uuid.UUID
}

type UpdateUserInput struct {
	Email    *string
	FullName *string
	Password *string
	GroupIDs *[]uuid.UUID
	IsActive *bool
}

type CreateGroupInput struct {
	Name        string
	Description string
}

type UpdateGroupInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// ItemError reports why one element of a bulk request failed.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkDeleteResult struct {
	DeletedCount int         `json:"deletedCount"`
	Errors       []ItemError `json:"errors"`
}

type BulkAddResult struct {
	AddedCount int         `json:"addedCount"`
	Errors     []ItemError `json:"errors"`
}

func (s *AdminService) CreateUser(ctx context.Context, actor uuid.UUID, input CreateUserInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, domain.NewValidationError("username is required")
	}
	email, err := domain.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < MinPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrUsernameExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal("failed to check username", err)
	}
	if err := s.auth.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	groupIDs := uniqueIDs(input.GroupIDs)
	if err := s.requireGroups(ctx, groupIDs); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, domain.Internal("failed to hash password", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     trimmedOrNil(input.FullName),
		PasswordHash: hash,
		GroupIDs:     groupIDs,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if actor != uuid.Nil {
		user.CreatedBy = &actor
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, domain.NewValidationError("username or email already exists")
		case errors.Is(err, repository.ErrReferenced):
			return nil, domain.ErrUnknownGroups
		}
		return nil, domain.Internal("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "created_by", actor)
	return user, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal("failed to load user", err)
	}
	return user, nil
}

func (s *AdminService) ListUsers(ctx context.Context, activeOnly bool) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, domain.Internal("failed to list users", err)
	}
	return users, nil
}

// UpdateUser applies the given fields. Deactivating the user, or taking the
// admin group away from them, revokes every session they hold. The actor can
// do neither to their own account.
func (s *AdminService) UpdateUser(ctx context.Context, actor, id uuid.UUID, input UpdateUserInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == id && input.IsActive != nil && !*input.IsActive {
		return nil, domain.ErrCannotDisableSelf
	}

	revoke := false

	if input.Email != nil {
		email, err := domain.NormalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.auth.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if input.FullName != nil {
		user.FullName = trimmedOrNil(input.FullName)
	}
	if input.Password != nil && *input.Password != "" {
		if len(*input.Password) < MinPasswordLength {
			return nil, domain.ErrPasswordTooShort
		}
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, domain.Internal("failed to hash password", err)
		}
		user.PasswordHash = hash
	}
	if input.IsActive != nil {
		if user.IsActive && !*input.IsActive {
			revoke = true
		}
		user.IsActive = *input.IsActive
	}

	if input.GroupIDs != nil {
		groupIDs := uniqueIDs(*input.GroupIDs)
		if err := s.requireGroups(ctx, groupIDs); err != nil {
			return nil, err
		}
		lost, err := s.losesAdmin(ctx, user.GroupIDs, groupIDs)
		if err != nil {
			return nil, err
		}
		if lost && actor == id {
			return nil, domain.ErrCannotDemoteSelf
		}
		revoke = revoke || lost
		user.GroupIDs = groupIDs
		err = s.userRepo.UpdateWithGroups(ctx, user)
		if err != nil {
			return nil, s.translateUserWrite(err)
		}
	} else if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, s.translateUserWrite(err)
	}

	if revoke {
		if _, err := s.auth.LogoutAllSessions(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *AdminService) translateUserWrite(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return domain.ErrEmailExists
	case errors.Is(err, repository.ErrReferenced):
		return domain.ErrUnknownGroups
	}
	return domain.Internal("failed to update user", err)
}

// losesAdmin reports whether moving from before to after drops the admin group.
func (s *AdminService) losesAdmin(ctx context.Context, before, after []uuid.UUID) (bool, error) {
	admin, err := s.adminGroup(ctx)
	if err != nil || admin == nil {
		return false, err
	}
	had := containsID(before, admin.ID)
	has := containsID(after, admin.ID)
	return had && !has, nil
}

// adminGroup returns the admin group, or nil when it has not been created.
func (s *AdminService) adminGroup(ctx context.Context) (*domain.UserGroup, error) {
	g, err := s.groupRepo.GetByName(ctx, domain.AdminGroupName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.Internal("failed to load admin group", err)
	}
	return g, nil
}

// DeleteUser removes the user; its sessions and memberships go with it.
func (s *AdminService) DeleteUser(ctx context.Context, actor, id uuid.UUID) error {
	if actor == id {
		return domain.ErrCannotDeleteSelf
	}
	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return domain.Internal("failed to delete user", err)
	}
	if !deleted {
		return domain.ErrUserNotFound
	}
	s.logger.Info("user deleted", "user_id", id, "deleted_by", actor)
	return nil
}

// BulkDeleteUsers deletes each user independently and reports per-item failures.
func (s *AdminService) BulkDeleteUsers(ctx context.Context, actor uuid.UUID, ids []uuid.UUID) *BulkDeleteResult {
	result := &BulkDeleteResult{Errors: []ItemError{}}
	for _, id := range ids {
		if err := s.DeleteUser(ctx, actor, id); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: id.String(), Error: domain.MessageOf(err)})
			continue
		}
		result.DeletedCount++
	}
	return result
}

// AddUserToGroup reports false when the user was already a member.
func (s *AdminService) AddUserToGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return false, err
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return false, err
	}
	added, err := s.userRepo.AddGroup(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return false, domain.ErrGroupNotFound
		}
		return false, domain.Internal("failed to add user to group", err)
	}
	return added, nil
}

// RemoveUserFromGroup reports false when the user was not a member. Removing
// the admin group revokes the user's sessions; the actor cannot remove it
// from themselves.
func (s *AdminService) RemoveUserFromGroup(ctx context.Context, actor, userID, groupID uuid.UUID) (bool, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return false, err
	}
	admin, err := s.adminGroup(ctx)
	if err != nil {
		return false, err
	}
	isAdminGroup := admin != nil && admin.ID == groupID
	if isAdminGroup && actor == userID {
		return false, domain.ErrCannotDemoteSelf
	}

	removed, err := s.userRepo.RemoveGroup(ctx, userID, groupID)
	if err != nil {
		return false, domain.Internal("failed to remove user from group", err)
	}
	if !removed {
		return false, nil
	}

	if isAdminGroup {
		if _, err := s.auth.LogoutAllSessions(ctx, userID); err != nil {
			return true, err
		}
	}
	return true, nil
}

// AddUserToGroups adds the user to each group independently.
func (s *AdminService) AddUserToGroups(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) (*BulkAddResult, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	result := &BulkAddResult{Errors: []ItemError{}}
	for _, gid := range uniqueIDs(groupIDs) {
		added, err := s.AddUserToGroup(ctx, userID, gid)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ID: gid.String(), Error: domain.MessageOf(err)})
			continue
		}
		if added {
			result.AddedCount++
		}
	}
	return result, nil
}

func (s *AdminService) CreateGroup(ctx context.Context, actor uuid.UUID, input CreateGroupInput) (*domain.UserGroup, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("group name is required")
	}
	if _, err := s.groupRepo.GetByName(ctx, name); err == nil {
		return nil, domain.ErrGroupNameExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal("failed to check group name", err)
	}

	now := time.Now()
	group := &domain.UserGroup{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actor != uuid.Nil {
		group.CreatedBy = &actor
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrGroupNameExists
		}
		return nil, domain.Internal("failed to create group", err)
	}
	s.logger.Info("group created", "group_id", group.ID, "name", group.Name)
	return group, nil
}

func (s *AdminService) GetGroup(ctx context.Context, id uuid.UUID) (*domain.UserGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, domain.Internal("failed to load group", err)
	}
	return group, nil
}

func (s *AdminService) ListGroups(ctx context.Context, activeOnly bool) ([]*domain.UserGroup, error) {
	groups, err := s.groupRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, domain.Internal("failed to list groups", err)
	}
	return groups, nil
}

// UpdateGroup applies the given fields. The admin group can be described but
// never renamed or deactivated.
func (s *AdminService) UpdateGroup(ctx context.Context, id uuid.UUID, input UpdateGroupInput) (*domain.UserGroup, error) {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	isAdmin := group.Name == domain.AdminGroupName

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.NewValidationError("group name is required")
		}
		if name != group.Name {
			if isAdmin {
				return nil, domain.NewValidationError("the %s group cannot be renamed", domain.AdminGroupName)
			}
			if _, err := s.groupRepo.GetByName(ctx, name); err == nil {
				return nil, domain.ErrGroupNameExists
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, domain.Internal("failed to check group name", err)
			}
			group.Name = name
		}
	}
	if input.Description != nil {
		group.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		if isAdmin && !*input.IsActive {
			return nil, domain.NewValidationError("the %s group cannot be deactivated", domain.AdminGroupName)
		}
		group.IsActive = *input.IsActive
	}

	if err := s.groupRepo.Update(ctx, group); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, domain.ErrGroupNameExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.ErrGroupNotFound
		}
		return nil, domain.Internal("failed to update group", err)
	}
	return group, nil
}

// DeleteGroup refuses while any user is still a member. ACL entries naming
// the group are removed with it.
func (s *AdminService) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.groupRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			n, cerr := s.userRepo.CountByGroup(ctx, id)
			if cerr != nil || n == 0 {
				return domain.NewConflictError("cannot delete group: users are assigned to this group")
			}
			return domain.NewConflictError("cannot delete group: %d user(s) are assigned to this group", n)
		}
		return domain.Internal("failed to delete group", err)
	}
	if !deleted {
		return domain.ErrGroupNotFound
	}
	s.logger.Info("group deleted", "group_id", id)
	return nil
}

func (s *AdminService) BulkDeleteGroups(ctx context.Context, ids []uuid.UUID) *BulkDeleteResult {
	result := &BulkDeleteResult{Errors: []ItemError{}}
	for _, id := range ids {
		if err := s.DeleteGroup(ctx, id); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: id.String(), Error: domain.MessageOf(err)})
			continue
		}
		result.DeletedCount++
	}
	return result
}

// EnsureAdminResult reports what EnsureAdmin had to create.
type EnsureAdminResult struct {
	Group        *domain.UserGroup
	User         *domain.User
	GroupCreated bool
	UserCreated  bool
}

// EnsureAdmin creates the admin group and an admin user when they are
// missing. An existing user with the given username is added to the admin
// group; its password is left unchanged.
func (s *AdminService) EnsureAdmin(ctx context.Context, username, email, password string) (*EnsureAdminResult, error) {
	result := &EnsureAdminResult{}

	group, err := s.adminGroup(ctx)
	if err != nil {
		return nil, err
	}
	if group == nil {
		group, err = s.CreateGroup(ctx, uuid.Nil, CreateGroupInput{
			Name:        domain.AdminGroupName,
			Description: "Administrators with full access",
		})
		if err != nil {
			return nil, err
		}
		result.GroupCreated = true
	}
	result.Group = group

	user, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if _, err := s.AddUserToGroup(ctx, user.ID, group.ID); err != nil {
			return nil, err
		}
		user, err = s.GetUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.CreateUser(ctx, uuid.Nil, CreateUserInput{
			Username: username,
			Email:    email,
			Password: password,
			GroupIDs: []uuid.UUID{group.ID},
		})
		if err != nil {
			return nil, err
		}
		result.UserCreated = true
	default:
		return nil, domain.Internal("failed to load user", err)
	}
	result.User = user
	return result, nil
}

func (s *AdminService) requireGroups(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	groups, err := s.groupRepo.GetByIDs(ctx, ids)
	if err != nil {
		return domain.Internal("failed to load groups", err)
	}
	return missingGroups(ids, groups)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
