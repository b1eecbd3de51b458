package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
)

type userRepository struct {
	s *Store
}

// checkUnique must be called with the lock held.
func (r *userRepository) checkUnique(user *domain.User) error {
	for id, u := range r.s.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	return nil
}

func (r *userRepository) checkGroups(ids []uuid.UUID) error {
	for _, gid := range ids {
		if _, ok := r.s.groups[gid]; !ok {
			return repository.ErrReferenced
		}
	}
	return nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, ok := r.s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	if err := r.checkGroups(user.GroupIDs); err != nil {
		return err
	}

	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	stored := *user
	stored.GroupIDs = nil
	r.s.users[user.ID] = &stored
	for _, gid := range dedupe(user.GroupIDs) {
		r.s.memberships[membershipKey{user.ID, gid}] = r.s.stamp()
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.copyUser(u), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *userRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return r.s.copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) List(ctx context.Context, activeOnly bool) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if activeOnly && !u.IsActive {
			continue
		}
		users = append(users, r.s.copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.save(user)
}

func (r *userRepository) save(user *domain.User) error {
	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = r.s.now()
	stored := *user
	stored.GroupIDs = nil
	r.s.users[user.ID] = &stored
	return nil
}

func (r *userRepository) UpdateWithGroups(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkGroups(user.GroupIDs); err != nil {
		return err
	}
	if err := r.save(user); err != nil {
		return err
	}
	for k := range r.s.memberships {
		if k.userID == user.ID {
			delete(r.s.memberships, k)
		}
	}
	for _, gid := range dedupe(user.GroupIDs) {
		r.s.memberships[membershipKey{user.ID, gid}] = r.s.stamp()
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return false, nil
	}
	delete(r.s.users, id)
	for k := range r.s.memberships {
		if k.userID == id {
			delete(r.s.memberships, k)
		}
	}
	for h, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, h)
		}
	}
	return true, nil
}

func (r *userRepository) AddGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return false, repository.ErrReferenced
	}
	if _, ok := r.s.groups[groupID]; !ok {
		return false, repository.ErrReferenced
	}
	key := membershipKey{userID, groupID}
	if _, ok := r.s.memberships[key]; ok {
		return false, nil
	}
	r.s.memberships[key] = r.s.stamp()
	return true, nil
}

func (r *userRepository) RemoveGroup(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := membershipKey{userID, groupID}
	if _, ok := r.s.memberships[key]; !ok {
		return false, nil
	}
	delete(r.s.memberships, key)
	return true, nil
}

func (r *userRepository) CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for k := range r.s.memberships {
		if k.groupID == groupID {
			n++
		}
	}
	return n, nil
}

var _ repository.UserRepository = (*userRepository)(nil)
