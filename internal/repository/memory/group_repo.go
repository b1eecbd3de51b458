package memory

import (
	"context"
	"sort"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
)

type groupRepository struct {
	s *Store
}

func (r *groupRepository) nameTaken(group *domain.UserGroup) bool {
	for id, g := range r.s.groups {
		if id != group.ID && g.Name == group.Name {
			return true
		}
	}
	return false
}

func (r *groupRepository) Create(ctx context.Context, group *domain.UserGroup) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if _, ok := r.s.groups[group.ID]; ok || r.nameTaken(group) {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	stored := *group
	r.s.groups[group.ID] = &stored
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserGroup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (r *groupRepository) GetByName(ctx context.Context, name string) (*domain.UserGroup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, g := range r.s.groups {
		if g.Name == name {
			out := *g
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *groupRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.UserGroup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	groups := []*domain.UserGroup{}
	for _, id := range dedupe(ids) {
		if g, ok := r.s.groups[id]; ok {
			out := *g
			groups = append(groups, &out)
		}
	}
	sortGroups(groups)
	return groups, nil
}

func (r *groupRepository) List(ctx context.Context, activeOnly bool) ([]*domain.UserGroup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	groups := make([]*domain.UserGroup, 0, len(r.s.groups))
	for _, g := range r.s.groups {
		if activeOnly && !g.IsActive {
			continue
		}
		out := *g
		groups = append(groups, &out)
	}
	sortGroups(groups)
	return groups, nil
}

func (r *groupRepository) Update(ctx context.Context, group *domain.UserGroup) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[group.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.nameTaken(group) {
		return repository.ErrDuplicate
	}
	group.UpdatedAt = r.s.now()
	stored := *group
	r.s.groups[group.ID] = &stored
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[id]; !ok {
		return false, nil
	}
	for k := range r.s.memberships {
		if k.groupID == id {
			return false, repository.ErrReferenced
		}
	}
	for k := range r.s.permissions {
		if k.groupID == id {
			delete(r.s.permissions, k)
		}
	}
	delete(r.s.groups, id)
	return true, nil
}

func sortGroups(groups []*domain.UserGroup) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
}

var _ repository.GroupRepository = (*groupRepository)(nil)
