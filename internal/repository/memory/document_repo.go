package memory

import (
	"context"
	"sort"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
)

type documentRepository struct {
	s *Store
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[doc.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, gid := range doc.GroupIDs {
		if _, ok := r.s.groups[gid]; !ok {
			return repository.ErrReferenced
		}
	}
	now := r.s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	stored := *doc
	stored.GroupIDs = nil
	r.s.documents[doc.ID] = &stored
	for _, gid := range dedupe(doc.GroupIDs) {
		r.s.permissions[permissionKey{doc.ID, gid}] = r.s.stamp()
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.copyDocument(d), nil
}

func (r *documentRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Document, error) {
	return r.list(func(d *domain.Document) bool { return !activeOnly || d.IsActive }), nil
}

func (r *documentRepository) ListByGroupIDs(ctx context.Context, groupIDs []uuid.UUID) ([]*domain.Document, error) {
	if len(groupIDs) == 0 {
		return []*domain.Document{}, nil
	}
	wanted := make(map[uuid.UUID]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = struct{}{}
	}
	return r.list(func(d *domain.Document) bool {
		if !d.IsActive {
			return false
		}
		for k := range r.s.permissions {
			if k.documentID != d.ID {
				continue
			}
			if _, ok := wanted[k.groupID]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (r *documentRepository) list(match func(*domain.Document) bool) []*domain.Document {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	docs := []*domain.Document{}
	for _, d := range r.s.documents {
		if match(d) {
			docs = append(docs, r.s.copyDocument(d))
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (r *documentRepository) Update(ctx context.Context, doc *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[doc.ID]; !ok {
		return repository.ErrNotFound
	}
	doc.UpdatedAt = r.s.now()
	stored := *doc
	stored.GroupIDs = nil
	r.s.documents[doc.ID] = &stored
	return nil
}

func (r *documentRepository) AddPermission(ctx context.Context, documentID string, groupID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[documentID]; !ok {
		return false, repository.ErrReferenced
	}
	if _, ok := r.s.groups[groupID]; !ok {
		return false, repository.ErrReferenced
	}
	key := permissionKey{documentID, groupID}
	if _, ok := r.s.permissions[key]; ok {
		return false, nil
	}
	r.s.permissions[key] = r.s.stamp()
	return true, nil
}

func (r *documentRepository) RemovePermission(ctx context.Context, documentID string, groupID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := permissionKey{documentID, groupID}
	if _, ok := r.s.permissions[key]; !ok {
		return false, nil
	}
	delete(r.s.permissions, key)
	return true, nil
}

func (r *documentRepository) ReplacePermissions(ctx context.Context, documentID string, groupIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	doc, ok := r.s.documents[documentID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, gid := range groupIDs {
		if _, ok := r.s.groups[gid]; !ok {
			return repository.ErrReferenced
		}
	}
	for k := range r.s.permissions {
		if k.documentID == documentID {
			delete(r.s.permissions, k)
		}
	}
	for _, gid := range dedupe(groupIDs) {
		r.s.permissions[permissionKey{documentID, gid}] = r.s.stamp()
	}
	doc.UpdatedAt = r.s.now()
	return nil
}

var _ repository.DocumentRepository = (*documentRepository)(nil)
