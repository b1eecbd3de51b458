package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
)

// AccessService evaluates and edits document ACLs.
type AccessService struct {
	docRepo   repository.DocumentRepository
	groupRepo repository.GroupRepository
}

func NewAccessService(docRepo repository.DocumentRepository, groupRepo repository.GroupRepository) *AccessService {
	return &AccessService{docRepo: docRepo, groupRepo: groupRepo}
}

// HasAccess reports whether the document exists, is active, and lists at
// least one of groupIDs in its ACL.
func (s *AccessService) HasAccess(ctx context.Context, documentID string, groupIDs []uuid.UUID) (bool, error) {
	if len(groupIDs) == 0 {
		return false, nil
	}
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, domain.Internal("failed to load document", err)
	}
	return doc.IsActive && doc.PermitsAny(groupIDs), nil
}

func (s *AccessService) document(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, domain.Internal("failed to load document", err)
	}
	return doc, nil
}

// AddPermission grants groupID access. Granting an existing entry is a no-op.
func (s *AccessService) AddPermission(ctx context.Context, documentID string, groupID uuid.UUID) error {
	if _, err := s.document(ctx, documentID); err != nil {
		return err
	}
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewValidationError("group %s does not exist", groupID)
		}
		return domain.Internal("failed to load group", err)
	}
	if _, err := s.docRepo.AddPermission(ctx, documentID, groupID); err != nil {
		return s.translate(err)
	}
	return nil
}

// RemovePermission revokes groupID. Revoking a missing entry is a no-op.
func (s *AccessService) RemovePermission(ctx context.Context, documentID string, groupID uuid.UUID) error {
	if _, err := s.document(ctx, documentID); err != nil {
		return err
	}
	if _, err := s.docRepo.RemovePermission(ctx, documentID, groupID); err != nil {
		return domain.Internal("failed to remove permission", err)
	}
	return nil
}

// ReplacePermissions swaps the whole ACL. Either every group exists and the
// new ACL is stored, or nothing changes.
func (s *AccessService) ReplacePermissions(ctx context.Context, documentID string, groupIDs []uuid.UUID) error {
	if _, err := s.document(ctx, documentID); err != nil {
		return err
	}

	ids := uniqueIDs(groupIDs)
	if err := s.requireGroups(ctx, ids); err != nil {
		return err
	}
	if err := s.docRepo.ReplacePermissions(ctx, documentID, ids); err != nil {
		return s.translate(err)
	}
	return nil
}

// requireGroups fails with a validation error naming every id that does not
// resolve to a group.
func (s *AccessService) requireGroups(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	groups, err := s.groupRepo.GetByIDs(ctx, ids)
	if err != nil {
		return domain.Internal("failed to load groups", err)
	}
	return missingGroups(ids, groups)
}

func (s *AccessService) translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrDocumentNotFound
	case errors.Is(err, repository.ErrReferenced):
		return domain.ErrUnknownGroups
	}
	return domain.Internal("failed to update permissions", err)
}

func missingGroups(ids []uuid.UUID, found []*domain.UserGroup) error {
	if len(found) == len(ids) {
		return nil
	}
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, g := range found {
		have[g.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return &domain.Error{
		Kind:    domain.KindValidation,
		Message: fmt.Sprintf("%s: %s", domain.ErrUnknownGroups.Message, strings.Join(missing, ", ")),
		Err:     domain.ErrUnknownGroups,
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
