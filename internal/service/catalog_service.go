package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dom/document-viewer/internal/docstore"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CatalogService is the administrative side of documents: registering
// folders from the document store and editing their records.
type CatalogService struct {
	docRepo   repository.DocumentRepository
	groupRepo repository.GroupRepository
	access    *AccessService
	store     *docstore.Store
	logger    *slog.Logger
}

func NewCatalogService(
	docRepo repository.DocumentRepository,
	groupRepo repository.GroupRepository,
	access *AccessService,
	store *docstore.Store,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		docRepo:   docRepo,
		groupRepo: groupRepo,
		access:    access,
		store:     store,
		logger:    logger,
	}
}

type GroupRef struct {
	ID   uuid.UUID `json:"groupId"`
	Name string    `json:"name"`
}

// DocumentView is a document record with its ACL resolved to group names.
type DocumentView struct {
	*domain.Document
	PermissionGroups []GroupRef `json:"permissionGroups"`
}

type ScanResult struct {
	AvailableFolders  []string `json:"availableFolders"`
	NewFolders        []string `json:"newFolders"`
	ExistingDocuments []string `json:"existingDocuments"`
}

type RegisterDocumentInput struct {
	DocumentID  string
	Name        string
	Description *string
	Metadata    *domain.DocumentMetadata
}

type UpdateDocumentInput struct {
	Name        *string
	Description *string
	Metadata    *domain.DocumentMetadata
	IsActive    *bool
}

type SyncResult struct {
	Registered []string    `json:"registered"`
	Errors     []ItemError `json:"errors"`
}

func (s *CatalogService) view(ctx context.Context, docs []*domain.Document) ([]DocumentView, error) {
	var ids []uuid.UUID
	for _, d := range docs {
		ids = append(ids, d.GroupIDs...)
	}
	groups, err := s.groupRepo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, domain.Internal("failed to load groups", err)
	}
	names := make(map[uuid.UUID]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}

	views := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		refs := make([]GroupRef, 0, len(d.GroupIDs))
		for _, gid := range d.GroupIDs {
			refs = append(refs, GroupRef{ID: gid, Name: names[gid]})
		}
		views = append(views, DocumentView{Document: d, PermissionGroups: refs})
	}
	return views, nil
}

func (s *CatalogService) ListDocuments(ctx context.Context, activeOnly bool) ([]DocumentView, error) {
	docs, err := s.docRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, domain.Internal("failed to list documents", err)
	}
	return s.view(ctx, docs)
}

func (s *CatalogService) GetDocument(ctx context.Context, id string) (*DocumentView, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.view(ctx, []*domain.Document{doc})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *CatalogService) load(ctx context.Context, id string) (*domain.Document, error) {
	if err := domain.ValidateDocumentID(id); err != nil {
		return nil, err
	}
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, domain.Internal("failed to load document", err)
	}
	return doc, nil
}

// Scan compares the folders on disk with the registered active records.
func (s *CatalogService) Scan(ctx context.Context) (*ScanResult, error) {
	folders, err := s.store.ListFolders()
	if err != nil {
		return nil, domain.Internal("failed to scan documents", err)
	}
	docs, err := s.docRepo.List(ctx, true)
	if err != nil {
		return nil, domain.Internal("failed to list documents", err)
	}

	registered := make(map[string]struct{}, len(docs))
	result := &ScanResult{
		AvailableFolders:  folders,
		NewFolders:        []string{},
		ExistingDocuments: make([]string, 0, len(docs)),
	}
	for _, d := range docs {
		registered[d.ID] = struct{}{}
		result.ExistingDocuments = append(result.ExistingDocuments, d.ID)
	}
	for _, f := range folders {
		if _, ok := registered[f]; !ok {
			result.NewFolders = append(result.NewFolders, f)
		}
	}
	return result, nil
}

// Register creates the record for a folder with an empty ACL. A soft-deleted
// record for the same folder is reactivated in place, also with an empty ACL.
func (s *CatalogService) Register(ctx context.Context, actor uuid.UUID, input RegisterDocumentInput) (*domain.Document, error) {
	id := strings.TrimSpace(input.DocumentID)
	if err := domain.ValidateDocumentID(id); err != nil {
		return nil, err
	}
	if !s.store.FolderExists(id) {
		return nil, domain.NewNotFoundError("document folder not found")
	}
	return s.register(ctx, actor, id, input, nil)
}

func (s *CatalogService) register(ctx context.Context, actor uuid.UUID, id string, input RegisterDocumentInput, acl []uuid.UUID) (*domain.Document, error) {
	fileCount, size, err := s.store.FolderStats(id)
	if err != nil {
		return nil, domain.Internal("failed to read document folder", err)
	}
	meta := domain.DocumentMetadata{}
	if input.Metadata != nil {
		meta = *input.Metadata
	}
	meta.FileCount = &fileCount
	meta.Size = &size

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = id
	}

	existing, err := s.docRepo.GetByID(ctx, id)
	switch {
	case err == nil && existing.IsActive:
		return nil, domain.ErrDocumentExists
	case err == nil:
		existing.Name = name
		existing.Description = trimmedOrNil(input.Description)
		existing.FilePath = filepath.Join(s.store.Root, id)
		existing.Metadata = datatypes.NewJSONType(meta)
		existing.IsActive = true
		if err := s.docRepo.Update(ctx, existing); err != nil {
			return nil, domain.Internal("failed to reactivate document", err)
		}
		if err := s.access.ReplacePermissions(ctx, id, acl); err != nil {
			return nil, err
		}
		existing.GroupIDs = uniqueIDs(acl)
		s.logger.Info("document reactivated", "document_id", id)
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, domain.Internal("failed to load document", err)
	}

	now := time.Now()
	doc := &domain.Document{
		ID:          id,
		Name:        name,
		Description: trimmedOrNil(input.Description),
		FilePath:    filepath.Join(s.store.Root, id),
		GroupIDs:    uniqueIDs(acl),
		Metadata:    datatypes.NewJSONType(meta),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actor != uuid.Nil {
		doc.CreatedBy = &actor
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, domain.ErrDocumentExists
		case errors.Is(err, repository.ErrReferenced):
			return nil, domain.ErrUnknownGroups
		}
		return nil, domain.Internal("failed to create document", err)
	}
	s.logger.Info("document registered", "document_id", id, "file_count", fileCount)
	return doc, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, input UpdateDocumentInput) (*domain.Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.NewValidationError("document name is required")
		}
		doc.Name = name
	}
	if input.Description != nil {
		doc.Description = trimmedOrNil(input.Description)
	}
	if input.Metadata != nil {
		current := doc.Metadata.Data()
		next := *input.Metadata
		if next.FileCount == nil {
			next.FileCount = current.FileCount
		}
		if next.Size == nil {
			next.Size = current.Size
		}
		doc.Metadata = datatypes.NewJSONType(next)
	}
	if input.IsActive != nil {
		doc.IsActive = *input.IsActive
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, domain.Internal("failed to update document", err)
	}
	return doc, nil
}

// Delete soft-deletes the record. The folder and the ACL are kept.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !doc.IsActive {
		return domain.ErrDocumentNotFound
	}
	doc.IsActive = false
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return domain.Internal("failed to delete document", err)
	}
	s.logger.Info("document deactivated", "document_id", id)
	return nil
}

func (s *CatalogService) BulkDelete(ctx context.Context, ids []string) *BulkDeleteResult {
	result := &BulkDeleteResult{Errors: []ItemError{}}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: id, Error: domain.MessageOf(err)})
			continue
		}
		result.DeletedCount++
	}
	return result
}

// Sync registers every unregistered folder with the admin group in its ACL.
func (s *CatalogService) Sync(ctx context.Context, actor uuid.UUID) (*SyncResult, error) {
	admin, err := s.groupRepo.GetByName(ctx, domain.AdminGroupName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewValidationError("the %s group does not exist; create it first", domain.AdminGroupName)
		}
		return nil, domain.Internal("failed to load admin group", err)
	}

	scan, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Registered: []string{}, Errors: []ItemError{}}
	for _, id := range scan.NewFolders {
		if err := domain.ValidateDocumentID(id); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: id, Error: domain.MessageOf(err)})
			continue
		}
		_, err := s.register(ctx, actor, id, RegisterDocumentInput{DocumentID: id}, []uuid.UUID{admin.ID})
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ID: id, Error: domain.MessageOf(err)})
			continue
		}
		result.Registered = append(result.Registered, id)
	}
	return result, nil
}
