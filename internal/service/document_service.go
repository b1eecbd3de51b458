package service

import (
	"context"
	"log/slog"

	"github.com/dom/document-viewer/internal/docstore"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/repository"
)

// DocumentService serves documents to end users. Every entry point checks
// the caller's access before touching the filesystem.
type DocumentService struct {
	docRepo repository.DocumentRepository
	access  *AccessService
	store   *docstore.Store
	logger  *slog.Logger
}

func NewDocumentService(docRepo repository.DocumentRepository, access *AccessService, store *docstore.Store, logger *slog.Logger) *DocumentService {
	return &DocumentService{docRepo: docRepo, access: access, store: store, logger: logger}
}

// ListAccessible returns the documents the principal may open that also
// exist on disk, ordered by id.
func (s *DocumentService) ListAccessible(ctx context.Context, p *domain.Principal) ([]domain.DocumentSummary, error) {
	docs, err := s.docRepo.ListByGroupIDs(ctx, p.GroupIDs)
	if err != nil {
		return nil, domain.Internal("failed to list documents", err)
	}

	folders, err := s.store.ListFolders()
	if err != nil {
		return nil, domain.Internal("failed to read documents directory", err)
	}
	onDisk := make(map[string]struct{}, len(folders))
	for _, f := range folders {
		onDisk[f] = struct{}{}
	}

	summaries := make([]domain.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		if _, ok := onDisk[d.ID]; !ok {
			continue
		}
		summaries = append(summaries, domain.DocumentSummary{
			ID:            d.ID,
			Name:          d.Name,
			Description:   d.Description,
			HasOutputTree: s.store.HasTree(d.ID),
			HasPDF:        s.store.HasPDF(d.ID),
			Tags:          d.Metadata.Data().Tags,
		})
	}
	return summaries, nil
}

func (s *DocumentService) authorize(ctx context.Context, p *domain.Principal, id string) error {
	if err := domain.ValidateDocumentID(id); err != nil {
		return err
	}
	ok, err := s.access.HasAccess(ctx, id, p.GroupIDs)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("document access denied", "document_id", id, "user_id", p.UserID)
		return domain.ErrAccessDenied
	}
	return nil
}

// GetTree returns the parsed tree of document id.
func (s *DocumentService) GetTree(ctx context.Context, p *domain.Principal, id string) (*domain.DocumentTree, error) {
	if err := s.authorize(ctx, p, id); err != nil {
		return nil, err
	}
	tree, err := s.store.ReadTree(id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, err
		}
		return nil, domain.Internal("failed to read document", err)
	}
	return tree, nil
}

// ListImages returns the image filenames of document id in lexicographic order.
func (s *DocumentService) ListImages(ctx context.Context, p *domain.Principal, id string) ([]string, error) {
	if err := s.authorize(ctx, p, id); err != nil {
		return nil, err
	}
	images, err := s.store.ListImages(id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, err
		}
		return nil, domain.Internal("failed to read document images", err)
	}
	return images, nil
}

// ImagePath returns the on-disk path of one image the principal may view.
func (s *DocumentService) ImagePath(ctx context.Context, p *domain.Principal, id, filename string) (string, error) {
	if err := s.authorize(ctx, p, id); err != nil {
		return "", err
	}
	return s.store.ImagePath(id, filename)
}

// PDFPath returns the on-disk path of the source PDF of document id.
func (s *DocumentService) PDFPath(ctx context.Context, p *domain.Principal, id string) (string, error) {
	if err := s.authorize(ctx, p, id); err != nil {
		return "", err
	}
	if !s.store.HasPDF(id) {
		return "", domain.ErrAssetNotFound
	}
	return s.store.PDFPath(id)
}
