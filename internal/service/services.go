package service

import (
	"log/slog"

	"github.com/dom/document-viewer/internal/docstore"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/dom/document-viewer/internal/security"
)

type Services struct {
	Auth      *AuthService
	Access    *AccessService
	Documents *DocumentService
	Catalog   *CatalogService
	Admin     *AdminService
}

func NewServices(repos *repository.Repositories, store *docstore.Store, hasher *security.Hasher, logger *slog.Logger, opts ...AuthOption) *Services {
	auth := NewAuthService(repos.User, repos.Group, repos.Session, hasher, logger, opts...)
	access := NewAccessService(repos.Document, repos.Group)
	return &Services{
		Auth:      auth,
		Access:    access,
		Documents: NewDocumentService(repos.Document, access, store, logger),
		Catalog:   NewCatalogService(repos.Document, repos.Group, access, store, logger),
		Admin:     NewAdminService(repos.User, repos.Group, auth, hasher, logger),
	}
}
