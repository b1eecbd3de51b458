package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dom/document-viewer/internal/api/handlers"
	"github.com/dom/document-viewer/internal/api/middleware"
	"github.com/dom/document-viewer/internal/api/respond"
	"github.com/dom/document-viewer/internal/config"
	"github.com/dom/document-viewer/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	errs := &respond.Errors{Logger: logger, ExposeInternal: cfg.IsDevelopment()}

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Fail(w, http.StatusNotFound, "cannot "+r.Method+" "+r.URL.Path)
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.OK(w, "server is running", map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, errs)
	documentHandler := handlers.NewDocumentHandler(services.Documents, errs)
	adminHandler := handlers.NewAdminHandler(services, errs)

	requireSession := middleware.Auth(services.Auth, errs)

	// Assets. Same ACL as the document API; the token may be a query parameter.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AssetAuth(services.Auth, errs))
		r.Get("/images/{documentId}/{filename}", documentHandler.Image)
		r.Get("/pdfs/{file}", documentHandler.PDF)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/validate", authHandler.Validate)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
				r.Put("/change-password", authHandler.ChangePassword)
				r.Put("/update-profile", authHandler.UpdateProfile)
			})
		})

		r.Route("/documents", func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/", documentHandler.List)
			r.Get("/{id}", documentHandler.Get)
			r.Get("/{id}/images", documentHandler.Images)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireSession)
			r.Use(middleware.RequireAdmin(errs))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Post("/", adminHandler.CreateUser)
				r.Post("/bulk-delete", adminHandler.BulkDeleteUsers)
				r.Get("/{userId}", adminHandler.GetUser)
				r.Put("/{userId}", adminHandler.UpdateUser)
				r.Delete("/{userId}", adminHandler.DeleteUser)
				r.Post("/{userId}/groups", adminHandler.AddUserToGroups)
				r.Post("/{userId}/groups/{groupId}", adminHandler.AddUserToGroup)
				r.Delete("/{userId}/groups/{groupId}", adminHandler.RemoveUserFromGroup)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", adminHandler.ListGroups)
				r.Post("/", adminHandler.CreateGroup)
				r.Post("/bulk-delete", adminHandler.BulkDeleteGroups)
				r.Get("/{groupId}", adminHandler.GetGroup)
				r.Put("/{groupId}", adminHandler.UpdateGroup)
				r.Delete("/{groupId}", adminHandler.DeleteGroup)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", adminHandler.ListDocuments)
				r.Post("/", adminHandler.CreateDocument)
				r.Get("/scan", adminHandler.ScanDocuments)
				r.Post("/sync", adminHandler.SyncDocuments)
				r.Post("/bulk-delete", adminHandler.BulkDeleteDocuments)
				r.Get("/{documentId}", adminHandler.GetDocument)
				r.Put("/{documentId}", adminHandler.UpdateDocument)
				r.Delete("/{documentId}", adminHandler.DeleteDocument)
				r.Post("/{documentId}/permissions", adminHandler.AddPermission)
				r.Put("/{documentId}/permissions", adminHandler.ReplacePermissions)
				r.Delete("/{documentId}/permissions/{groupId}", adminHandler.RemovePermission)
			})
		})
	})

	return r
}
