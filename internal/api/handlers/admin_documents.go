package handlers

import (
	"net/http"

	"github.com/dom/document-viewer/internal/api/respond"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/service"
	"github.com/go-chi/chi/v5"
)

type CreateDocumentRequest struct {
	DocumentID  string                   `json:"documentId"`
	Name        string                   `json:"name"`
	Description *string                  `json:"description"`
	Metadata    *domain.DocumentMetadata `json:"metadata"`
}

type UpdateDocumentRequest struct {
	Name        *string                  `json:"name"`
	Description *string                  `json:"description"`
	Metadata    *domain.DocumentMetadata `json:"metadata"`
	IsActive    *bool                    `json:"isActive"`
}

type PermissionRequest struct {
	GroupID string `json:"groupId"`
}

type ReplacePermissionsRequest struct {
	GroupIDs []string `json:"groupIds"`
}

func (h *AdminHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.catalogService.ListDocuments(r.Context(), activeOnly(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.List(w, docs, len(docs))
}

func (h *AdminHandler) ScanDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalogService.Scan(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "", result)
}

func (h *AdminHandler) SyncDocuments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	result, err := h.catalogService.Sync(r.Context(), p.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "documents synchronized", result)
}

func (h *AdminHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req CreateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if req.DocumentID == "" {
		h.errs.Write(w, r, domain.NewValidationError("documentId is required"))
		return
	}

	doc, err := h.catalogService.Register(r.Context(), p.UserID, service.RegisterDocumentInput{
		DocumentID:  req.DocumentID,
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.Created(w, "document created successfully", doc)
}

func (h *AdminHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.catalogService.GetDocument(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "", doc)
}

func (h *AdminHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	doc, err := h.catalogService.Update(r.Context(), chi.URLParam(r, "documentId"), service.UpdateDocumentInput{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "document updated successfully", doc)
}

func (h *AdminHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.Delete(r.Context(), chi.URLParam(r, "documentId")); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "document deleted successfully", nil)
}

func (h *AdminHandler) BulkDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := h.bulkIDs(w, r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	result := h.catalogService.BulkDelete(r.Context(), ids)
	respond.OK(w, bulkMessage(result), result)
}

func (h *AdminHandler) AddPermission(w http.ResponseWriter, r *http.Request) {
	var req PermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	ids, err := parseUUIDs([]string{req.GroupID}, "groupId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if err := h.accessService.AddPermission(r.Context(), chi.URLParam(r, "documentId"), ids[0]); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "permission added successfully", nil)
}

func (h *AdminHandler) RemovePermission(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuidParam(r, "groupId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := h.accessService.RemovePermission(r.Context(), chi.URLParam(r, "documentId"), groupID); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "permission removed successfully", nil)
}

func (h *AdminHandler) ReplacePermissions(w http.ResponseWriter, r *http.Request) {
	var req ReplacePermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if req.GroupIDs == nil {
		h.errs.Write(w, r, domain.NewValidationError("groupIds must be an array"))
		return
	}
	ids, err := parseUUIDs(req.GroupIDs, "groupIds")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if err := h.accessService.ReplacePermissions(r.Context(), chi.URLParam(r, "documentId"), ids); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "permissions updated successfully", nil)
}
