package handlers

import (
	"net/http"
	"strings"

	"github.com/dom/document-viewer/internal/api/respond"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentHandler struct {
	documentService *service.DocumentService
	errs            *respond.Errors
}

func NewDocumentHandler(documentService *service.DocumentService, errs *respond.Errors) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, errs: errs}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	docs, err := h.documentService.ListAccessible(r.Context(), p)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.List(w, docs, len(docs))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	tree, err := h.documentService.GetTree(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "", tree)
}

func (h *DocumentHandler) Images(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	images, err := h.documentService.ListImages(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.List(w, images, len(images))
}

// Image serves /images/{documentId}/{filename}.
func (h *DocumentHandler) Image(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	path, err := h.documentService.ImagePath(r.Context(), p, chi.URLParam(r, "documentId"), chi.URLParam(r, "filename"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeFile(w, r, path)
}

// PDF serves /pdfs/{file} where file is "<documentId>.pdf".
func (h *DocumentHandler) PDF(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	id, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".pdf")
	if !ok {
		h.errs.Write(w, r, domain.ErrAssetNotFound)
		return
	}
	path, err := h.documentService.PDFPath(r.Context(), p, id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeFile(w, r, path)
}
