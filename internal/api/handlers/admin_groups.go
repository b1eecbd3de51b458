package handlers

import (
	"net/http"

	"github.com/dom/document-viewer/internal/api/respond"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/service"
)

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (h *AdminHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.adminService.ListGroups(r.Context(), activeOnly(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.List(w, groups, len(groups))
}

func (h *AdminHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req CreateGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if req.Name == "" {
		h.errs.Write(w, r, domain.NewValidationError("group name is required"))
		return
	}

	group, err := h.adminService.CreateGroup(r.Context(), p.UserID, service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.Created(w, "group created successfully", group)
}

func (h *AdminHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "groupId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	group, err := h.adminService.GetGroup(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "", group)
}

func (h *AdminHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "groupId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req UpdateGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	group, err := h.adminService.UpdateGroup(r.Context(), id, service.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "group updated successfully", group)
}

func (h *AdminHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "groupId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := h.adminService.DeleteGroup(r.Context(), id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "group deleted successfully", nil)
}

func (h *AdminHandler) BulkDeleteGroups(w http.ResponseWriter, r *http.Request) {
	ids, err := h.bulkIDs(w, r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	parsed, err := parseUUIDs(ids, "ids")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	result := h.adminService.BulkDeleteGroups(r.Context(), parsed)
	respond.OK(w, bulkMessage(result), result)
}
