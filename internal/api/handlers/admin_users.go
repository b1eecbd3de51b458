package handlers

import (
	"net/http"

	"github.com/dom/document-viewer/internal/api/respond"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/service"
	"github.com/google/uuid"
)

type AdminHandler struct {
	adminService   *service.AdminService
	catalogService *service.CatalogService
	accessService  *service.AccessService
	errs           *respond.Errors
}

func NewAdminHandler(services *service.Services, errs *respond.Errors) *AdminHandler {
	return &AdminHandler{
		adminService:   services.Admin,
		catalogService: services.Catalog,
		accessService:  services.Access,
		errs:           errs,
	}
}

type CreateUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	FullName *string  `json:"fullName"`
	GroupIDs []string `json:"groupIds"`
}

type UpdateUserRequest struct {
	Email    *string   `json:"email"`
	FullName *string   `json:"fullName"`
	Password *string   `json:"password"`
	GroupIDs *[]string `json:"groupIds"`
	IsActive *bool     `json:"isActive"`
}

type BulkIDsRequest struct {
	IDs []string `json:"ids"`
}

type GroupIDsRequest struct {
	GroupIDs []string `json:"groupIds"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context(), activeOnly(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.List(w, users, len(users))
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		h.errs.Write(w, r, domain.NewValidationError("username, email, and password are required"))
		return
	}
	groupIDs, err := parseUUIDs(req.GroupIDs, "groupIds")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	user, err := h.adminService.CreateUser(r.Context(), p.UserID, service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		GroupIDs: groupIDs,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.Created(w, "user created successfully", user)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "userId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	user, err := h.adminService.GetUser(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "", user)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	id, err := uuidParam(r, "userId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	input := service.UpdateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		IsActive: req.IsActive,
	}
	if req.GroupIDs != nil {
		ids, err := parseUUIDs(*req.GroupIDs, "groupIds")
		if err != nil {
			h.errs.Write(w, r, err)
			return
		}
		input.GroupIDs = &ids
	}

	user, err := h.adminService.UpdateUser(r.Context(), p.UserID, id, input)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "user updated successfully", user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	id, err := uuidParam(r, "userId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := h.adminService.DeleteUser(r.Context(), p.UserID, id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "user deleted successfully", nil)
}

func (h *AdminHandler) BulkDeleteUsers(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
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

	result := h.adminService.BulkDeleteUsers(r.Context(), p.UserID, parsed)
	respond.OK(w, bulkMessage(result), result)
}

func (h *AdminHandler) AddUserToGroup(w http.ResponseWriter, r *http.Request) {
	userID, groupID, err := h.membershipParams(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	added, err := h.adminService.AddUserToGroup(r.Context(), userID, groupID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if !added {
		respond.OK(w, "user is already in group", nil)
		return
	}
	respond.OK(w, "user added to group successfully", nil)
}

func (h *AdminHandler) RemoveUserFromGroup(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	userID, groupID, err := h.membershipParams(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	removed, err := h.adminService.RemoveUserFromGroup(r.Context(), p.UserID, userID, groupID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if !removed {
		respond.OK(w, "user is not in group", nil)
		return
	}
	respond.OK(w, "user removed from group successfully", nil)
}

func (h *AdminHandler) AddUserToGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req GroupIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if len(req.GroupIDs) == 0 {
		h.errs.Write(w, r, domain.NewValidationError("groupIds must be a non-empty array"))
		return
	}
	groupIDs, err := parseUUIDs(req.GroupIDs, "groupIds")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	result, err := h.adminService.AddUserToGroups(r.Context(), userID, groupIDs)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "groups updated", result)
}

func (h *AdminHandler) membershipParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := uuidParam(r, "userId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	groupID, err := uuidParam(r, "groupId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, groupID, nil
}

func (h *AdminHandler) bulkIDs(w http.ResponseWriter, r *http.Request) ([]string, error) {
	var req BulkIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if len(req.IDs) == 0 {
		return nil, domain.NewValidationError("ids must be a non-empty array")
	}
	return req.IDs, nil
}

func bulkMessage(result *service.BulkDeleteResult) string {
	if len(result.Errors) == 0 {
		return "all items deleted successfully"
	}
	return "some items could not be deleted"
}
