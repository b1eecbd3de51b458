package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/dom/document-viewer/internal/api/middleware"
	"github.com/dom/document-viewer/internal/api/respond"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/dom/document-viewer/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	errs        *respond.Errors
}

func NewAuthHandler(authService *service.AuthService, errs *respond.Errors) *AuthHandler {
	return &AuthHandler{authService: authService, errs: errs}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ValidateRequest struct {
	SessionToken string `json:"sessionToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UpdateProfileRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		h.errs.Write(w, r, domain.NewValidationError("username and password are required"))
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	respond.OK(w, "login successful", result)
}

func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if req.SessionToken == "" {
		h.errs.Write(w, r, domain.NewValidationError("session token is required"))
		return
	}

	p, err := h.authService.ValidateSession(r.Context(), req.SessionToken)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "", p)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authService.Logout(r.Context(), middleware.TokenFrom(r.Context())); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "logout successful", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "", p)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		h.errs.Write(w, r, domain.NewValidationError("current password and new password are required"))
		return
	}

	err = h.authService.ChangePassword(r.Context(), p.UserID, middleware.TokenFrom(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "password changed successfully", nil)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), p.UserID, service.ProfileInput{
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	respond.OK(w, "profile updated successfully", user)
}

// clientIP prefers the address set by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
