// Package respond writes the JSON envelope shared by every endpoint:
// {"success": bool, "message": "...", "data": ..., "count": n}.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dom/document-viewer/internal/domain"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func List(w http.ResponseWriter, data any, count int) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count})
}

func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// Status maps an error kind to its HTTP status.
func Status(kind domain.Kind) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation, domain.KindConflict:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Errors writes failures. Internal errors are logged in full; their detail
// reaches the client only when ExposeInternal is set.
type Errors struct {
	Logger         *slog.Logger
	ExposeInternal bool
}

func (e *Errors) Write(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := Status(kind)

	if kind != domain.KindInternal {
		Fail(w, status, domain.MessageOf(err))
		return
	}

	e.Logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"error", err,
	)
	if e.ExposeInternal {
		Fail(w, status, err.Error())
		return
	}
	Fail(w, status, "internal server error")
}
