package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dom/document-viewer/internal/api/middleware"
	"github.com/dom/document-viewer/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		return domain.NewValidationError("invalid request body")
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("invalid %s", name)
	}
	return id, nil
}

func parseUUIDs(raw []string, field string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, domain.NewValidationError("invalid id in %s: %q", field, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// principal returns the authenticated caller. Routes using it sit behind
// middleware.Auth, so a missing principal is a wiring bug.
func principal(r *http.Request) (*domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return nil, domain.ErrMissingToken
	}
	return p, nil
}

func activeOnly(r *http.Request) bool {
	return r.URL.Query().Get("activeOnly") == "true"
}
