package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/document-viewer/internal/api/respond"
	"github.com/dom/document-viewer/internal/domain"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	tokenKey     contextKey = "sessionToken"
)

// SessionValidator resolves a bearer token to the current principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*domain.Principal, error)
}

// Auth requires "Authorization: Bearer <token>".
func Auth(v SessionValidator, errs *respond.Errors) func(http.Handler) http.Handler {
	return authenticate(v, errs, false)
}

// AssetAuth also accepts the token as a "token" query parameter, so asset
// URLs can be used directly in img and iframe elements.
func AssetAuth(v SessionValidator, errs *respond.Errors) func(http.Handler) http.Handler {
	return authenticate(v, errs, true)
}

func authenticate(v SessionValidator, errs *respond.Errors, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok && allowQuery {
				token = r.URL.Query().Get("token")
				ok = token != ""
			}
			if !ok {
				errs.Write(w, r, domain.ErrMissingToken)
				return
			}

			principal, err := v.ValidateSession(r.Context(), token)
			if err != nil {
				errs.Write(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal, token)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// RequireGroup rejects principals outside the named group.
func RequireGroup(name string, errs *respond.Errors) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				errs.Write(w, r, domain.ErrMissingToken)
				return
			}
			if !p.IsInGroup(name) {
				if name == domain.AdminGroupName {
					errs.Write(w, r, domain.ErrAdminRequired)
				} else {
					errs.Write(w, r, domain.NewForbiddenError("access denied: %s group membership required", name))
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(errs *respond.Errors) func(http.Handler) http.Handler {
	return RequireGroup(domain.AdminGroupName, errs)
}

func WithPrincipal(ctx context.Context, p *domain.Principal, token string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, tokenKey, token)
}

func PrincipalFrom(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*domain.Principal)
	return p, ok && p != nil
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
