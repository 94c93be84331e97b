package daemon

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/windvault/windvault/internal/secrets"
)

type identityContextKey struct{}

// ControlAuth resolves bearer tokens to identities for control traffic.
//
// Every /v1/* request must carry a token from the bundle; the resolved
// identity (subject, role, tenant) is attached to the request context and is
// the only source of tenant scoping for handlers.
type ControlAuth struct {
	bundle secrets.Bundle
}

// NewControlAuth creates an auth middleware from a token bundle.
func NewControlAuth(bundle secrets.Bundle) (*ControlAuth, error) {
	if len(bundle.Tokens) == 0 {
		return nil, errors.New("token bundle has no tokens")
	}
	return &ControlAuth{bundle: bundle}, nil
}

// Wrap returns a handler that enforces auth for /v1/* requests (healthz is exempt).
func (a *ControlAuth) Wrap(next http.Handler) http.Handler {
	if a == nil || next == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil || r.URL == nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		path := r.URL.Path
		if path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if path != "/v1" && !strings.HasPrefix(path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		identity, ok := a.lookup(token)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// lookup does a constant-time scan over the bundle tokens.
func (a *ControlAuth) lookup(token string) (secrets.Identity, bool) {
	var found secrets.Identity
	matched := 0
	for candidate, id := range a.bundle.Tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			found = id
			matched = 1
		}
	}
	if matched != 1 || !found.Valid() {
		return secrets.Identity{}, false
	}
	return found, true
}

// WithIdentity attaches an identity to the context.
func WithIdentity(ctx context.Context, identity secrets.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFrom extracts the caller identity from the context.
func IdentityFrom(ctx context.Context) (secrets.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(secrets.Identity)
	if !ok || !identity.Valid() {
		return secrets.Identity{}, false
	}
	return identity, true
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
