package shared

import (
	"context"
	"net/http"
	"strings"
)

// Caller identity headers forwarded by the web client. They are advisory audit
// metadata, not authentication.
const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// Identity describes who asked for a mutation.
type Identity struct {
	Email string
	Name  string
}

// Actor returns the best display value for audit records.
func (i Identity) Actor() string {
	switch {
	case i.Email != "":
		return i.Email
	case i.Name != "":
		return i.Name
	default:
		return "anonymous"
	}
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}

// IdentityFromRequest reads the identity headers.
func IdentityFromRequest(r *http.Request) Identity {
	return Identity{
		Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
	}
}

// Headers renders the identity as request headers, skipping empty values.
func (i Identity) Headers() http.Header {
	h := http.Header{}
	if i.Email != "" {
		h.Set(HeaderUserEmail, i.Email)
	}
	if i.Name != "" {
		h.Set(HeaderUserName, i.Name)
	}
	return h
}

// IdentityMiddleware copies identity headers into the request context.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithIdentity(r.Context(), IdentityFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
