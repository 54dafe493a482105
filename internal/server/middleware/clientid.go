package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/plainly/plainly/internal/core/store"
)

// ForwardedForHeader is consulted first when identifying a caller.
const ForwardedForHeader = "X-Forwarded-For"

type clientIDContextKey struct{}

// ClientID resolves the caller identifier once per request and stores it in
// the context for the rate limiter.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIDContextKey{}, ResolveClientID(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientID returns the id stored by ClientID, resolving it from r when the
// middleware did not run.
func GetClientID(r *http.Request) string {
	if r == nil {
		return store.UnknownClient
	}
	if id, ok := r.Context().Value(clientIDContextKey{}).(string); ok && id != "" {
		return id
	}
	return ResolveClientID(r)
}

// ResolveClientID returns the first X-Forwarded-For entry, else the host of
// RemoteAddr, else "unknown". The header is trusted as sent.
func ResolveClientID(r *http.Request) string {
	if r == nil {
		return store.UnknownClient
	}
	if forwarded := r.Header.Get(ForwardedForHeader); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return store.UnknownClient
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		if host != "" {
			return host
		}
		return store.UnknownClient
	}
	return remote
}
