package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	clientScopeKey  contextKey = "client_scope"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
)

// clientScope is what an authenticated key may see. A nil ClientID sees every client.
type clientScope struct {
	ClientID *uuid.UUID
}

// SetClientScope records the client an authenticated request is restricted to.
// A nil clientID grants access to every client.
func SetClientScope(ctx context.Context, clientID *uuid.UUID) context.Context {
	return context.WithValue(ctx, clientScopeKey, clientScope{ClientID: clientID})
}

// GetClientScope returns the client restriction of the request. ok is false
// when the request was not authenticated.
func GetClientScope(r *http.Request) (clientID *uuid.UUID, ok bool) {
	scope, ok := r.Context().Value(clientScopeKey).(clientScope)
	return scope.ClientID, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}

// HasScope reports whether the authenticated key carries scope.
func HasScope(r *http.Request, scope string) bool {
	for _, s := range getScopes(r) {
		if s == scope {
			return true
		}
	}
	return false
}

// ExportedKeyPrefixKey returns the context key for key_prefix (for testing).
func ExportedKeyPrefixKey() contextKey {
	return keyPrefixKey
}
