package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/boothboard/internal/api/middleware"
	"github.com/kiranshivaraju/boothboard/internal/api/response"
	"github.com/kiranshivaraju/boothboard/internal/store"
	"github.com/kiranshivaraju/boothboard/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// API key scopes.
const (
	ScopeRead  = "read"
	ScopeAdmin = "admin"
)

const (
	rawKeyPrefix  = "bb_"
	rawKeyBytes   = 24
	maxKeyNameLen = 100
)

// KeyStore defines the API key persistence the admin handlers depend on.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, clientID *uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

type createKeyRequest struct {
	Name     string     `json:"name"`
	Scopes   []string   `json:"scopes"`
	ClientID *uuid.UUID `json:"client_id"`
}

type keyResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key,omitempty"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	ClientID   *uuid.UUID `json:"client_id,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newKeyResponse(k *models.APIKey) keyResponse {
	return keyResponse{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		Scopes:     k.Scopes,
		ClientID:   k.ClientID,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key appears only in this response. Admins bound to a client can
// only mint keys for that client.
func NewCreateKeyHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || len(req.Name) > maxKeyNameLen {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("name is required and at most %d characters", maxKeyNameLen), nil)
			return
		}
		scopes, err := normalizeScopes(req.Scopes)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		callerScope, _ := mw.GetClientScope(r)
		clientID := req.ClientID
		if callerScope != nil {
			if clientID != nil && *clientID != *callerScope {
				response.Error(w, http.StatusForbidden, "FORBIDDEN", "Key is not allowed to manage this client", nil)
				return
			}
			clientID = callerScope
		}

		rawKey, err := generateRawKey()
		if err != nil {
			slog.Error("generate api key failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("hash api key failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
			return
		}

		now := time.Now().UTC()
		key := &models.APIKey{
			ID:        uuid.New(),
			ClientID:  clientID,
			Name:      req.Name,
			KeyHash:   string(hash),
			KeyPrefix: rawKey[:mw.KeyPrefixLen],
			Scopes:    scopes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateAPIKey(r.Context(), key); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_KEY", "API key already exists", nil)
				return
			}
			slog.Error("create api key failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
			return
		}

		slog.Info("api key created", "key_id", key.ID, "key_prefix", key.KeyPrefix, "scopes", key.Scopes)
		resp := newKeyResponse(key)
		resp.Key = rawKey
		response.Created(w, resp)
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerScope, _ := mw.GetClientScope(r)
		keys, err := s.ListAPIKeys(r.Context(), callerScope)
		if err != nil {
			slog.Error("list api keys failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list keys", nil)
			return
		}
		out := make([]keyResponse, len(keys))
		for i, k := range keys {
			out[i] = newKeyResponse(k)
		}
		response.JSON(w, out)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "keyID must be a UUID", nil)
			return
		}

		// Keys of other clients are invisible to a client-bound admin.
		if callerScope, _ := mw.GetClientScope(r); callerScope != nil {
			visible, err := s.ListAPIKeys(r.Context(), callerScope)
			if err != nil {
				slog.Error("list api keys failed", "error", err)
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke key", nil)
				return
			}
			if !containsKey(visible, keyID) {
				response.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found", nil)
				return
			}
		}

		if err := s.RevokeAPIKey(r.Context(), keyID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found", nil)
				return
			}
			slog.Error("revoke api key failed", "error", err, "key_id", keyID)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke key", nil)
			return
		}
		slog.Info("api key revoked", "key_id", keyID)
		response.NoContent(w)
	}
}

func containsKey(keys []*models.APIKey, id uuid.UUID) bool {
	for _, k := range keys {
		if k.ID == id {
			return true
		}
	}
	return false
}

// normalizeScopes validates scopes, drops duplicates and defaults to read.
func normalizeScopes(in []string) ([]string, error) {
	if len(in) == 0 {
		return []string{ScopeRead}, nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != ScopeRead && s != ScopeAdmin {
			return nil, fmt.Errorf("unknown scope %q", s)
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

func generateRawKey() (string, error) {
	b := make([]byte, rawKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return rawKeyPrefix + hex.EncodeToString(b), nil
}
