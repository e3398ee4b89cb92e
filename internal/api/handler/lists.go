package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/internal/api/response"
	"github.com/kiranshivaraju/boothboard/internal/store"
	"github.com/kiranshivaraju/boothboard/pkg/models"
)

// ClientLister defines the client queries the handlers depend on.
type ClientLister interface {
	ListClients(ctx context.Context, params store.ListParams) ([]models.Client, error)
}

// OrgUnitLister defines the org unit queries the handlers depend on.
type OrgUnitLister interface {
	ListOrgUnits(ctx context.Context, params store.ListParams) ([]models.OrgUnit, error)
}

// BoothLister defines the booth queries the handlers depend on.
type BoothLister interface {
	ListBooths(ctx context.Context, params store.ListParams) ([]models.Booth, error)
	ListBusyBooths(ctx context.Context, params store.ListParams) ([]models.Booth, error)
}

// UsageSessionLister defines the usage session queries the handlers depend on.
type UsageSessionLister interface {
	ListUsageSessions(ctx context.Context, params store.ListParams) ([]models.UsageSession, error)
}

type listFunc[T any] func(context.Context, store.ListParams) ([]T, error)

// NewListClientsHandler returns an http.HandlerFunc for GET /api/v1/clients.
func NewListClientsHandler(s ClientLister) http.HandlerFunc {
	return listCollection("clients", listFunc[models.Client](s.ListClients))
}

// NewGetClientHandler returns an http.HandlerFunc for GET /api/v1/clients/{clientID}.
func NewGetClientHandler(s ClientLister) http.HandlerFunc {
	return getOne("clientID", "CLIENT_NOT_FOUND", "Client not found", listFunc[models.Client](s.ListClients))
}

// NewListOrgUnitsHandler returns an http.HandlerFunc for GET /api/v1/org-units.
func NewListOrgUnitsHandler(s OrgUnitLister) http.HandlerFunc {
	return listCollection("org units", listFunc[models.OrgUnit](s.ListOrgUnits))
}

// NewGetOrgUnitHandler returns an http.HandlerFunc for GET /api/v1/org-units/{orgUnitID}.
func NewGetOrgUnitHandler(s OrgUnitLister) http.HandlerFunc {
	return getOne("orgUnitID", "ORG_UNIT_NOT_FOUND", "Org unit not found", listFunc[models.OrgUnit](s.ListOrgUnits))
}

// NewListBoothsHandler returns an http.HandlerFunc for GET /api/v1/booths.
func NewListBoothsHandler(s BoothLister) http.HandlerFunc {
	return listCollection("booths", listFunc[models.Booth](s.ListBooths))
}

// NewBusyBoothsHandler returns an http.HandlerFunc for GET /api/v1/booths/busy.
func NewBusyBoothsHandler(s BoothLister) http.HandlerFunc {
	return listCollection("busy booths", listFunc[models.Booth](s.ListBusyBooths))
}

// NewGetBoothHandler returns an http.HandlerFunc for GET /api/v1/booths/{boothID}.
func NewGetBoothHandler(s BoothLister) http.HandlerFunc {
	return getOne("boothID", "BOOTH_NOT_FOUND", "Booth not found", listFunc[models.Booth](s.ListBooths))
}

// NewListUsageSessionsHandler returns an http.HandlerFunc for GET /api/v1/usage-sessions.
// Sessions come newest first.
func NewListUsageSessionsHandler(s UsageSessionLister) http.HandlerFunc {
	return listCollection("usage sessions", listFunc[models.UsageSession](s.ListUsageSessions))
}

// NewGetUsageSessionHandler returns an http.HandlerFunc for GET /api/v1/usage-sessions/{sessionID}.
func NewGetUsageSessionHandler(s UsageSessionLister) http.HandlerFunc {
	return getOne("sessionID", "USAGE_SESSION_NOT_FOUND", "Usage session not found",
		listFunc[models.UsageSession](s.ListUsageSessions))
}

func listCollection[T any](what string, list listFunc[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			writeParamError(w, err)
			return
		}
		items, err := list(r.Context(), params)
		if err != nil {
			slog.Error("list failed", "what", what, "error", err, "path", r.URL.Path)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list "+what, nil)
			return
		}
		response.Collection(w, items, response.PaginationMeta{
			Skip:    params.Skip,
			Limit:   params.Limit,
			Count:   len(items),
			HasNext: len(items) == params.Limit,
		})
	}
}

// getOne serves a single row by the UUID in URL param. Rows outside the
// caller's client scope are reported as not found.
func getOne[T any](param, notFoundCode, notFoundMsg string, list listFunc[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, param))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", param+" must be a UUID", nil)
			return
		}
		clientID, err := resolveClient(r)
		if err != nil {
			writeParamError(w, err)
			return
		}
		items, err := list(r.Context(), store.ListParams{ClientID: clientID, ID: &id, Limit: 1})
		if err != nil {
			slog.Error("get failed", "param", param, "id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		if len(items) == 0 {
			response.Error(w, http.StatusNotFound, notFoundCode, notFoundMsg, nil)
			return
		}
		response.JSON(w, items[0])
	}
}
