package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/boothboard/internal/api/middleware"
	"github.com/kiranshivaraju/boothboard/internal/api/response"
	"github.com/kiranshivaraju/boothboard/internal/report"
	"github.com/kiranshivaraju/boothboard/internal/store"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 2000
)

var errForbiddenClient = errors.New("client outside key scope")

// resolveClient returns the client the request is restricted to. Keys bound
// to a client always get that client. Unbound keys may narrow to one client
// with ?client_id=.
func resolveClient(r *http.Request) (*uuid.UUID, error) {
	scope, _ := mw.GetClientScope(r)

	raw := r.URL.Query().Get("client_id")
	if raw == "" {
		return scope, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("client_id must be a UUID")
	}
	if scope != nil && *scope != id {
		return nil, errForbiddenClient
	}
	return &id, nil
}

// parsePagination reads ?skip= and ?limit=.
func parsePagination(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()
	limit = defaultPageLimit
	if v := q.Get("skip"); v != "" {
		skip, err = strconv.Atoi(v)
		if err != nil || skip < 0 {
			return 0, 0, errors.New("skip must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageLimit)
		}
	}
	return skip, limit, nil
}

// parseIDs collects checked node ids from repeated or comma separated ?ids=.
func parseIDs(r *http.Request) []string {
	var ids []string
	for _, v := range r.URL.Query()["ids"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// parseReportQuery builds a report query from ids, start, end and pad.
func parseReportQuery(r *http.Request) (report.Query, error) {
	clientID, err := resolveClient(r)
	if err != nil {
		return report.Query{}, err
	}
	q := r.URL.Query()
	rng, err := report.ParseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return report.Query{}, err
	}
	var pad bool
	if v := q.Get("pad"); v != "" {
		pad, err = strconv.ParseBool(v)
		if err != nil {
			return report.Query{}, errors.New("pad must be a boolean")
		}
	}
	return report.Query{ClientID: clientID, IDs: parseIDs(r), Range: rng, Pad: pad}, nil
}

func listParams(r *http.Request) (store.ListParams, error) {
	clientID, err := resolveClient(r)
	if err != nil {
		return store.ListParams{}, err
	}
	skip, limit, err := parsePagination(r)
	if err != nil {
		return store.ListParams{}, err
	}
	return store.ListParams{ClientID: clientID, Skip: skip, Limit: limit}, nil
}

// writeParamError maps request parsing failures to 400 or 403.
func writeParamError(w http.ResponseWriter, err error) {
	if errors.Is(err, errForbiddenClient) {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Key is not allowed to read this client", nil)
		return
	}
	response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
}
