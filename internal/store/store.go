package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/internal/config"
	"github.com/kiranshivaraju/boothboard/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

const (
	defaultLimit = 100
	maxLimit     = config.MaxFetchLimit
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	ListClients(ctx context.Context, params ListParams) ([]models.Client, error)
	ListOrgUnits(ctx context.Context, params ListParams) ([]models.OrgUnit, error)
	ListBooths(ctx context.Context, params ListParams) ([]models.Booth, error)
	ListBusyBooths(ctx context.Context, params ListParams) ([]models.Booth, error)
	ListUsageSessions(ctx context.Context, params ListParams) ([]models.UsageSession, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, clientID *uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// ListParams bounds a list query. Pagination is owned by the caller.
// A non-nil ClientID restricts results to that client's hierarchy and a
// non-nil ID to the single row with that id.
type ListParams struct {
	ClientID *uuid.UUID
	ID       *uuid.UUID
	Skip     int
	Limit    int
}

func (p ListParams) normalized() ListParams {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
