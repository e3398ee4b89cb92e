package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/boothboard/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Client scoping clauses. Booths and sessions are scoped through their org
// unit, since their own client_id column is optional.
const (
	clientScope       = `id = $1`
	orgUnitScope      = `client_id = $1`
	boothScope        = `org_unit_id IN (SELECT id FROM org_units WHERE client_id = $1)`
	usageSessionScope = `phone_booth_id IN (SELECT b.id FROM phone_booths b JOIN org_units u ON u.id = b.org_unit_id WHERE u.client_id = $1)`
)

// buildList appends the optional client scope, id filter and pagination to a
// base SELECT. The scope clause must use $1.
func buildList(base, scope, orderBy string, params ListParams, extra ...string) (string, []any) {
	params = params.normalized()
	var conditions []string
	var args []any
	if params.ClientID != nil {
		conditions = append(conditions, scope)
		args = append(args, *params.ClientID)
	}
	if params.ID != nil {
		args = append(args, *params.ID)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}
	conditions = append(conditions, extra...)

	query := base
	for i, c := range conditions {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", orderBy, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Skip)
	return query, args
}

// --- Clients ---

func (s *PostgresStore) ListClients(ctx context.Context, params ListParams) ([]models.Client, error) {
	query, args := buildList(`SELECT id, name, created_at, updated_at FROM clients`, clientScope, "name, id", params)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// --- Org Units ---

func (s *PostgresStore) ListOrgUnits(ctx context.Context, params ListParams) ([]models.OrgUnit, error) {
	query, args := buildList(
		`SELECT id, client_id, parent_id, name, type, timezone, created_at, updated_at FROM org_units`,
		orgUnitScope, "name, id", params)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list org units: %w", err)
	}
	defer rows.Close()

	units := []models.OrgUnit{}
	for rows.Next() {
		var u models.OrgUnit
		if err := rows.Scan(&u.ID, &u.ClientID, &u.ParentID, &u.Name, &u.Type, &u.Timezone,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan org unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// --- Booths ---

const boothColumns = `id, client_id, org_unit_id, name, serial_number, working_hours_per_day, location,
	state_id, last_seen, created_at, updated_at`

func (s *PostgresStore) ListBooths(ctx context.Context, params ListParams) ([]models.Booth, error) {
	query, args := buildList(`SELECT `+boothColumns+` FROM phone_booths`, boothScope, "name, id", params)
	return s.queryBooths(ctx, "list booths", query, args)
}

// ListBusyBooths returns booths currently in the busy state, most recently changed first.
func (s *PostgresStore) ListBusyBooths(ctx context.Context, params ListParams) ([]models.Booth, error) {
	query, args := buildList(`SELECT `+boothColumns+` FROM phone_booths`, boothScope, "updated_at DESC, id", params,
		fmt.Sprintf("state_id = %d", models.BoothStateBusy))
	return s.queryBooths(ctx, "list busy booths", query, args)
}

func (s *PostgresStore) queryBooths(ctx context.Context, op, query string, args []any) ([]models.Booth, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	booths := []models.Booth{}
	for rows.Next() {
		var b models.Booth
		if err := rows.Scan(&b.ID, &b.ClientID, &b.OrgUnitID, &b.Name, &b.SerialNumber, &b.WorkingHoursPerDay,
			&b.Location, &b.StateID, &b.LastSeen, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan booth: %w", err)
		}
		booths = append(booths, b)
	}
	return booths, rows.Err()
}

// --- Usage Sessions ---

// ListUsageSessions returns sessions newest first. Sessions without a start
// time sort last.
func (s *PostgresStore) ListUsageSessions(ctx context.Context, params ListParams) ([]models.UsageSession, error) {
	query, args := buildList(
		`SELECT id, phone_booth_id, client_id, org_unit_id, start_time, end_time, duration_seconds, created_at
		 FROM usage_sessions`,
		usageSessionScope, "start_time DESC NULLS LAST, id", params)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list usage sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.UsageSession{}
	for rows.Next() {
		var us models.UsageSession
		if err := rows.Scan(&us.ID, &us.PhoneBoothID, &us.ClientID, &us.OrgUnitID, &us.StartTime,
			&us.EndTime, &us.DurationSeconds, &us.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage session: %w", err)
		}
		sessions = append(sessions, us)
	}
	return sessions, rows.Err()
}

// --- API Keys ---

const apiKeyColumns = `id, client_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	return s.queryAPIKeys(ctx, "get api key by prefix",
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, client_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.ClientID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// ListAPIKeys lists active keys. A nil clientID lists keys of every client.
func (s *PostgresStore) ListAPIKeys(ctx context.Context, clientID *uuid.UUID) ([]*models.APIKey, error) {
	if clientID == nil {
		return s.queryAPIKeys(ctx, "list api keys",
			`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	}
	return s.queryAPIKeys(ctx, "list api keys",
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE client_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`,
		*clientID)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryAPIKeys(ctx context.Context, op, query string, args ...any) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.ClientID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
