package report

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/internal/export"
	"github.com/kiranshivaraju/boothboard/internal/orgtree"
	"github.com/kiranshivaraju/boothboard/internal/store"
	"github.com/kiranshivaraju/boothboard/internal/usage"
	"github.com/kiranshivaraju/boothboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// --- mocks ---

type mockStore struct {
	mu       sync.Mutex
	clients  []models.Client
	units    []models.OrgUnit
	booths   []models.Booth
	sessions []models.UsageSession
	listErr  error
	calls    map[string]int
	params   []store.ListParams
}

func (s *mockStore) record(name string, p store.ListParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
	s.params = append(s.params, p)
}

func (s *mockStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// paginate applies Skip and Limit the way the Postgres store does.
func paginate[T any](items []T, p store.ListParams) []T {
	if p.Skip >= len(items) {
		return nil
	}
	items = items[p.Skip:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

func (s *mockStore) Ping(_ context.Context) error { return nil }

func (s *mockStore) ListClients(_ context.Context, p store.ListParams) ([]models.Client, error) {
	s.record("clients", p)
	return paginate(s.clients, p), s.listErr
}

func (s *mockStore) ListOrgUnits(_ context.Context, p store.ListParams) ([]models.OrgUnit, error) {
	s.record("units", p)
	return paginate(s.units, p), s.listErr
}

func (s *mockStore) ListBooths(_ context.Context, p store.ListParams) ([]models.Booth, error) {
	s.record("booths", p)
	return paginate(s.booths, p), s.listErr
}

func (s *mockStore) ListBusyBooths(_ context.Context, p store.ListParams) ([]models.Booth, error) {
	s.record("busy", p)
	return nil, s.listErr
}

func (s *mockStore) ListUsageSessions(_ context.Context, p store.ListParams) ([]models.UsageSession, error) {
	s.record("sessions", p)
	return paginate(s.sessions, p), s.listErr
}

func (s *mockStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *mockStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *mockStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error      { return nil }
func (s *mockStore) ListAPIKeys(_ context.Context, _ *uuid.UUID) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *mockStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error { return nil }

type mockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mockCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *mockCache) Ping(_ context.Context) error { return nil }
func (c *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, nil
}

// --- fixtures ---

var (
	acmeID  = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	hqID    = uuid.MustParse("20000000-0000-0000-0000-000000000001")
	boothA  = uuid.MustParse("30000000-0000-0000-0000-00000000000a")
	boothB  = uuid.MustParse("30000000-0000-0000-0000-00000000000b")
	session = uuid.MustParse("40000000-0000-0000-0000-000000000001")
)

func at(day string, hour int) *time.Time {
	t, err := time.Parse(usage.DayLayout, day)
	if err != nil {
		panic(err)
	}
	t = t.Add(time.Duration(hour) * time.Hour)
	return &t
}

func secs(n int64) *int64 { return &n }

func hours(h float64) *float64 { return &h }

// newFixtureStore seeds one client with one unit holding booth A (8h/day) and
// booth B (4h/day). A is used on Jan 1 and Jan 3, B on Jan 2, plus one
// session of A without a start time.
func newFixtureStore() *mockStore {
	return &mockStore{
		clients: []models.Client{{ID: acmeID, Name: "Acme"}},
		units:   []models.OrgUnit{{ID: hqID, ClientID: acmeID, Name: "HQ"}},
		booths: []models.Booth{
			{ID: boothA, OrgUnitID: hqID, Name: "Booth A", SerialNumber: "SN-A"},
			{ID: boothB, OrgUnitID: hqID, Name: "Booth B", SerialNumber: "SN-B", WorkingHoursPerDay: hours(4)},
		},
		sessions: []models.UsageSession{
			{ID: session, PhoneBoothID: boothA, StartTime: at("2024-01-01", 9), DurationSeconds: secs(3600)},
			{ID: uuid.New(), PhoneBoothID: boothB, StartTime: at("2024-01-02", 10), DurationSeconds: secs(7200)},
			{ID: uuid.New(), PhoneBoothID: boothA, StartTime: at("2024-01-03", 23), DurationSeconds: secs(1800)},
			{ID: uuid.New(), PhoneBoothID: boothA, DurationSeconds: secs(600)},
		},
	}
}

func newTestService(st *mockStore, ca *mockCache) *Service {
	svc := NewService(st, ca, Config{DefaultRangeDays: 3, FetchLimit: 2000, TreeCacheTTL: time.Minute})
	svc.now = func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) }
	return svc
}

func mustRange(t *testing.T, start, end string) *usage.DateRange {
	t.Helper()
	rng, err := ParseRange(start, end)
	require.NoError(t, err)
	return rng
}

// --- ParseRange ---

func TestParseRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantNil    bool
		wantErr    bool
	}{
		{"both empty", "", "", true, false},
		{"valid", "2024-01-01", "2024-01-07", false, false},
		{"single day", "2024-01-01", "2024-01-01", false, false},
		{"start only", "2024-01-01", "", false, true},
		{"end only", "", "2024-01-01", false, true},
		{"malformed", "2024-13-01", "2024-12-01", false, true},
		{"not a day", "2024-01-01T00:00:00Z", "2024-01-02", false, true},
		{"inverted", "2024-01-07", "2024-01-01", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := ParseRange(tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, rng)
				return
			}
			require.NotNil(t, rng)
			assert.Equal(t, tt.start, rng.StartDay())
			assert.Equal(t, tt.end, rng.EndDay())
		})
	}
}

// --- Tree ---

func TestTree_BuildsAndCaches(t *testing.T) {
	st := newFixtureStore()
	ca := newMockCache()
	svc := newTestService(st, ca)
	ctx := context.Background()

	tree, err := svc.Tree(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, orgtree.RootID, tree.ID)
	assert.Equal(t, []uuid.UUID{boothA, boothB}, tree.BoothIDs())
	assert.Equal(t, 2000, st.params[0].Limit)

	again, err := svc.Tree(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, tree.BoothIDs(), again.BoothIDs())
	assert.Equal(t, "Booth A (SN-A)", again.Find(boothA.String()).Name)
	assert.Equal(t, 1, st.count("clients"), "second call should be served from cache")
}

func TestTree_ScopedByClient(t *testing.T) {
	st := newFixtureStore()
	ca := newMockCache()
	svc := newTestService(st, ca)

	_, err := svc.Tree(context.Background(), &acmeID)
	require.NoError(t, err)
	require.NotEmpty(t, st.params)
	for _, p := range st.params {
		require.NotNil(t, p.ClientID)
		assert.Equal(t, acmeID, *p.ClientID)
	}
	_, ok := ca.data["tree:"+acmeID.String()]
	assert.True(t, ok)
}

func TestTree_CacheFailuresAreNotFatal(t *testing.T) {
	st := newFixtureStore()
	ca := newMockCache()
	ca.getErr = errors.New("redis down")
	ca.setErr = errors.New("redis down")
	svc := newTestService(st, ca)

	tree, err := svc.Tree(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, tree.BoothIDs(), 2)
}

func TestTree_StoreError(t *testing.T) {
	st := newFixtureStore()
	st.listErr = errors.New("connection refused")
	svc := newTestService(st, newMockCache())

	_, err := svc.Tree(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load clients")
}

// --- Usage ---

func TestUsage_AllBooths(t *testing.T) {
	st := newFixtureStore()
	svc := newTestService(st, newMockCache())

	rep, err := svc.Usage(context.Background(), Query{})
	require.NoError(t, err)

	require.Len(t, rep.Series, 3)
	assert.Equal(t, "2024-01-01", rep.Series[0].Day)
	assert.Equal(t, 1.0, rep.Series[0].Hours[boothA])
	assert.Equal(t, 2.0, rep.Series[1].Hours[boothB])
	assert.Equal(t, 0.5, rep.Series[2].Hours[boothA])
	assert.Equal(t, []uuid.UUID{boothA, boothB}, rep.BoothIDs)
	assert.Equal(t, "Booth A (SN-A)", rep.BoothNames[boothA])
	assert.Equal(t, "Booth B (SN-B)", rep.BoothNames[boothB])
	assert.Equal(t, 1, rep.Skipped)
	assert.Empty(t, rep.Start)
	assert.Zero(t, st.count("clients"), "no tree needed without a selection")
}

func TestUsage_SelectionByBranch(t *testing.T) {
	st := newFixtureStore()
	svc := newTestService(st, newMockCache())

	rep, err := svc.Usage(context.Background(), Query{IDs: []string{boothB.String()}})
	require.NoError(t, err)
	require.Len(t, rep.Series, 1)
	assert.Equal(t, "2024-01-02", rep.Series[0].Day)
	assert.Equal(t, []uuid.UUID{boothB}, rep.BoothIDs)
	assert.Zero(t, rep.Skipped)

	rep, err = svc.Usage(context.Background(), Query{IDs: []string{hqID.String()}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{boothA, boothB}, rep.BoothIDs)
}

func TestUsage_SelectionMatchesNothing(t *testing.T) {
	st := newFixtureStore()
	svc := newTestService(st, newMockCache())

	rep, err := svc.Usage(context.Background(), Query{IDs: []string{uuid.NewString()}})
	require.NoError(t, err)
	assert.Empty(t, rep.Series)
	assert.NotNil(t, rep.Series)
	assert.Empty(t, rep.BoothIDs)
	assert.Zero(t, st.count("sessions"))
}

func TestUsage_RangeNarrows(t *testing.T) {
	svc := newTestService(newFixtureStore(), newMockCache())

	rep, err := svc.Usage(context.Background(), Query{Range: mustRange(t, "2024-01-02", "2024-01-02")})
	require.NoError(t, err)
	require.Len(t, rep.Series, 1)
	assert.Equal(t, "2024-01-02", rep.Series[0].Day)
	assert.Equal(t, []uuid.UUID{boothB}, rep.BoothIDs)
	assert.Equal(t, "2024-01-02", rep.Start)
	assert.Equal(t, "2024-01-02", rep.End)

	// Without padding the range never widens the observed span.
	rep, err = svc.Usage(context.Background(), Query{Range: mustRange(t, "2023-12-30", "2024-01-05")})
	require.NoError(t, err)
	assert.Len(t, rep.Series, 3)
}

func TestUsage_RangePadding(t *testing.T) {
	svc := newTestService(newFixtureStore(), newMockCache())

	rep, err := svc.Usage(context.Background(), Query{Range: mustRange(t, "2023-12-30", "2024-01-05"), Pad: true})
	require.NoError(t, err)
	require.Len(t, rep.Series, 7)
	assert.Equal(t, "2023-12-30", rep.Series[0].Day)
	assert.Equal(t, 0.0, rep.Series[0].TotalHours)
	assert.Equal(t, "2024-01-05", rep.Series[6].Day)
}

func TestUsage_StoreError(t *testing.T) {
	st := newFixtureStore()
	st.listErr = errors.New("timeout")
	svc := newTestService(st, newMockCache())

	_, err := svc.Usage(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load usage sessions")
}

// --- Summary ---

func TestSummary_DefaultWindow(t *testing.T) {
	svc := newTestService(newFixtureStore(), newMockCache())

	rep, err := svc.Summary(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", rep.Start)
	assert.Equal(t, "2024-01-03", rep.End)
	assert.Equal(t, 3, rep.Days)
	require.Len(t, rep.Rows, 2)

	a := rep.Rows[0]
	assert.Equal(t, boothA, a.BoothID)
	assert.Equal(t, "Booth A (SN-A)", a.Name)
	assert.Equal(t, 1.5, a.TotalUsageHours)
	assert.Equal(t, 24.0, a.TotalAvailableHours)
	require.NotNil(t, a.Percentage)
	assert.Equal(t, 6.25, *a.Percentage)

	b := rep.Rows[1]
	assert.Equal(t, 12.0, b.TotalAvailableHours)
	require.NotNil(t, b.Percentage)
	assert.InDelta(t, 16.6667, *b.Percentage, 0.001)
}

func TestSummary_ExplicitRange(t *testing.T) {
	svc := newTestService(newFixtureStore(), newMockCache())

	rep, err := svc.Summary(context.Background(), Query{Range: mustRange(t, "2024-01-01", "2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Days)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, boothA, rep.Rows[0].BoothID)
	require.NotNil(t, rep.Rows[0].Percentage)
	assert.Equal(t, 12.5, *rep.Rows[0].Percentage)
}

func TestSummary_EmptySelection(t *testing.T) {
	svc := newTestService(newFixtureStore(), newMockCache())

	rep, err := svc.Summary(context.Background(), Query{IDs: []string{"nope"}})
	require.NoError(t, err)
	assert.Empty(t, rep.Rows)
	assert.Equal(t, 3, rep.Days)
}

// --- Export ---

func TestExport_WritesWorkbook(t *testing.T) {
	svc := newTestService(newFixtureStore(), newMockCache())

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), Query{}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.UsageSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Day", "Booth A (SN-A)", "Booth B (SN-B)", "Total"}, rows[0])

	summary, err := f.GetRows(export.SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "Booth A (SN-A)", summary[1][0])
	assert.Equal(t, "6.25", summary[1][4])
}

func TestExport_StoreError(t *testing.T) {
	st := newFixtureStore()
	st.listErr = errors.New("timeout")
	svc := newTestService(st, newMockCache())

	var buf bytes.Buffer
	assert.Error(t, svc.Export(context.Background(), Query{}, &buf))
	assert.Zero(t, buf.Len())
}

// --- Range limits ---

func TestReports_RejectRangeOverMaximum(t *testing.T) {
	st := newFixtureStore()
	svc := newTestService(st, newMockCache())
	ctx := context.Background()
	tooLong := Query{Range: mustRange(t, "2024-01-01", "2025-01-01"), Pad: true}

	_, err := svc.Usage(ctx, tooLong)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = svc.Summary(ctx, tooLong)
	assert.ErrorIs(t, err, ErrInvalidRange)
	var buf bytes.Buffer
	assert.ErrorIs(t, svc.Export(ctx, tooLong, &buf), ErrInvalidRange)
	assert.Zero(t, st.count("sessions"), "nothing is loaded for a rejected range")

	// 2024 is a leap year: 366 days is the default maximum.
	rep, err := svc.Usage(ctx, Query{Range: mustRange(t, "2024-01-01", "2024-12-31"), Pad: true})
	require.NoError(t, err)
	assert.Len(t, rep.Series, 366)
}

func TestReports_ConfiguredMaximumRange(t *testing.T) {
	svc := NewService(newFixtureStore(), newMockCache(), Config{DefaultRangeDays: 3, MaxRangeDays: 3})

	_, err := svc.Usage(context.Background(), Query{Range: mustRange(t, "2024-01-01", "2024-01-04")})
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = svc.Usage(context.Background(), Query{Range: mustRange(t, "2024-01-01", "2024-01-03")})
	assert.NoError(t, err)
}

func TestReports_WholeCalendarRangeRejected(t *testing.T) {
	svc := newTestService(newFixtureStore(), newMockCache())

	_, err := svc.Usage(context.Background(), Query{Range: mustRange(t, "0001-01-01", "9999-12-31"), Pad: true})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

// --- Paged loading ---

func TestLoad_PagesThroughStore(t *testing.T) {
	st := newFixtureStore()
	svc := NewService(st, newMockCache(), Config{FetchLimit: 2, MaxRows: 100})

	rep, err := svc.Usage(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, rep.Series, 3)
	assert.Equal(t, 1, rep.Skipped)
	assert.False(t, rep.Truncated)
	// Two full pages of sessions, then an empty one.
	assert.Equal(t, 3, st.count("sessions"))
}

func TestLoad_ExactlyMaxRowsIsNotTruncated(t *testing.T) {
	st := newFixtureStore()
	svc := NewService(st, newMockCache(), Config{FetchLimit: 2, MaxRows: 4})

	rep, err := svc.Usage(context.Background(), Query{})
	require.NoError(t, err)
	assert.False(t, rep.Truncated)
	assert.Equal(t, 1, rep.Skipped)
}

func TestLoad_TruncatesAtMaxRows(t *testing.T) {
	st := newFixtureStore()
	svc := NewService(st, newMockCache(), Config{FetchLimit: 1, MaxRows: 2})
	svc.now = func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) }

	rep, err := svc.Usage(context.Background(), Query{})
	require.NoError(t, err)
	assert.True(t, rep.Truncated)
	// Only the first two sessions were loaded.
	require.Len(t, rep.Series, 2)
	assert.Equal(t, "2024-01-02", rep.Series[1].Day)

	sum, err := svc.Summary(context.Background(), Query{})
	require.NoError(t, err)
	assert.True(t, sum.Truncated)
}

func TestSummary_DefaultWindowSeesRecentSessionsPastOnePage(t *testing.T) {
	st := newFixtureStore()
	st.sessions = nil
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2500; i++ {
		begin := start.Add(time.Duration(i) * 104 * time.Minute)
		st.sessions = append(st.sessions, models.UsageSession{
			ID:              uuid.New(),
			PhoneBoothID:    boothA,
			StartTime:       &begin,
			DurationSeconds: secs(600),
		})
	}
	svc := NewService(st, newMockCache(), Config{DefaultRangeDays: 7, FetchLimit: 2000})
	svc.now = func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) }

	rep, err := svc.Summary(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-24", rep.Start)
	require.Len(t, rep.Rows, 1)
	assert.Positive(t, rep.Rows[0].TotalUsageHours)
	assert.False(t, rep.Truncated)
	assert.Equal(t, 2, st.count("sessions"))
}

func TestDedupeSessions(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := dedupeSessions([]models.UsageSession{{ID: a}, {ID: b}, {ID: a}})
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)
}
