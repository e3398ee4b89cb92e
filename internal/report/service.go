// Package report loads booth data through the store and turns it into the
// hierarchy tree, usage time series, utilization summaries and XLSX exports
// served by the API.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/internal/cache"
	"github.com/kiranshivaraju/boothboard/internal/export"
	"github.com/kiranshivaraju/boothboard/internal/metrics"
	"github.com/kiranshivaraju/boothboard/internal/orgtree"
	"github.com/kiranshivaraju/boothboard/internal/store"
	"github.com/kiranshivaraju/boothboard/internal/usage"
	"github.com/kiranshivaraju/boothboard/pkg/models"
)

// ErrInvalidRange is returned for a date range that is half-specified,
// malformed, ends before it starts or spans more than MaxRangeDays.
var ErrInvalidRange = errors.New("invalid date range")

const (
	defaultRangeDays    = 7
	defaultMaxRangeDays = 366
	defaultFetchLimit   = 2000
	defaultMaxRows      = 100000
)

// Config tunes the service. Zero values take the defaults.
type Config struct {
	DefaultRangeDays int
	MaxRangeDays     int
	// FetchLimit is the store page size.
	FetchLimit int
	// MaxRows caps the rows loaded per entity for one report.
	MaxRows      int
	TreeCacheTTL time.Duration
}

// Query selects the data a report covers.
type Query struct {
	// ClientID restricts the report to one client's hierarchy. Nil covers all clients.
	ClientID *uuid.UUID
	// IDs are checked tree node ids of any kind. Empty selects every booth.
	IDs []string
	// Range narrows the report to whole UTC days. Nil applies no narrowing
	// for usage reports and the default window for summaries.
	Range *usage.DateRange
	// Pad zero-fills every day of Range instead of only the observed span.
	Pad bool
}

// UsageReport is the per-day usage series of the selected booths.
type UsageReport struct {
	Series     []usage.DayEntry     `json:"series"`
	BoothIDs   []uuid.UUID          `json:"booth_ids"`
	BoothNames map[uuid.UUID]string `json:"booth_names"`
	Skipped    int                  `json:"skipped"`
	Start      string               `json:"start,omitempty"`
	End        string               `json:"end,omitempty"`
	// Truncated is set when the report was built from a capped load.
	Truncated bool `json:"truncated"`
}

// SummaryReport is the utilization of the selected booths over a window.
type SummaryReport struct {
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Days      int                `json:"days"`
	Rows      []usage.SummaryRow `json:"rows"`
	Truncated bool               `json:"truncated"`
}

// Service builds reports. It is safe for concurrent use.
type Service struct {
	store store.Store
	cache cache.Cache
	cfg   Config
	now   func() time.Time
}

// NewService creates a new Service.
func NewService(st store.Store, ca cache.Cache, cfg Config) *Service {
	if cfg.DefaultRangeDays < 1 {
		cfg.DefaultRangeDays = defaultRangeDays
	}
	if cfg.MaxRangeDays < 1 {
		cfg.MaxRangeDays = max(defaultMaxRangeDays, cfg.DefaultRangeDays)
	}
	if cfg.FetchLimit < 1 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if cfg.MaxRows < 1 {
		cfg.MaxRows = defaultMaxRows
	}
	cfg.MaxRows = max(cfg.MaxRows, cfg.FetchLimit)
	return &Service{store: st, cache: ca, cfg: cfg, now: time.Now}
}

// ParseRange builds a range from YYYY-MM-DD bounds. Both empty means no range.
func ParseRange(start, end string) (*usage.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("%w: start and end must be given together", ErrInvalidRange)
	}
	from, err := usage.ParseDay(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	to, err := usage.ParseDay(end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end %s precedes start %s", ErrInvalidRange, end, start)
	}
	return &usage.DateRange{Start: from, End: to}, nil
}

// Tree returns the hierarchy tree visible to clientID, served from cache
// when fresh. Cache failures are logged and the tree is rebuilt.
func (s *Service) Tree(ctx context.Context, clientID *uuid.UUID) (*orgtree.Node, error) {
	key := cache.TreeKey(clientID)

	var cached orgtree.Node
	found, err := cache.GetJSON(ctx, s.cache, key, &cached)
	if err != nil {
		slog.Warn("tree cache read failed", "error", err, "key", key)
	}
	metrics.IncTreeCache(found)
	if found {
		return &cached, nil
	}

	clients, _, err := fetchAll(ctx, s.cfg, "clients", clientID, s.store.ListClients)
	if err != nil {
		return nil, err
	}
	units, _, err := fetchAll(ctx, s.cfg, "org units", clientID, s.store.ListOrgUnits)
	if err != nil {
		return nil, err
	}
	booths, _, err := fetchAll(ctx, s.cfg, "booths", clientID, s.store.ListBooths)
	if err != nil {
		return nil, err
	}

	tree := orgtree.Build(clients, units, booths)
	metrics.IncReportGenerated(metrics.ReportTree)

	if err := cache.SetJSON(ctx, s.cache, key, tree, s.cfg.TreeCacheTTL); err != nil {
		slog.Warn("tree cache write failed", "error", err, "key", key)
	}
	return tree, nil
}

// dataset is the raw material of usage and summary reports.
type dataset struct {
	sessions []models.UsageSession
	booths   []models.Booth
	selected map[uuid.UUID]struct{}
	// none is set when IDs were given but cover no booth.
	none      bool
	truncated bool
}

// fetchAll pages through list until a short page or cfg.MaxRows rows.
// truncated reports that rows remained past the cap.
func fetchAll[T any](ctx context.Context, cfg Config, entity string, clientID *uuid.UUID,
	list func(context.Context, store.ListParams) ([]T, error)) ([]T, bool, error) {
	var rows []T
	for {
		limit := min(cfg.FetchLimit, cfg.MaxRows-len(rows))
		if limit <= 0 {
			more, err := list(ctx, store.ListParams{ClientID: clientID, Skip: len(rows), Limit: 1})
			if err != nil {
				return nil, false, fmt.Errorf("load %s: %w", entity, err)
			}
			if len(more) == 0 {
				return rows, false, nil
			}
			slog.Warn("report load truncated", "entity", entity, "max_rows", cfg.MaxRows)
			metrics.IncLoadTruncated(strings.ReplaceAll(entity, " ", "_"))
			return rows, true, nil
		}

		page, err := list(ctx, store.ListParams{ClientID: clientID, Skip: len(rows), Limit: limit})
		if err != nil {
			return nil, false, fmt.Errorf("load %s: %w", entity, err)
		}
		rows = append(rows, page...)
		if len(page) < limit {
			return rows, false, nil
		}
	}
}

// dedupeSessions drops repeats that offset paging can return when rows are
// inserted between pages.
func dedupeSessions(sessions []models.UsageSession) []models.UsageSession {
	seen := make(map[uuid.UUID]struct{}, len(sessions))
	out := sessions[:0]
	for _, us := range sessions {
		if _, dup := seen[us.ID]; dup {
			continue
		}
		seen[us.ID] = struct{}{}
		out = append(out, us)
	}
	return out
}

// checkRange rejects explicit ranges longer than MaxRangeDays.
func (s *Service) checkRange(rng *usage.DateRange) error {
	if rng == nil {
		return nil
	}
	if days := rng.Days(); days > s.cfg.MaxRangeDays {
		return fmt.Errorf("%w: %s spans %d days, at most %d allowed", ErrInvalidRange, rng, days, s.cfg.MaxRangeDays)
	}
	return nil
}

func (s *Service) load(ctx context.Context, q Query) (*dataset, error) {
	if err := s.checkRange(q.Range); err != nil {
		return nil, err
	}
	ds := &dataset{}
	if len(q.IDs) > 0 {
		tree, err := s.Tree(ctx, q.ClientID)
		if err != nil {
			return nil, err
		}
		ds.selected = orgtree.ExpandSelection(tree, q.IDs)
		if len(ds.selected) == 0 {
			ds.none = true
			return ds, nil
		}
	}

	sessions, sessionsCut, err := fetchAll(ctx, s.cfg, "usage sessions", q.ClientID, s.store.ListUsageSessions)
	if err != nil {
		return nil, err
	}
	booths, boothsCut, err := fetchAll(ctx, s.cfg, "booths", q.ClientID, s.store.ListBooths)
	if err != nil {
		return nil, err
	}
	ds.sessions = dedupeSessions(sessions)
	ds.booths = booths
	ds.truncated = sessionsCut || boothsCut
	return ds, nil
}

func (ds *dataset) aggregate(rng *usage.DateRange, pad bool) usage.Result {
	if ds.none {
		return usage.Result{Series: []usage.DayEntry{}, BoothIDs: []uuid.UUID{}}
	}
	var opts []usage.Option
	if pad {
		opts = append(opts, usage.WithRangePadding())
	}
	return usage.Aggregate(ds.sessions, ds.selected, rng, opts...)
}

// Usage aggregates the selected booths' sessions into a daily series.
func (s *Service) Usage(ctx context.Context, q Query) (*UsageReport, error) {
	ds, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	res := ds.aggregate(q.Range, q.Pad)
	metrics.AddSessionsSkipped(res.Skipped)
	metrics.IncReportGenerated(metrics.ReportUsage)
	out := newUsageReport(res, ds.booths, q.Range)
	out.Truncated = ds.truncated
	return out, nil
}

// Summary computes per-booth utilization over q.Range, or over the default
// window ending today when q.Range is nil.
func (s *Service) Summary(ctx context.Context, q Query) (*SummaryReport, error) {
	ds, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	rng := s.summaryRange(q.Range)
	res := ds.aggregate(&rng, q.Pad)
	metrics.AddSessionsSkipped(res.Skipped)
	metrics.IncReportGenerated(metrics.ReportSummary)
	return &SummaryReport{
		Start:     rng.StartDay(),
		End:       rng.EndDay(),
		Days:      rng.Days(),
		Rows:      usage.Summarize(res.Series, res.BoothIDs, usage.BoothInfos(ds.booths), &rng),
		Truncated: ds.truncated,
	}, nil
}

// Export writes an XLSX workbook with the usage series over q.Range and the
// summary over the same window as Summary would use.
func (s *Service) Export(ctx context.Context, q Query, w io.Writer) error {
	ds, err := s.load(ctx, q)
	if err != nil {
		return err
	}
	series := ds.aggregate(q.Range, q.Pad)
	metrics.AddSessionsSkipped(series.Skipped)

	rng := s.summaryRange(q.Range)
	windowed := ds.aggregate(&rng, q.Pad)
	rows := usage.Summarize(windowed.Series, windowed.BoothIDs, usage.BoothInfos(ds.booths), &rng)
	usage.SortByName(rows)

	if err := export.WriteUsageWorkbook(w, series, usage.BoothNames(ds.booths), rows); err != nil {
		return fmt.Errorf("export usage: %w", err)
	}
	metrics.IncReportGenerated(metrics.ReportExport)
	return nil
}

func (s *Service) summaryRange(rng *usage.DateRange) usage.DateRange {
	if rng != nil {
		return *rng
	}
	return usage.LastNDays(s.now(), s.cfg.DefaultRangeDays)
}

func newUsageReport(res usage.Result, booths []models.Booth, rng *usage.DateRange) *UsageReport {
	all := usage.BoothNames(booths)
	names := make(map[uuid.UUID]string, len(res.BoothIDs))
	for _, id := range res.BoothIDs {
		if name, ok := all[id]; ok {
			names[id] = name
		} else {
			names[id] = id.String()
		}
	}
	report := &UsageReport{
		Series:     res.Series,
		BoothIDs:   res.BoothIDs,
		BoothNames: names,
		Skipped:    res.Skipped,
	}
	if rng != nil {
		report.Start, report.End = rng.StartDay(), rng.EndDay()
	}
	return report
}
