package usage

import (
	"sort"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/pkg/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// BoothInfo is the per-booth metadata the summary needs.
type BoothInfo struct {
	Name               string
	WorkingHoursPerDay float64
}

// BoothInfos builds the summary lookup from a booth list.
func BoothInfos(booths []models.Booth) map[uuid.UUID]BoothInfo {
	infos := make(map[uuid.UUID]BoothInfo, len(booths))
	for _, b := range booths {
		infos[b.ID] = BoothInfo{Name: b.DisplayName(), WorkingHoursPerDay: b.WorkingHours()}
	}
	return infos
}

// SummaryRow is the utilization of one booth over the summarized period.
type SummaryRow struct {
	BoothID             uuid.UUID `json:"booth_id"`
	Name                string    `json:"name"`
	WorkingHoursPerDay  float64   `json:"working_hours_per_day"`
	TotalUsageHours     float64   `json:"total_usage_hours"`
	TotalAvailableHours float64   `json:"total_available_hours"`
	// Percentage is nil when no hours were available (zero-day range).
	Percentage *float64 `json:"percentage"`
}

// Summarize computes one row per booth id, in boothIDs order. The period is
// rng.Days() days when rng is non-nil and a single day otherwise. Booths
// missing from infos are named by id and use the default working hours.
func Summarize(series []DayEntry, boothIDs []uuid.UUID, infos map[uuid.UUID]BoothInfo, rng *DateRange) []SummaryRow {
	totalDays := 1
	if rng != nil {
		totalDays = rng.Days()
	}

	rows := make([]SummaryRow, 0, len(boothIDs))
	for _, id := range boothIDs {
		row := SummaryRow{
			BoothID:            id,
			Name:               id.String(),
			WorkingHoursPerDay: models.DefaultWorkingHoursPerDay,
		}
		if info, ok := infos[id]; ok {
			if info.Name != "" {
				row.Name = info.Name
			}
			if info.WorkingHoursPerDay > 0 {
				row.WorkingHoursPerDay = info.WorkingHoursPerDay
			}
		}

		for _, entry := range series {
			row.TotalUsageHours += entry.Hours[id]
		}
		row.TotalAvailableHours = float64(totalDays) * row.WorkingHoursPerDay
		if row.TotalAvailableHours > 0 {
			pct := 100 * row.TotalUsageHours / row.TotalAvailableHours
			row.Percentage = &pct
		}
		rows = append(rows, row)
	}
	return rows
}

// SortByName orders rows by display name for presentation.
func SortByName(rows []SummaryRow) {
	c := collate.New(language.Und)
	sort.SliceStable(rows, func(i, j int) bool {
		if cmp := c.CompareString(rows[i].Name, rows[j].Name); cmp != 0 {
			return cmp < 0
		}
		return rows[i].BoothID.String() < rows[j].BoothID.String()
	})
}
