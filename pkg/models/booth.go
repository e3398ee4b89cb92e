package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultWorkingHoursPerDay is the availability baseline used when a booth has none configured.
const DefaultWorkingHoursPerDay = 8.0

const (
	BoothStateIdle = 0
	BoothStateBusy = 1
)

// Booth is a physical phone booth. It belongs to exactly one org unit.
type Booth struct {
	ID                 uuid.UUID  `db:"id"                    json:"id"`
	ClientID           *uuid.UUID `db:"client_id"             json:"client_id,omitempty"`
	OrgUnitID          uuid.UUID  `db:"org_unit_id"           json:"org_unit_id"`
	Name               string     `db:"name"                  json:"name"`
	SerialNumber       string     `db:"serial_number"         json:"serial_number"`
	WorkingHoursPerDay *float64   `db:"working_hours_per_day" json:"working_hours_per_day,omitempty"`
	Location           *string    `db:"location"              json:"location,omitempty"`
	StateID            int        `db:"state_id"              json:"state_id"`
	LastSeen           *time.Time `db:"last_seen"             json:"last_seen,omitempty"`
	CreatedAt          time.Time  `db:"created_at"            json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"            json:"updated_at"`
}

// DisplayName returns "{name} ({serial_number})", the label used in the tree and in reports.
func (b Booth) DisplayName() string {
	return fmt.Sprintf("%s (%s)", b.Name, b.SerialNumber)
}

// WorkingHours returns the configured hours per day, or DefaultWorkingHoursPerDay
// when the value is absent or not positive.
func (b Booth) WorkingHours() float64 {
	if b.WorkingHoursPerDay == nil || *b.WorkingHoursPerDay <= 0 {
		return DefaultWorkingHoursPerDay
	}
	return *b.WorkingHoursPerDay
}
