package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageSession is one immutable occupancy record for a booth, produced by the
// usage-tracking process. StartTime and DurationSeconds may be missing on
// malformed records; aggregation skips those.
type UsageSession struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	PhoneBoothID    uuid.UUID  `db:"phone_booth_id"   json:"phone_booth_id"`
	ClientID        *uuid.UUID `db:"client_id"        json:"client_id,omitempty"`
	OrgUnitID       *uuid.UUID `db:"org_unit_id"      json:"org_unit_id,omitempty"`
	StartTime       *time.Time `db:"start_time"       json:"start_time"`
	EndTime         *time.Time `db:"end_time"         json:"end_time,omitempty"`
	DurationSeconds *int64     `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
}
