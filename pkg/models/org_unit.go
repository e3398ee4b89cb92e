package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgUnit is a node in a client's internal hierarchy. A nil ParentID marks a
// top-level unit that hangs directly under its client.
type OrgUnit struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	ClientID  uuid.UUID  `db:"client_id"  json:"client_id"`
	ParentID  *uuid.UUID `db:"parent_id"  json:"parent_id"`
	Name      string     `db:"name"       json:"name"`
	Type      *string    `db:"type"       json:"type,omitempty"`
	Timezone  *string    `db:"timezone"   json:"timezone,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
