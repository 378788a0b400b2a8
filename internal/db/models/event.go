package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

type Event struct {
	EventID     uuid.UUID       `db:"event_id" json:"event_id"`
	EntryID     uuid.UUID       `db:"entry_id" json:"entry_id"`
	VersionName *string         `db:"version_name" json:"version_name,omitempty"`
	Type        types.EventType `db:"event_type" json:"type"`
	Details     json.RawMessage `db:"-" json:"details,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
