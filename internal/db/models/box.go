package models

import (
	"time"

	"github.com/boxwatch/boxwatch/internal/boxstatus"
)

// Box is a shared storage compartment. Status is derived from the event log and is only written
// by the event store.
type Box struct {
	// ID is the stable box identifier, e.g. "B01".
	ID string `gorm:"primaryKey;size:64" json:"id"`
	// Name is the display name.
	Name string `gorm:"size:255;not null" json:"name"`
	// Location is a free-text location label.
	Location string `gorm:"size:255" json:"location"`
	// Status is the cached result of the last status derivation.
	Status boxstatus.Status `gorm:"size:16;not null" json:"status"`
	// UpdatedAt advances on every event for this box. Managed by the event store, not by gorm.
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

// DefaultBoxName is the name synthesized for a box that was first seen in an event.
func DefaultBoxName(id string) string {
	return "Shared box " + id
}
