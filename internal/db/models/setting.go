// Package models contains database model definitions.
package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// SettingsRowID is the primary key of the singleton settings row.
const SettingsRowID = 1

// AppSettings is the singleton row shared by every client.
// Invariant: IsAdminMode is never true while AdminPin is nil.
type AppSettings struct {
	// ID is always SettingsRowID.
	ID uint `gorm:"primaryKey"`
	// CurrentUserID is the resident acting on this installation.
	CurrentUserID *string `gorm:"size:64"`
	// ShowAlertBanner toggles the alert banner in the presentation layer.
	ShowAlertBanner bool `gorm:"not null"`
	// AdminPin is the Argon2id hash of the admin PIN, nil when no PIN is set.
	AdminPin *string `gorm:"column:admin_pin;size:255"`
	// IsAdminMode is the privileged view flag.
	IsAdminMode bool `gorm:"not null"`
	// SensorBoundBoxID is the box the simulator reports for, nil when unbound.
	SensorBoundBoxID *string `gorm:"size:64"`
	// UpdatedAt is set on every write.
	UpdatedAt time.Time
}

// TableName pins the table name to app_settings.
func (AppSettings) TableName() string {
	return "app_settings"
}

// HasPin reports whether an admin PIN is set.
func (s *AppSettings) HasPin() bool {
	return s.AdminPin != nil && *s.AdminPin != ""
}

// VerifyPin compares candidate with the stored PIN hash. The comparison is an exact match of the
// candidate string; no PIN set means no match.
func (s *AppSettings) VerifyPin(candidate string) bool {
	if !s.HasPin() {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(candidate, *s.AdminPin)
	if err != nil {
		log.Error().Err(err).Msg("failed to verify admin pin")
		return false
	}

	return match
}

// HashPin hashes a plaintext PIN with Argon2id default parameters.
func HashPin(pin string) (string, error) {
	return argon2id.CreateHash(pin, argon2id.DefaultParams)
}

// SettingsView is the wire form of AppSettings. The PIN hash is never exposed.
type SettingsView struct {
	CurrentUserID    *string   `json:"currentUserId"`
	ShowAlertBanner  bool      `json:"showAlertBanner"`
	HasAdminPin      bool      `json:"hasAdminPin"`
	IsAdminMode      bool      `json:"isAdminMode"`
	SensorBoundBoxID *string   `json:"sensorBoundBoxId"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// View converts the row into its wire form.
func (s *AppSettings) View() SettingsView {
	return SettingsView{
		CurrentUserID:    s.CurrentUserID,
		ShowAlertBanner:  s.ShowAlertBanner,
		HasAdminPin:      s.HasPin(),
		IsAdminMode:      s.IsAdminMode,
		SensorBoundBoxID: s.SensorBoundBoxID,
		UpdatedAt:        s.UpdatedAt,
	}
}
