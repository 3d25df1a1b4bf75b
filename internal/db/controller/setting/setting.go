// Package setting provides operations on the singleton application settings row.
package setting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")

	validate = validator.New()
)

// Defaults returns the settings a fresh installation starts with.
func Defaults() models.AppSettings {
	return models.AppSettings{
		ID:              models.SettingsRowID,
		ShowAlertBanner: true,
	}
}

// load reads the settings row inside tx, creating it with Defaults when it does not exist yet.
func load(tx *gorm.DB) (*models.AppSettings, error) {
	var s models.AppSettings

	err := tx.Take(&s, models.SettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = Defaults()
		if err = tx.Create(&s).Error; err != nil {
			return nil, fmt.Errorf("create settings: %w", err)
		}

		return &s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return &s, nil
}

// Seed writes initial when the settings row is missing. An existing row is left untouched.
func Seed(ctx context.Context, db *gorm.DB, initial models.AppSettings) error {
	if db == nil {
		return ErrDBNil
	}

	initial.ID = models.SettingsRowID
	if !initial.HasPin() {
		initial.IsAdminMode = false
	}

	err := db.WithContext(ctx).Where(models.AppSettings{ID: models.SettingsRowID}).
		FirstOrCreate(&initial).Error

	return apperror.Persistence("seed settings", err)
}

// Get returns the settings row.
func Get(ctx context.Context, db *gorm.DB) (*models.AppSettings, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	s, err := load(db.WithContext(ctx))
	if err != nil {
		return nil, apperror.Persistence("get settings", err)
	}

	return s, nil
}

// Update merges the present fields of patch into the settings row and returns the full row.
//
// currentUserId: a value sets it, null keeps it. showAlertBanner and isAdminMode: a value sets
// them. adminPin: null or "" clears it, a value sets it. sensorBoundBoxId: null or "" clears it, a
// value sets it. Without a PIN admin mode is always off after the merge.
func Update(ctx context.Context, db *gorm.DB, patch models.SettingsPatch) (*models.AppSettings, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var pinHash *string

	if p := patch.AdminPin; p.Present && !p.Null && p.Value != "" {
		if err := validate.Var(p.Value, "number"); err != nil {
			return nil, apperror.Invalid("adminPin", "must be numeric")
		}

		h, err := models.HashPin(p.Value)
		if err != nil {
			return nil, apperror.Persistence("hash admin pin", err)
		}

		pinHash = &h
	}

	var out models.AppSettings

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := load(tx)
		if err != nil {
			return err
		}

		merge(s, patch, pinHash)

		if err = tx.Save(s).Error; err != nil {
			return fmt.Errorf("save settings: %w", err)
		}

		out = *s

		return nil
	})
	if err != nil {
		return nil, apperror.Persistence("update settings", err)
	}

	return &out, nil
}

func merge(s *models.AppSettings, patch models.SettingsPatch, pinHash *string) {
	if f := patch.CurrentUserID; f.Present && !f.Null {
		v := f.Value
		s.CurrentUserID = &v
	}

	if f := patch.ShowAlertBanner; f.Present && !f.Null {
		s.ShowAlertBanner = f.Value
	}

	if f := patch.AdminPin; f.Present {
		// pinHash is nil for null and ""
		s.AdminPin = pinHash
	}

	if f := patch.IsAdminMode; f.Present && !f.Null {
		s.IsAdminMode = f.Value
	}

	if f := patch.SensorBoundBoxID; f.Present {
		if f.Null || strings.TrimSpace(f.Value) == "" {
			s.SensorBoundBoxID = nil
		} else {
			v := strings.TrimSpace(f.Value)
			s.SensorBoundBoxID = &v
		}
	}

	if !s.HasPin() {
		s.IsAdminMode = false
	}
}

// VerifyPin reports whether candidate matches the stored PIN. No PIN never matches.
func VerifyPin(ctx context.Context, db *gorm.DB, candidate string) (bool, error) {
	s, err := Get(ctx, db)
	if err != nil {
		return false, err
	}

	return s.VerifyPin(candidate), nil
}

// EnableAdminMode turns admin mode on when candidate matches the stored PIN. A mismatch leaves the
// row unchanged and returns false.
func EnableAdminMode(ctx context.Context, db *gorm.DB, candidate string) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var enabled bool

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := load(tx)
		if err != nil {
			return err
		}

		if !s.VerifyPin(candidate) {
			return nil
		}

		s.IsAdminMode = true
		if err = tx.Save(s).Error; err != nil {
			return fmt.Errorf("save settings: %w", err)
		}

		enabled = true

		return nil
	})
	if err != nil {
		return false, apperror.Persistence("enable admin mode", err)
	}

	return enabled, nil
}
