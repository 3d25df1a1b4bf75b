package daemon

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/boxstatus"
	"github.com/boxwatch/boxwatch/internal/db/controller/box"
	"github.com/boxwatch/boxwatch/internal/db/controller/setting"
	"github.com/boxwatch/boxwatch/internal/db/controller/user"
	"github.com/boxwatch/boxwatch/internal/db/models"
)

// SeedUserID is the resident selected on a fresh installation.
const SeedUserID = "user-001"

func seedUsers() []models.User {
	return []models.User{
		{ID: "user-001", Name: "Resident A"},
		{ID: "user-002", Name: "Resident B"},
		{ID: "user-003", Name: "Resident C"},
	}
}

func seedBoxes(t time.Time) []models.Box {
	return []models.Box{
		{ID: "B01", Name: "Shared box 01", Location: "Lobby, 1F", Status: boxstatus.Available, UpdatedAt: t},
		{ID: "B02", Name: "Shared box 02", Location: "Hallway, 2F", Status: boxstatus.InUse, UpdatedAt: t},
		{ID: "B03", Name: "Shared box 03", Location: "Basement entrance", Status: boxstatus.Alert, UpdatedAt: t},
	}
}

// Seed writes the demo residents, boxes and the settings row. Rows that already exist are kept.
func Seed(ctx context.Context, db *gorm.DB) error {
	if err := user.Seed(ctx, db, seedUsers()); err != nil {
		return err
	}

	if err := box.Seed(ctx, db, seedBoxes(time.Now().UTC())); err != nil {
		return err
	}

	current := SeedUserID

	return setting.Seed(ctx, db, models.AppSettings{
		CurrentUserID:   &current,
		ShowAlertBanner: true,
	})
}
