package box

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/boxstatus"
	"github.com/boxwatch/boxwatch/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Box{}))

	return db
}

func TestSeedAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	boxes, err := List(ctx, db)
	require.NoError(t, err)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)

	require.NoError(t, Seed(ctx, db, []models.Box{
		{ID: "B02", Name: "Box 2", Status: boxstatus.InUse, UpdatedAt: ts},
		{ID: "B01", Name: "Box 1", Status: boxstatus.Available, UpdatedAt: ts},
	}))

	// a second seed must not reset derived status
	require.NoError(t, db.Model(&models.Box{}).Where("id = ?", "B01").Update("status", boxstatus.Alert).Error)
	require.NoError(t, Seed(ctx, db, []models.Box{
		{ID: "B01", Name: "Box 1", Status: boxstatus.Available, UpdatedAt: ts},
	}))

	boxes, err = List(ctx, db)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, "B01", boxes[0].ID)
	assert.Equal(t, boxstatus.Alert, boxes[0].Status)
	assert.Equal(t, "B02", boxes[1].ID)

	_, err = List(ctx, nil)
	require.ErrorIs(t, err, ErrDBNil)
}
