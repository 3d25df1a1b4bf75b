// Package box provides read access to boxes and their seed data.
package box

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/db/models"
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// List returns every box ordered by id.
func List(ctx context.Context, db *gorm.DB) ([]models.Box, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	boxes := make([]models.Box, 0)
	if err := db.WithContext(ctx).Order("id ASC").Find(&boxes).Error; err != nil {
		return nil, apperror.Persistence("list boxes", err)
	}

	return boxes, nil
}

// Seed inserts boxes whose ids do not exist yet. Existing rows keep their derived status.
func Seed(ctx context.Context, db *gorm.DB, boxes []models.Box) error {
	if db == nil {
		return ErrDBNil
	}

	if len(boxes) == 0 {
		return nil
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&boxes).Error

	return apperror.Persistence("seed boxes", err)
}
