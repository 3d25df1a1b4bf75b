// Package user provides read access to residents.
package user

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

// List returns every user ordered by id.
func List(ctx context.Context, db *gorm.DB) ([]models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	users := make([]models.User, 0)
	if err := db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, apperror.Persistence("list users", err)
	}

	return users, nil
}

// Seed inserts users whose ids do not exist yet.
func Seed(ctx context.Context, db *gorm.DB, users []models.User) error {
	if db == nil {
		return ErrDBNil
	}

	if len(users) == 0 {
		return nil
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error

	return apperror.Persistence("seed users", err)
}
