// Package sensor stores raw telemetry readings.
package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")

	now = func() time.Time { return time.Now().UTC() }
)

// Input is one reading as received from a device.
type Input struct {
	BoxID    string
	DeviceID string
	Payload  json.RawMessage
}

// Insert persists a reading. The stored created_at is the ingestion time.
func Insert(ctx context.Context, db *gorm.DB, in Input) (*models.SensorReading, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	boxID := strings.TrimSpace(in.BoxID)
	if boxID == "" {
		return nil, apperror.Required("boxId")
	}

	payload := bytes.TrimSpace(in.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) || !json.Valid(payload) {
		payload = json.RawMessage("{}")
	}

	reading := models.SensorReading{
		BoxID:     boxID,
		DeviceID:  in.DeviceID,
		Payload:   datatypes.JSON(payload),
		CreatedAt: now(),
	}

	if err := db.WithContext(ctx).Create(&reading).Error; err != nil {
		return nil, apperror.Persistence("insert sensor reading", err)
	}

	return &reading, nil
}

// Latest returns the newest reading for boxID, or nil when the box has none.
func Latest(ctx context.Context, db *gorm.DB, boxID string) (*models.SensorReading, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if strings.TrimSpace(boxID) == "" {
		return nil, apperror.Required("boxId")
	}

	var reading models.SensorReading

	err := db.WithContext(ctx).
		Where("box_id = ?", strings.TrimSpace(boxID)).
		Order("id DESC").
		Take(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, apperror.Persistence("latest sensor reading", err)
	}

	return &reading, nil
}
