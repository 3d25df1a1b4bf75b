// Package event implements the append-only event store. Appending an event is the only way a box's
// status changes.
package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/boxstatus"
	"github.com/boxwatch/boxwatch/internal/db/models"
)

const (
	// DefaultLimit is used when a history query does not carry a limit.
	DefaultLimit = 200
	// MaxLimit caps every history query.
	MaxLimit = 1000
	// SnapshotLimit is the history size embedded in a bootstrap snapshot.
	SnapshotLimit = 300

	whereID = "id = ?"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")

	// now is the store clock.
	now = func() time.Time { return time.Now().UTC() }
)

// Input is the payload of an append.
type Input struct {
	BoxID  string
	Type   string
	Note   string
	UserID *string
}

// Query selects a slice of history.
type Query struct {
	BoxID string
	Limit int
}

// ClampLimit applies the default and the hard cap to a requested history limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Append validates in, creates the box if it is unknown, writes the event and applies the derived
// status, all in one transaction. Storage failures roll everything back and come back as
// *apperror.PersistenceError.
func Append(ctx context.Context, db *gorm.DB, in Input) (*models.Event, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	boxID := strings.TrimSpace(in.BoxID)
	if boxID == "" {
		return nil, apperror.Required("boxId")
	}

	eventType := boxstatus.NormalizeType(in.Type)
	if eventType == "" {
		return nil, apperror.Required("type")
	}

	userID := in.UserID
	if userID != nil && strings.TrimSpace(*userID) == "" {
		userID = nil
	}

	var ev models.Event

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t := now()

		var box models.Box

		err := tx.Where(whereID, boxID).Take(&box).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			box = models.Box{
				ID:        boxID,
				Name:      models.DefaultBoxName(boxID),
				Status:    boxstatus.Available,
				UpdatedAt: t,
			}
			if err = tx.Create(&box).Error; err != nil {
				return fmt.Errorf("create box: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load box: %w", err)
		case !t.After(box.UpdatedAt):
			// updated_at must strictly advance even if the clock did not
			t = box.UpdatedAt.Add(time.Microsecond)
		}

		ev = models.Event{
			BoxID:     boxID,
			UserID:    userID,
			Type:      eventType,
			Note:      in.Note,
			CreatedAt: t,
		}
		if err = tx.Create(&ev).Error; err != nil {
			return fmt.Errorf("insert event: %w", err)
		}

		next := boxstatus.Derive(eventType, box.Status)

		err = tx.Model(&models.Box{}).
			Where(whereID, boxID).
			Updates(map[string]any{"status": string(next), "updated_at": t}).Error
		if err != nil {
			return fmt.Errorf("update box status: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, apperror.Persistence("append event", err)
	}

	return &ev, nil
}

// ListHistory returns events newest first, joined with box and user display fields.
func ListHistory(ctx context.Context, db *gorm.DB, q Query) ([]models.HistoryEntry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	query := db.WithContext(ctx).
		Table("events AS e").
		Select("e.id, e.box_id, b.name AS box_name, b.location AS box_location, " +
			"e.user_id, u.name AS user_name, e.type, e.note, e.created_at").
		Joins("LEFT JOIN boxes b ON b.id = e.box_id").
		Joins("LEFT JOIN users u ON u.id = e.user_id")

	if q.BoxID != "" {
		query = query.Where("e.box_id = ?", q.BoxID)
	}

	rows := make([]models.HistoryEntry, 0)
	if err := query.Order("e.id DESC").Limit(ClampLimit(q.Limit)).Scan(&rows).Error; err != nil {
		return nil, apperror.Persistence("list history", err)
	}

	return rows, nil
}
