package models

import "time"

// Event is an immutable record of a state-changing action on a box. Rows are only ever inserted.
type Event struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BoxID     string    `gorm:"size:64;not null;index" json:"boxId"`
	UserID    *string   `gorm:"size:64" json:"userId"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Note      string    `gorm:"not null" json:"note"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt"`
}

// HistoryEntry is an event joined with its box and user display fields.
type HistoryEntry struct {
	ID          uint64    `json:"id"`
	BoxID       string    `json:"boxId"`
	BoxName     *string   `json:"boxName"`
	BoxLocation *string   `json:"boxLocation"`
	UserID      *string   `json:"userId"`
	UserName    *string   `json:"userName"`
	Type        string    `json:"type"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"createdAt"`
}
