package models

import (
	"time"

	"gorm.io/datatypes"
)

// SensorReading is one telemetry sample as received from a device. Append-only.
type SensorReading struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	BoxID     string         `gorm:"size:64;not null;index" json:"boxId"`
	DeviceID  string         `gorm:"size:128" json:"deviceId"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"autoCreateTime:false" json:"createdAt"`
}
