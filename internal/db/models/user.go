package models

// User is a resident. Users are seeded and read-only for this service.
type User struct {
	// ID is the stable user identifier, e.g. "user-001".
	ID string `gorm:"primaryKey;size:64" json:"id"`
	// Name is the display name.
	Name string `gorm:"size:255;not null" json:"name"`
}
