package models

// All lists every model for AutoMigrate, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Box{},
		&Event{},
		&AppSettings{},
		&SensorReading{},
	}
}
