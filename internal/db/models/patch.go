package models

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state JSON value for partial updates: absent, explicit null, or a value.
// Use it with the `omitzero` tag so an absent field is not marshaled.
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
}

// Set returns a present, non-null field.
func Set[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: v}
}

// Null returns a present, explicitly null field.
func Null[T any]() Field[T] {
	return Field[T]{Present: true, Null: true}
}

// IsZero reports an absent field.
func (f Field[T]) IsZero() bool {
	return !f.Present
}

// UnmarshalJSON is only invoked for keys present in the document.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Present = true

	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.Null = true
		return nil
	}

	return json.Unmarshal(b, &f.Value)
}

// MarshalJSON writes null or the value.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.Null {
		return []byte("null"), nil
	}

	return json.Marshal(f.Value)
}

// SettingsPatch is a partial settings update. Only present fields are merged.
type SettingsPatch struct {
	CurrentUserID    Field[string] `json:"currentUserId,omitzero"`
	ShowAlertBanner  Field[bool]   `json:"showAlertBanner,omitzero"`
	AdminPin         Field[string] `json:"adminPin,omitzero"`
	IsAdminMode      Field[bool]   `json:"isAdminMode,omitzero"`
	SensorBoundBoxID Field[string] `json:"sensorBoundBoxId,omitzero"`
}
