// Package boxstatus holds the box status values, the known event types and the derivation table
// mapping an appended event to the box's next status. Nothing else in the module decides status.
package boxstatus

import "strings"

// Status is the derived state of a box.
type Status string

const (
	// Available means the box is empty and free to use.
	Available Status = "AVAILABLE"
	// InUse means a parcel was dropped off and not yet picked up.
	InUse Status = "IN_USE"
	// Alert means an anomaly was reported and not yet cleared.
	Alert Status = "ALERT"
)

const (
	// EventDelivery is a drop-off.
	EventDelivery = "DELIVERY"
	// EventPickup is a pickup.
	EventPickup = "PICKUP"
	// EventAlert is an anomaly, reported by a resident or a sensor.
	EventAlert = "ALERT"
)

var table = map[string]Status{
	EventDelivery: InUse,
	EventPickup:   Available,
	EventAlert:    Alert,
}

// NormalizeType trims and upper-cases an event type.
func NormalizeType(eventType string) string {
	return strings.ToUpper(strings.TrimSpace(eventType))
}

// Derive returns the status a box takes after an event of eventType. Unknown types leave current
// unchanged.
func Derive(eventType string, current Status) Status {
	if next, ok := table[NormalizeType(eventType)]; ok {
		return next
	}

	return current
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case Available, InUse, Alert:
		return true
	default:
		return false
	}
}
