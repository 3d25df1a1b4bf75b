package telemetry

import (
	"encoding/json"
	"time"
)

// FrameSensor is the only frame type a device sends.
const FrameSensor = "sensor"

// Door states reported in a Reading.
const (
	DoorOpen   = "OPEN"
	DoorClosed = "CLOSED"
)

// Frame is one message sent by a device on the telemetry channel.
type Frame struct {
	Type     string          `json:"type"`
	BoxID    string          `json:"boxId"`
	DeviceID string          `json:"deviceId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Ack is the server reply to every frame.
type Ack struct {
	OK        bool   `json:"ok"`
	Type      string `json:"type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Reading is the payload of a sensor frame.
type Reading struct {
	TS        string  `json:"ts"`
	Vibration float64 `json:"vibration"`
	Door      string  `json:"door"`
	Battery   int     `json:"battery"`
}

// Time parses TS. ok is false when TS is missing or not RFC 3339.
func (r Reading) Time() (t time.Time, ok bool) {
	if r.TS == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(time.RFC3339Nano, r.TS)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// NewSensorFrame wraps r into a sensor frame.
func NewSensorFrame(boxID, deviceID string, r Reading) (Frame, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return Frame{}, err
	}

	return Frame{Type: FrameSensor, BoxID: boxID, DeviceID: deviceID, Payload: payload}, nil
}

func errorAck(msg string) Ack {
	return Ack{OK: false, Error: msg}
}
