package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/boxwatch/boxwatch/internal/telemetry"
)

const (
	// VibrationThreshold is the vibration level above which a reading is abnormal.
	VibrationThreshold = 0.7
	// DoorOpenProbability is the share of readings reporting an open door.
	DoorOpenProbability = 0.15

	batteryMin = 60
	batteryMax = 100
)

// GenerateReading draws one synthetic reading taken at now.
func GenerateReading(rng *rand.Rand, now time.Time) telemetry.Reading {
	door := telemetry.DoorClosed
	vibration := math.Floor(rng.Float64()*1000) / 1000

	if rng.Float64() < DoorOpenProbability {
		door = telemetry.DoorOpen
	}

	return telemetry.Reading{
		TS:        now.UTC().Format(time.RFC3339Nano),
		Vibration: vibration,
		Door:      door,
		Battery:   batteryMin + rng.IntN(batteryMax-batteryMin),
	}
}

// Classify reports whether r is abnormal and which conditions triggered.
func Classify(r telemetry.Reading) (abnormal bool, reasons []string) {
	if r.Vibration > VibrationThreshold {
		reasons = append(reasons, fmt.Sprintf("vibration %.3f > %.1f", r.Vibration, VibrationThreshold))
	}

	if r.Door == telemetry.DoorOpen {
		reasons = append(reasons, "door OPEN")
	}

	return len(reasons) > 0, reasons
}
