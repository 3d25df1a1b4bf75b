// Package sensor accepts readings over plain HTTP and serves the latest reading per box.
package sensor

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	controller "github.com/boxwatch/boxwatch/internal/db/controller/sensor"
	"github.com/boxwatch/boxwatch/internal/metrics"
	"github.com/boxwatch/boxwatch/internal/telemetry"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

const (
	// Path is the sensor route below the API prefix.
	Path = "/sensor"
	// LatestPath is the latest reading route below Path.
	LatestPath = "/latest"
)

// Request is the body of POST /api/sensor.
type Request struct {
	BoxID    string          `json:"boxId"`
	DeviceID string          `json:"deviceId"`
	Payload  json.RawMessage `json:"payload"`
}

// Service is the sensor handler service.
type Service struct {
	db     *gorm.DB
	ingest *telemetry.Server
}

// Init registers POST /api/sensor and GET /api/sensor/latest. Readings go through ingest so both
// transports share persistence, metrics and fan-out.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, ingest *telemetry.Server) error {
	if app == nil || cfg == nil || db == nil || ingest == nil {
		return handler.ErrNilACD
	}

	s.db = db
	s.ingest = ingest

	app.Route(handler.APIPrefix+Path, func(router fiber.Router) {
		router.Post(handler.RouterRootPath, s.Create)
		router.Get(LatestPath, s.Latest)
	})

	return nil
}

// Create stores one reading. 400 when boxId is missing.
func (s *Service) Create(c *fiber.Ctx) error {
	var req Request

	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			metrics.ReadingsTotal.WithLabelValues(metrics.SourceREST, metrics.ResultInvalid).Inc()
			return handler.Fail(c, fiber.StatusBadRequest, "invalid body: "+err.Error())
		}
	}

	_, err := s.ingest.Ingest(c.UserContext(), telemetry.Frame{
		Type:     telemetry.FrameSensor,
		BoxID:    req.BoxID,
		DeviceID: req.DeviceID,
		Payload:  req.Payload,
	}, metrics.SourceREST)
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// Latest returns the newest reading of ?boxId=, or null when the box has none.
func (s *Service) Latest(c *fiber.Ctx) error {
	reading, err := controller.Latest(c.UserContext(), s.db, c.Query("boxId"))
	if err != nil {
		return handler.FailErr(c, err)
	}

	if reading == nil {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString("null")
	}

	return c.JSON(reading)
}
