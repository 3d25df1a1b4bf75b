// Package events accepts status events from residents and devices.
package events

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/controller/event"
	"github.com/boxwatch/boxwatch/internal/fanout"
	"github.com/boxwatch/boxwatch/internal/metrics"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

// Path is the events route below the API prefix.
const Path = "/events"

// Request is the body of POST /api/events.
type Request struct {
	BoxID  string  `json:"boxId"`
	Type   string  `json:"type"`
	Note   string  `json:"note"`
	UserID *string `json:"userId"`
}

// Service is the events handler service.
type Service struct {
	db  *gorm.DB
	pub fanout.Publisher
}

// Init registers POST /api/events. Appended events are republished through pub.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, pub fanout.Publisher) error {
	if app == nil || cfg == nil || db == nil {
		return handler.ErrNilACD
	}

	if pub == nil {
		pub = fanout.Nop{}
	}

	s.db = db
	s.pub = pub

	app.Post(handler.APIPrefix+Path, s.Create)

	return nil
}

// Create appends one event. 400 when boxId or type is missing, 500 when the transaction fails.
func (s *Service) Create(c *fiber.Ctx) error {
	var req Request

	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return handler.Fail(c, fiber.StatusBadRequest, "invalid body: "+err.Error())
		}
	}

	ev, err := event.Append(c.UserContext(), s.db, event.Input{
		BoxID:  req.BoxID,
		Type:   req.Type,
		Note:   req.Note,
		UserID: req.UserID,
	})
	if err != nil {
		return handler.FailErr(c, err)
	}

	metrics.EventsTotal.WithLabelValues(ev.Type).Inc()
	fanout.Go(s.pub, fanout.Message{Kind: fanout.KindEvent, BoxID: ev.BoxID, Body: ev})

	return c.JSON(fiber.Map{"ok": true, "event": ev})
}
