// Package telemetry implements the server side of the sensor streaming channel: one websocket per
// device, JSON frames in, one acknowledgement out per frame.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/controller/sensor"
	"github.com/boxwatch/boxwatch/internal/db/models"
	"github.com/boxwatch/boxwatch/internal/fanout"
	"github.com/boxwatch/boxwatch/internal/metrics"
)

// DefaultPath is the websocket route used when none is configured.
const DefaultPath = "/ws"

const (
	defaultReadLimit    = 64 * 1024
	defaultWriteTimeout = 5 * time.Second
)

// Server persists readings received over websockets or REST.
type Server struct {
	db           *gorm.DB
	pub          fanout.Publisher
	readLimit    int64
	writeTimeout time.Duration
	now          func() time.Time
}

// NewServer returns a Server writing to db and republishing through pub.
func NewServer(db *gorm.DB, pub fanout.Publisher, cfg config.Telemetry) *Server {
	if pub == nil {
		pub = fanout.Nop{}
	}

	s := &Server{
		db:           db,
		pub:          pub,
		readLimit:    cfg.ReadLimit,
		writeTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}

	if s.readLimit <= 0 {
		s.readLimit = defaultReadLimit
	}

	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultWriteTimeout
	}

	return s
}

// Register mounts the websocket endpoint on path. Plain HTTP requests get 426.
func (s *Server) Register(router fiber.Router, path string) {
	router.Use(path, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}

		return fiber.ErrUpgradeRequired
	})

	router.Get(path, websocket.New(s.serve))
}

// serve runs in its own goroutine per connection. Frames are handled strictly in arrival order and
// a bad frame never closes the connection.
func (s *Server) serve(c *websocket.Conn) {
	connID := uuid.NewString()
	logger := log.With().Str("conn", connID).Str("remote", c.RemoteAddr().String()).Logger()

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	c.SetReadLimit(s.readLimit)
	logger.Info().Msg("telemetry client connected")

	for {
		mt, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("telemetry connection dropped")
			}

			break
		}

		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		ack := s.Handle(context.Background(), msg)

		_ = c.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err = c.WriteJSON(ack); err != nil {
			logger.Warn().Err(err).Msg("failed to write telemetry ack")
			break
		}
	}

	logger.Info().Msg("telemetry client disconnected")
}

// Handle decodes and processes one raw frame and returns the acknowledgement to send back.
func (s *Server) Handle(ctx context.Context, raw []byte) Ack {
	var f Frame

	if err := json.Unmarshal(raw, &f); err != nil {
		metrics.ReadingsTotal.WithLabelValues(metrics.SourceWebsocket, metrics.ResultInvalid).Inc()
		return errorAck("invalid frame: " + err.Error())
	}

	switch strings.ToLower(strings.TrimSpace(f.Type)) {
	case FrameSensor:
	case "":
		metrics.ReadingsTotal.WithLabelValues(metrics.SourceWebsocket, metrics.ResultInvalid).Inc()
		return errorAck("type required")
	default:
		metrics.ReadingsTotal.WithLabelValues(metrics.SourceWebsocket, metrics.ResultInvalid).Inc()
		return errorAck(fmt.Sprintf("unknown frame type %q", f.Type))
	}

	reading, err := s.Ingest(ctx, f, metrics.SourceWebsocket)
	if err != nil {
		return errorAck(err.Error())
	}

	return Ack{OK: true, Type: FrameSensor, Timestamp: reading.CreatedAt.Format(time.RFC3339Nano)}
}

// Ingest validates and persists the reading carried by f, then hands it to the fan-out publisher.
// A missing box id is a *apperror.ValidationError and nothing is written.
func (s *Server) Ingest(ctx context.Context, f Frame, source string) (*models.SensorReading, error) {
	if strings.TrimSpace(f.BoxID) == "" {
		metrics.ReadingsTotal.WithLabelValues(source, metrics.ResultInvalid).Inc()
		return nil, apperror.Required("boxId")
	}

	received := s.now()

	event := log.Debug().Str("boxId", f.BoxID).Str("deviceId", f.DeviceID).Str("source", source)

	var r Reading
	if len(f.Payload) > 0 && json.Unmarshal(f.Payload, &r) == nil {
		if sent, ok := r.Time(); ok {
			latency := received.Sub(sent)
			if latency >= 0 {
				metrics.ReadingLatency.Observe(latency.Seconds())
			}

			event = event.Dur("networkLatency", latency)
		}

		event = event.Float64("vibration", r.Vibration).Str("door", r.Door)
	}

	start := time.Now()

	reading, err := sensor.Insert(ctx, s.db, sensor.Input{BoxID: f.BoxID, DeviceID: f.DeviceID, Payload: f.Payload})
	if err != nil {
		metrics.ReadingsTotal.WithLabelValues(source, metrics.ResultError).Inc()
		log.Error().Err(err).Str("boxId", f.BoxID).Str("source", source).Msg("failed to persist sensor reading")

		return nil, err
	}

	dbLatency := time.Since(start)
	metrics.ReadingPersistDuration.Observe(dbLatency.Seconds())
	metrics.ReadingsTotal.WithLabelValues(source, metrics.ResultOK).Inc()

	event.Dur("dbLatency", dbLatency).Uint64("readingId", reading.ID).Msg("sensor reading stored")

	fanout.Go(s.pub, fanout.Message{Kind: fanout.KindReading, BoxID: reading.BoxID, Body: reading})

	return reading, nil
}
