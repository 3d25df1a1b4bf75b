// Package fanout republishes accepted readings and events to external sinks (redis streams,
// mqtt). Sinks are best effort: a failed publish is logged and counted, never returned to the
// device or client that produced the data.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/metrics"
)

// Message kinds.
const (
	KindReading = "reading"
	KindEvent   = "event"
)

// publishTimeout bounds a single publish across all sinks.
const publishTimeout = 3 * time.Second

// Message is one item to republish.
type Message struct {
	Kind  string
	BoxID string
	Body  any
}

func (m Message) payload() ([]byte, error) {
	return json.Marshal(m.Body)
}

// Publisher is a fan-out sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Nop drops every message.
type Nop struct{}

// Name implements Publisher.
func (Nop) Name() string { return "nop" }

// Publish implements Publisher.
func (Nop) Publish(context.Context, Message) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

// Name implements Publisher.
func (m Multi) Name() string { return "multi" }

// Publish implements Publisher. All sinks are tried even if one fails.
func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error

	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil {
			metrics.FanoutErrorsTotal.WithLabelValues(p.Name()).Inc()
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close implements Publisher.
func (m Multi) Close() error {
	var errs []error

	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Go publishes msg in the background and logs a failure.
func Go(p Publisher, msg Message) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := p.Publish(ctx, msg); err != nil {
			log.Warn().Err(err).Str("kind", msg.Kind).Str("boxId", msg.BoxID).Msg("fan-out publish failed")
		}
	}()
}

// New connects the sinks enabled in cfg. Without any enabled sink it returns Nop.
func New(cfg config.Fanout) (Publisher, error) {
	var sinks Multi

	if cfg.Redis.Enabled {
		r, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}

		sinks = append(sinks, r)
	}

	if cfg.MQTT.Enabled {
		m, err := NewMQTT(cfg.MQTT)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}

		sinks = append(sinks, m)
	}

	if len(sinks) == 0 {
		return Nop{}, nil
	}

	return sinks, nil
}
