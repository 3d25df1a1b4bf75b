// Package simulator streams synthetic sensor readings for the bound box over the telemetry
// websocket and raises ALERT events for abnormal readings.
//
// A single run goroutine owns the connection. The reader goroutine only forwards typed events to
// it, so connection state changes in one place.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/boxwatch/boxwatch/internal/boxstatus"
	"github.com/boxwatch/boxwatch/internal/telemetry"
)

// State is the connection state.
type State string

// Connection states.
const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Open         State = "OPEN"
)

const (
	// DefaultInterval applies when Options.Interval is zero.
	DefaultInterval = 3 * time.Second
	// MinInterval is the shortest allowed send interval.
	MinInterval = 500 * time.Millisecond

	// DefaultDeviceID identifies readings when Options.DeviceID is empty.
	DefaultDeviceID = "simulator"
)

// ErrNoBoxBound is recorded when Start is called without a bound box.
var ErrNoBoxBound = errors.New("no box bound to the sensor")

// Session is the client state the simulator reads its binding from and logs anomalies through.
type Session interface {
	BoundBoxID() string
	LogEvent(ctx context.Context, boxID, eventType, note string) bool
}

// Conn is the websocket connection used by the run loop.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Dialer opens the telemetry connection.
type Dialer func(ctx context.Context, url string) (Conn, error)

// GorillaDialer dials with gorilla/websocket.
func GorillaDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Options configure one run.
type Options struct {
	DeviceID string
	Interval time.Duration
}

func (o Options) normalize() Options {
	if o.DeviceID == "" {
		o.DeviceID = DefaultDeviceID
	}

	switch {
	case o.Interval == 0:
		o.Interval = DefaultInterval
	case o.Interval < MinInterval:
		o.Interval = MinInterval
	}

	return o
}

// Status is a snapshot of the simulator.
type Status struct {
	Running       bool
	State         State
	BoxID         string
	LastSentAt    time.Time
	LastError     string
	LastAnomalyAt time.Time
}

// event is what the reader goroutine hands to the run loop.
type event interface{ isEvent() }

type ackEvent struct{ ack telemetry.Ack }

type closedEvent struct{ err error }

func (ackEvent) isEvent()    {}
func (closedEvent) isEvent() {}

// Simulator is safe for concurrent use.
type Simulator struct {
	url     string
	session Session
	dial    Dialer
	now     func() time.Time

	genMu sync.Mutex
	gen   func(now time.Time) telemetry.Reading

	mu     sync.Mutex
	status Status
	run    uint64 // incremented on every Start and Stop, stale runs stop touching status
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a stopped simulator that dials url.
func New(url string, session Session) *Simulator {
	sim := &Simulator{
		url:     url,
		session: session,
		dial:    GorillaDialer,
		now:     time.Now,
		status:  Status{State: Disconnected},
	}

	return sim.WithRand(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))) //nolint:gosec
}

// WithDialer replaces the websocket dialer.
func (s *Simulator) WithDialer(d Dialer) *Simulator {
	s.dial = d
	return s
}

// WithRand draws readings from rng.
func (s *Simulator) WithRand(rng *rand.Rand) *Simulator {
	return s.WithGenerator(func(now time.Time) telemetry.Reading {
		return GenerateReading(rng, now)
	})
}

// WithGenerator replaces the reading generator.
func (s *Simulator) WithGenerator(gen func(now time.Time) telemetry.Reading) *Simulator {
	s.gen = gen
	return s
}

// Status returns a snapshot.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Start begins streaming for the bound box. It returns false when no box is bound and true when a
// run was started or is already going. Connection failures show up in Status.
func (s *Simulator) Start(opts Options) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Running {
		return true
	}

	box := s.session.BoundBoxID()
	if box == "" {
		s.status.LastError = ErrNoBoxBound.Error()
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.run++
	s.cancel = cancel
	s.status.Running = true
	s.status.State = Connecting
	s.status.BoxID = box
	s.status.LastError = ""

	s.wg.Add(1)

	go s.loop(ctx, s.run, box, opts.normalize())

	return true
}

// Stop ends the current run and closes the connection. Appends already in flight finish on their
// own. Calling Stop on a stopped simulator does nothing.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.Running {
		return
	}

	s.run++
	s.cancel()
	s.status.Running = false
	s.status.State = Disconnected
}

// Wait blocks until every run goroutine has returned.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// transition applies fn if run is still the current run.
func (s *Simulator) transition(run uint64, fn func(st *Status)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	fn(&s.status)

	return true
}

// drop records err and leaves the running state. There is no automatic reconnect.
func (s *Simulator) drop(run uint64, err error) {
	s.transition(run, func(st *Status) {
		st.Running = false
		st.State = Disconnected

		if err != nil {
			st.LastError = err.Error()
		}
	})

	if err != nil {
		log.Warn().Err(err).Str("url", s.url).Msg("telemetry connection lost")
	}
}

func (s *Simulator) reading() telemetry.Reading {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	return s.gen(s.now())
}

func (s *Simulator) loop(ctx context.Context, run uint64, box string, opts Options) {
	defer s.wg.Done()

	conn, err := s.dial(ctx, s.url)
	if err != nil {
		s.drop(run, fmt.Errorf("dial telemetry: %w", err))
		return
	}

	defer conn.Close()

	if ctx.Err() != nil {
		return
	}

	if !s.transition(run, func(st *Status) { st.State = Open }) {
		return
	}

	log.Info().Str("boxId", box).Str("deviceId", opts.DeviceID).Dur("interval", opts.Interval).
		Msg("telemetry connection open")

	events := make(chan event, 1)

	go read(ctx, conn, events)

	// acks arrive in send order, so the oldest unacknowledged reading belongs to the next ack
	var pending []telemetry.Reading

	send := func() error {
		r := s.reading()

		frame, err := telemetry.NewSensorFrame(box, opts.DeviceID, r)
		if err != nil {
			return err
		}

		if err = conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("send reading: %w", err)
		}

		pending = append(pending, r)

		return nil
	}

	if err = send(); err != nil {
		s.drop(run, err)
		return
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}

			if err = send(); err != nil {
				s.drop(run, err)
				return
			}
		case ev := <-events:
			switch ev := ev.(type) {
			case ackEvent:
				var r telemetry.Reading
				if len(pending) > 0 {
					r, pending = pending[0], pending[1:]
				}

				s.handleAck(run, box, r, ev.ack)
			case closedEvent:
				if ctx.Err() == nil {
					s.drop(run, ev.err)
				}

				return
			}
		}
	}
}

// handleAck records the outcome of one reading. Only an accepted reading counts as sent, stamped
// with the time the server persisted it.
func (s *Simulator) handleAck(run uint64, box string, r telemetry.Reading, ack telemetry.Ack) {
	if !ack.OK {
		s.transition(run, func(st *Status) { st.LastError = "server rejected reading: " + ack.Error })
		return
	}

	sentAt := s.ackTime(ack)

	s.transition(run, func(st *Status) {
		st.LastSentAt = sentAt
		st.LastError = ""
	})

	abnormal, reasons := Classify(r)
	if !abnormal {
		return
	}

	note := "Anomaly detected: " + strings.Join(reasons, ", ")
	log.Warn().Str("boxId", box).Str("note", note).Msg("abnormal sensor reading")

	// not tied to the run context, Stop must not cancel it
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if !s.session.LogEvent(context.Background(), box, boxstatus.EventAlert, note) {
			log.Error().Str("boxId", box).Msg("failed to log alert event")
			return
		}

		s.mu.Lock()
		s.status.LastAnomalyAt = s.now()
		s.mu.Unlock()
	}()
}

// ackTime is the persisted time carried by ack, or the local clock when it is missing or malformed.
func (s *Simulator) ackTime(ack telemetry.Ack) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, ack.Timestamp); err == nil {
		return t
	}

	return s.now()
}

// read forwards acks until the connection fails or ctx ends.
func read(ctx context.Context, conn Conn, events chan<- event) {
	for {
		var ack telemetry.Ack

		err := conn.ReadJSON(&ack)

		var ev event = ackEvent{ack: ack}
		if err != nil {
			ev = closedEvent{err: err}
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}

		if err != nil {
			return
		}
	}
}
