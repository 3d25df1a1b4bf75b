package simulator

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxwatch/boxwatch/internal/apiclient"
	"github.com/boxwatch/boxwatch/internal/boxstatus"
	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/synccache"
	"github.com/boxwatch/boxwatch/internal/telemetry"
	"github.com/boxwatch/boxwatch/internal/testutil"
)

type loggedEvent struct {
	boxID, eventType, note string
}

type fakeSession struct {
	mu     sync.Mutex
	box    string
	fail   bool
	logged []loggedEvent
}

func (f *fakeSession) BoundBoxID() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.box
}

func (f *fakeSession) LogEvent(_ context.Context, boxID, eventType, note string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logged = append(f.logged, loggedEvent{boxID, eventType, note})

	return !f.fail
}

func (f *fakeSession) events() []loggedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]loggedEvent(nil), f.logged...)
}

// fakeConn acknowledges every written frame, optionally rejecting it. Accepted frames carry stamp
// as the persisted time.
type fakeConn struct {
	mu     sync.Mutex
	frames []telemetry.Frame
	reject string
	stamp  string

	acks      chan telemetry.Ack
	readErr   chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		acks:    make(chan telemetry.Ack, 64),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	f, ok := v.(telemetry.Frame)
	if !ok {
		return errors.New("unexpected frame type")
	}

	c.mu.Lock()
	c.frames = append(c.frames, f)
	ack := telemetry.Ack{OK: c.reject == "", Type: telemetry.FrameSensor, Error: c.reject}
	if ack.OK {
		ack.Timestamp = c.stamp
	}
	c.mu.Unlock()

	select {
	case c.acks <- ack:
		return nil
	case <-c.closed:
		return errors.New("use of closed network connection")
	}
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case ack := <-c.acks:
		*(v.(*telemetry.Ack)) = ack
		return nil
	case err := <-c.readErr:
		return err
	case <-c.closed:
		return errors.New("use of closed network connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.frames)
}

func dialer(conn *fakeConn) Dialer {
	return func(context.Context, string) (Conn, error) { return conn, nil }
}

func fixed(vibration float64, door string) func(time.Time) telemetry.Reading {
	return func(now time.Time) telemetry.Reading {
		return telemetry.Reading{TS: now.UTC().Format(time.RFC3339Nano), Vibration: vibration, Door: door, Battery: 80}
	}
}

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultInterval},
		{100 * time.Millisecond, MinInterval},
		{MinInterval, MinInterval},
		{10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Options{Interval: tt.in}.normalize().Interval, "interval %s", tt.in)
	}

	assert.Equal(t, DefaultDeviceID, Options{}.normalize().DeviceID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		reading  telemetry.Reading
		abnormal bool
		reasons  int
	}{
		{"calm closed", telemetry.Reading{Vibration: 0.2, Door: telemetry.DoorClosed}, false, 0},
		{"threshold is normal", telemetry.Reading{Vibration: 0.7, Door: telemetry.DoorClosed}, false, 0},
		{"vibration", telemetry.Reading{Vibration: 0.9, Door: telemetry.DoorClosed}, true, 1},
		{"door open", telemetry.Reading{Vibration: 0.1, Door: telemetry.DoorOpen}, true, 1},
		{"both", telemetry.Reading{Vibration: 0.95, Door: telemetry.DoorOpen}, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abnormal, reasons := Classify(tt.reading)
			assert.Equal(t, tt.abnormal, abnormal)
			assert.Len(t, reasons, tt.reasons)
		})
	}
}

func TestGenerateReading(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	const n = 10000

	open := 0

	for i := 0; i < n; i++ {
		r := GenerateReading(rng, now)

		assert.GreaterOrEqual(t, r.Vibration, 0.0)
		assert.Less(t, r.Vibration, 1.0)
		assert.InDelta(t, r.Vibration, float64(int(r.Vibration*1000+0.5))/1000, 1e-9, "3 decimals")
		assert.GreaterOrEqual(t, r.Battery, 60)
		assert.Less(t, r.Battery, 100)
		assert.Contains(t, []string{telemetry.DoorOpen, telemetry.DoorClosed}, r.Door)

		if r.Door == telemetry.DoorOpen {
			open++
		}

		ts, ok := r.Time()
		require.True(t, ok)
		require.True(t, ts.Equal(now))
	}

	assert.InDelta(t, DoorOpenProbability, float64(open)/n, 0.03)
}

func TestStart_NoBoxBound(t *testing.T) {
	sim := New("ws://unused", &fakeSession{})

	assert.False(t, sim.Start(Options{}))

	st := sim.Status()
	assert.False(t, st.Running)
	assert.Equal(t, Disconnected, st.State)
	assert.Equal(t, ErrNoBoxBound.Error(), st.LastError)
}

func TestStart_StreamsAndRaisesAlert(t *testing.T) {
	session := &fakeSession{box: "B02"}
	conn := newFakeConn()

	sim := New("ws://unused", session).
		WithDialer(dialer(conn)).
		WithGenerator(fixed(0.9, telemetry.DoorClosed))

	require.True(t, sim.Start(Options{DeviceID: "phone", Interval: MinInterval}))
	assert.True(t, sim.Start(Options{}), "already running")

	require.Eventually(t, func() bool { return !sim.Status().LastAnomalyAt.IsZero() }, 3*time.Second, 10*time.Millisecond)

	require.NotEmpty(t, session.events())
	ev := session.events()[0]
	assert.Equal(t, "B02", ev.boxID)
	assert.Equal(t, boxstatus.EventAlert, ev.eventType)
	assert.Contains(t, ev.note, "vibration 0.900 > 0.7")

	st := sim.Status()
	assert.True(t, st.Running)
	assert.Equal(t, Open, st.State)
	assert.Equal(t, "B02", st.BoxID)
	assert.False(t, st.LastSentAt.IsZero())
	assert.False(t, st.LastAnomalyAt.IsZero())
	assert.Empty(t, st.LastError)

	conn.mu.Lock()
	first := conn.frames[0]
	conn.mu.Unlock()
	assert.Equal(t, "phone", first.DeviceID)
	assert.Equal(t, telemetry.FrameSensor, first.Type)

	sim.Stop()
	sim.Stop()
	sim.Wait()

	st = sim.Status()
	assert.False(t, st.Running)
	assert.Equal(t, Disconnected, st.State)
	assert.True(t, conn.isClosed())

	sent := conn.sent()
	time.Sleep(2 * MinInterval)
	assert.Equal(t, sent, conn.sent(), "nothing is sent after Stop")
}

func TestNormalReadingsRaiseNothing(t *testing.T) {
	session := &fakeSession{box: "B01"}
	conn := newFakeConn()

	sim := New("ws://unused", session).
		WithDialer(dialer(conn)).
		WithGenerator(fixed(0.1, telemetry.DoorClosed))

	require.True(t, sim.Start(Options{Interval: MinInterval}))
	require.Eventually(t, func() bool { return conn.sent() >= 2 }, 3*time.Second, 10*time.Millisecond)

	sim.Stop()
	sim.Wait()

	assert.Empty(t, session.events())
	assert.True(t, sim.Status().LastAnomalyAt.IsZero())
}

func TestDialFailureThenRestart(t *testing.T) {
	session := &fakeSession{box: "B01"}
	conn := newFakeConn()
	fail := true

	var mu sync.Mutex

	sim := New("ws://unused", session).
		WithGenerator(fixed(0.1, telemetry.DoorClosed)).
		WithDialer(func(context.Context, string) (Conn, error) {
			mu.Lock()
			defer mu.Unlock()

			if fail {
				return nil, errors.New("connection refused")
			}

			return conn, nil
		})

	require.True(t, sim.Start(Options{}))
	require.Eventually(t, func() bool { return !sim.Status().Running }, 3*time.Second, 10*time.Millisecond)

	st := sim.Status()
	assert.Equal(t, Disconnected, st.State)
	assert.Contains(t, st.LastError, "connection refused")

	mu.Lock()
	fail = false
	mu.Unlock()

	require.True(t, sim.Start(Options{}))
	assert.Empty(t, sim.Status().LastError, "a new run starts without the old error")

	require.Eventually(t, func() bool { return !sim.Status().LastSentAt.IsZero() }, 3*time.Second, 10*time.Millisecond)

	st = sim.Status()
	assert.Equal(t, Open, st.State)
	assert.Empty(t, st.LastError)

	sim.Stop()
	sim.Wait()
}

func TestAcceptedReadingClearsErrorAndUsesServerTime(t *testing.T) {
	conn := newFakeConn()
	conn.reject = "database is locked"

	sim := New("ws://unused", &fakeSession{box: "B01"}).
		WithDialer(dialer(conn)).
		WithGenerator(fixed(0.1, telemetry.DoorClosed))

	require.True(t, sim.Start(Options{Interval: MinInterval}))
	require.Eventually(t, func() bool { return sim.Status().LastError != "" }, 3*time.Second, 10*time.Millisecond)
	assert.True(t, sim.Status().LastSentAt.IsZero(), "a rejected reading is not sent")

	persisted := time.Date(2026, 5, 6, 7, 8, 9, 123000000, time.UTC)

	conn.mu.Lock()
	conn.reject = ""
	conn.stamp = persisted.Format(time.RFC3339Nano)
	conn.mu.Unlock()

	require.Eventually(t, func() bool { return !sim.Status().LastSentAt.IsZero() }, 3*time.Second, 10*time.Millisecond)

	st := sim.Status()
	assert.True(t, st.LastSentAt.Equal(persisted), "sent time comes from the ack, got %s", st.LastSentAt)
	assert.Empty(t, st.LastError)

	sim.Stop()
	sim.Wait()
}

func TestFailedAlertLeavesAnomalyUnset(t *testing.T) {
	session := &fakeSession{box: "B03", fail: true}
	conn := newFakeConn()

	sim := New("ws://unused", session).
		WithDialer(dialer(conn)).
		WithGenerator(fixed(0.1, telemetry.DoorOpen))

	require.True(t, sim.Start(Options{Interval: 10 * time.Second}))
	require.Eventually(t, func() bool { return len(session.events()) > 0 }, 3*time.Second, 10*time.Millisecond)

	sim.Stop()
	sim.Wait()

	assert.True(t, sim.Status().LastAnomalyAt.IsZero(), "anomaly time is recorded only for a logged alert")
}

func TestConnectionDropIsRecorded(t *testing.T) {
	conn := newFakeConn()
	sim := New("ws://unused", &fakeSession{box: "B01"}).
		WithDialer(dialer(conn)).
		WithGenerator(fixed(0.1, telemetry.DoorClosed))

	require.True(t, sim.Start(Options{Interval: 10 * time.Second}))
	require.Eventually(t, func() bool { return conn.sent() == 1 }, 3*time.Second, 10*time.Millisecond)

	conn.readErr <- errors.New("websocket: close 1006 (abnormal closure)")

	require.Eventually(t, func() bool { return !sim.Status().Running }, 3*time.Second, 10*time.Millisecond)

	st := sim.Status()
	assert.Equal(t, Disconnected, st.State)
	assert.Contains(t, st.LastError, "abnormal closure")

	sim.Wait()
	assert.True(t, conn.isClosed())
}

func TestServerRejectionIsRecorded(t *testing.T) {
	conn := newFakeConn()
	conn.reject = "boxId required"

	session := &fakeSession{box: "B01"}
	sim := New("ws://unused", session).
		WithDialer(dialer(conn)).
		WithGenerator(fixed(0.99, telemetry.DoorOpen))

	require.True(t, sim.Start(Options{Interval: 10 * time.Second}))
	require.Eventually(t, func() bool { return sim.Status().LastError != "" }, 3*time.Second, 10*time.Millisecond)

	assert.Contains(t, sim.Status().LastError, "boxId required")
	assert.True(t, sim.Status().Running, "a rejected frame keeps the connection")
	assert.True(t, sim.Status().LastSentAt.IsZero())
	assert.Empty(t, session.events(), "no alert for a reading the server did not store")

	sim.Stop()
	sim.Wait()
}

func TestSimulator_AgainstServer(t *testing.T) {
	srv := testutil.StartServer(t)
	client := apiclient.New(config.Client{BaseURL: srv.URL})
	cache := synccache.New(client)
	ctx := context.Background()

	require.NoError(t, cache.Bootstrap(ctx))
	require.True(t, cache.BindSensorBox(ctx, "B02"))

	url, err := client.WebsocketURL(srv.Cfg.Telemetry.Path)
	require.NoError(t, err)

	sim := New(url, cache).WithGenerator(fixed(0.9, telemetry.DoorClosed))

	require.True(t, sim.Start(Options{DeviceID: "phone", Interval: 10 * time.Second}))

	require.Eventually(t, func() bool {
		snap := cache.Snapshot()
		return len(snap.History) > 0 && snap.History[0].Type == boxstatus.EventAlert
	}, 5*time.Second, 20*time.Millisecond)

	snap := cache.Snapshot()
	assert.Equal(t, "B02", snap.History[0].BoxID)

	for _, b := range snap.Boxes {
		if b.ID == "B02" {
			assert.Equal(t, boxstatus.Alert, b.Status)
		}
	}

	reading, err := client.SensorLatest(ctx, "B02")
	require.NoError(t, err)
	require.NotNil(t, reading)
	assert.Equal(t, "phone", reading.DeviceID)
	assert.Contains(t, string(reading.Payload), `"vibration":0.9`)

	sim.Stop()
	sim.Wait()
	assert.False(t, sim.Status().Running)
}
