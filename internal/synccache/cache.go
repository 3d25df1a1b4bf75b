// Package synccache keeps a client side copy of the server state: users, boxes, history and the
// settings row. The copy is replaced wholesale by Bootstrap and patched by optimistic mutators.
// Readers get deep copies; observers are notified after every change.
package synccache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxwatch/boxwatch/internal/db/models"
	"github.com/boxwatch/boxwatch/internal/web/handler/bootstrap"
	"github.com/boxwatch/boxwatch/internal/web/handler/events"
)

// API is the subset of the REST client the cache needs.
type API interface {
	Bootstrap(ctx context.Context) (*bootstrap.Response, error)
	UpdateSettings(ctx context.Context, patch models.SettingsPatch) (*models.SettingsView, error)
	VerifyPin(ctx context.Context, pin string) (bool, error)
	EnableAdminMode(ctx context.Context, pin string) (bool, *models.SettingsView, error)
	AppendEvent(ctx context.Context, req events.Request) (*models.Event, error)
}

// Snapshot is a point in time copy of the cache.
type Snapshot struct {
	// Ready is set by the first successful Bootstrap.
	Ready    bool
	Users    []models.User
	Boxes    []models.Box
	History  []models.HistoryEntry
	Settings models.SettingsView
	// Dirty marks local settings that the server has not confirmed.
	Dirty bool
	// LastError is the last failed call, empty after a success.
	LastError  string
	LastSyncAt time.Time
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}

func (s Snapshot) clone() Snapshot {
	out := s

	out.Users = append([]models.User(nil), s.Users...)
	out.Boxes = append([]models.Box(nil), s.Boxes...)
	out.History = make([]models.HistoryEntry, len(s.History))

	for i, h := range s.History {
		h.BoxName = cloneStr(h.BoxName)
		h.BoxLocation = cloneStr(h.BoxLocation)
		h.UserID = cloneStr(h.UserID)
		h.UserName = cloneStr(h.UserName)
		out.History[i] = h
	}

	out.Settings.CurrentUserID = cloneStr(s.Settings.CurrentUserID)
	out.Settings.SensorBoundBoxID = cloneStr(s.Settings.SensorBoundBoxID)

	return out
}

// Cache is safe for concurrent use.
type Cache struct {
	api API

	mu      sync.Mutex
	state   Snapshot
	nextSub int
	subs    map[int]func(Snapshot)
}

// New returns an empty, not ready cache backed by api.
func New(api API) *Cache {
	return &Cache{
		api:  api,
		subs: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a deep copy of the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.clone()
}

// Subscribe registers fn to receive a snapshot after every change. The returned func removes it.
func (c *Cache) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// update applies fn under the lock and then notifies observers outside of it.
func (c *Cache) update(fn func(s *Snapshot)) {
	c.mu.Lock()
	fn(&c.state)

	snap := c.state.clone()
	subs := make([]func(Snapshot), 0, len(c.subs))

	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(snap.clone())
	}
}

func (c *Cache) fail(op string, err error) {
	log.Warn().Err(err).Str("op", op).Msg("sync cache call failed")

	c.update(func(s *Snapshot) {
		s.LastError = err.Error()
	})
}

// CurrentUserID returns the acting resident or "".
func (c *Cache) CurrentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Settings.CurrentUserID == nil {
		return ""
	}

	return *c.state.Settings.CurrentUserID
}

// BoundBoxID returns the box the sensor reports for or "".
func (c *Cache) BoundBoxID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Settings.SensorBoundBoxID == nil {
		return ""
	}

	return *c.state.Settings.SensorBoundBoxID
}

// Bootstrap replaces the local state with a fresh server snapshot. On failure the previous state
// is kept and the error recorded.
func (c *Cache) Bootstrap(ctx context.Context) error {
	resp, err := c.api.Bootstrap(ctx)
	if err != nil {
		c.fail("bootstrap", err)
		return err
	}

	c.update(func(s *Snapshot) {
		*s = Snapshot{
			Ready:      true,
			Users:      resp.Users,
			Boxes:      resp.Boxes,
			History:    resp.History,
			Settings:   resp.Settings,
			LastSyncAt: time.Now().UTC(),
		}
	})

	return nil
}

// patch applies local optimistically, sends p and takes the server answer as the new settings.
// A failure keeps the local value and marks the snapshot dirty.
func (c *Cache) patch(ctx context.Context, op string, p models.SettingsPatch, local func(v *models.SettingsView)) bool {
	c.update(func(s *Snapshot) {
		local(&s.Settings)
	})

	view, err := c.api.UpdateSettings(ctx, p)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("settings update not confirmed, keeping local value")

		c.update(func(s *Snapshot) {
			s.Dirty = true
			s.LastError = err.Error()
		})

		return false
	}

	c.update(func(s *Snapshot) {
		s.Settings = *view
		s.Dirty = false
		s.LastError = ""
	})

	return true
}

// SetCurrentUser selects the acting resident.
func (c *Cache) SetCurrentUser(ctx context.Context, userID string) bool {
	return c.patch(ctx, "set current user", models.SettingsPatch{CurrentUserID: models.Set(userID)},
		func(v *models.SettingsView) {
			id := userID
			v.CurrentUserID = &id
		})
}

// SetShowAlertBanner toggles the alert banner.
func (c *Cache) SetShowAlertBanner(ctx context.Context, show bool) bool {
	return c.patch(ctx, "set alert banner", models.SettingsPatch{ShowAlertBanner: models.Set(show)},
		func(v *models.SettingsView) {
			v.ShowAlertBanner = show
		})
}

// SetAdminPin sets the admin PIN; "" clears it. Either way admin mode is left, so a new PIN has to
// be entered before admin mode comes back.
func (c *Cache) SetAdminPin(ctx context.Context, pin string) bool {
	p := models.SettingsPatch{AdminPin: models.Set(pin), IsAdminMode: models.Set(false)}
	if pin == "" {
		p.AdminPin = models.Null[string]()
	}

	return c.patch(ctx, "set admin pin", p, func(v *models.SettingsView) {
		v.HasAdminPin = pin != ""
		v.IsAdminMode = false
	})
}

// DisableAdminMode leaves admin mode.
func (c *Cache) DisableAdminMode(ctx context.Context) bool {
	return c.patch(ctx, "disable admin mode", models.SettingsPatch{IsAdminMode: models.Set(false)},
		func(v *models.SettingsView) {
			v.IsAdminMode = false
		})
}

// BindSensorBox makes boxID the box the simulator reports for.
func (c *Cache) BindSensorBox(ctx context.Context, boxID string) bool {
	return c.patch(ctx, "bind sensor box", models.SettingsPatch{SensorBoundBoxID: models.Set(boxID)},
		func(v *models.SettingsView) {
			id := boxID
			v.SensorBoundBoxID = &id
		})
}

// UnbindSensorBox clears the sensor binding.
func (c *Cache) UnbindSensorBox(ctx context.Context) bool {
	return c.patch(ctx, "unbind sensor box", models.SettingsPatch{SensorBoundBoxID: models.Null[string]()},
		func(v *models.SettingsView) {
			v.SensorBoundBoxID = nil
		})
}

// EnableAdminMode asks the server to enter admin mode with pin. Nothing changes locally until the
// server accepts the PIN.
func (c *Cache) EnableAdminMode(ctx context.Context, pin string) bool {
	enabled, view, err := c.api.EnableAdminMode(ctx, pin)
	if err != nil {
		c.fail("enable admin mode", err)
		return false
	}

	c.update(func(s *Snapshot) {
		s.Settings = *view
		s.Dirty = false
		s.LastError = ""
	})

	return enabled
}

// VerifyPin asks the server whether pin matches. Errors count as no match.
func (c *Cache) VerifyPin(ctx context.Context, pin string) bool {
	ok, err := c.api.VerifyPin(ctx, pin)
	if err != nil {
		c.fail("verify pin", err)
		return false
	}

	return ok
}

// LogEvent appends an event as the current user and then reloads the snapshot so history and box
// status reflect it. It reports whether the append succeeded.
func (c *Cache) LogEvent(ctx context.Context, boxID, eventType, note string) bool {
	req := events.Request{BoxID: boxID, Type: eventType, Note: note}

	if user := c.CurrentUserID(); user != "" {
		req.UserID = &user
	}

	if _, err := c.api.AppendEvent(ctx, req); err != nil {
		c.fail("log event", err)
		return false
	}

	_ = c.Bootstrap(ctx)

	return true
}
