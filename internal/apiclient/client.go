// Package apiclient is the HTTP client of the boxwatch REST API used by the sync cache and the
// simulator.
package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/models"
	"github.com/boxwatch/boxwatch/internal/logger/adapter/stdlogger"
	"github.com/boxwatch/boxwatch/internal/web/handler"
	"github.com/boxwatch/boxwatch/internal/web/handler/bootstrap"
	"github.com/boxwatch/boxwatch/internal/web/handler/events"
	"github.com/boxwatch/boxwatch/internal/web/handler/settings"
)

// DefaultTimeout bounds every request when the config carries no timeout.
const DefaultTimeout = 8 * time.Second

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}

	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client talks to one boxwatch server.
type Client struct {
	http    *resty.Client
	baseURL string
}

// New returns a Client for cfg.BaseURL.
func New(cfg config.Client) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := strings.TrimRight(cfg.BaseURL, "/")

	c := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetLogger(stdlogger.New("apiclient")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: c, baseURL: base}
}

// WebsocketURL maps the http base url to the ws url of path.
func (c *Client) WebsocketURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	u.Path = strings.TrimRight(u.Path, "/") + path

	return u.String(), nil
}

// do sends r and turns transport failures and non-2xx answers into *apperror.TransportError.
func do(op string, r *resty.Request, method, path string) error {
	var failure handler.ErrorBody

	resp, err := r.SetError(&failure).Execute(method, path)
	if err != nil {
		return apperror.Transport(op, err)
	}

	if resp.IsError() {
		return apperror.Transport(op, &StatusError{Code: resp.StatusCode(), Message: failure.Error})
	}

	return nil
}

// Bootstrap fetches the full snapshot.
func (c *Client) Bootstrap(ctx context.Context) (*bootstrap.Response, error) {
	var out bootstrap.Response

	err := do("bootstrap", c.http.R().SetContext(ctx).SetResult(&out), resty.MethodGet, "/api/bootstrap")
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Settings fetches the settings row.
func (c *Client) Settings(ctx context.Context) (*models.SettingsView, error) {
	var out settings.Response

	err := do("get settings", c.http.R().SetContext(ctx).SetResult(&out), resty.MethodGet, "/api/settings")
	if err != nil {
		return nil, err
	}

	return &out.Settings, nil
}

// UpdateSettings sends a partial update. Only present patch fields are on the wire.
func (c *Client) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (*models.SettingsView, error) {
	var out settings.Response

	r := c.http.R().SetContext(ctx).SetBody(patch).SetResult(&out)
	if err := do("update settings", r, resty.MethodPut, "/api/settings"); err != nil {
		return nil, err
	}

	return &out.Settings, nil
}

// VerifyPin asks the server whether pin matches the stored PIN.
func (c *Client) VerifyPin(ctx context.Context, pin string) (bool, error) {
	var out settings.VerifyResponse

	r := c.http.R().SetContext(ctx).SetBody(settings.PinRequest{Pin: pin}).SetResult(&out)
	if err := do("verify pin", r, resty.MethodPost, "/api/settings/verify-pin"); err != nil {
		return false, err
	}

	return out.Valid, nil
}

// EnableAdminMode turns admin mode on when pin matches and returns the resulting settings.
func (c *Client) EnableAdminMode(ctx context.Context, pin string) (bool, *models.SettingsView, error) {
	var out settings.AdminModeResponse

	r := c.http.R().SetContext(ctx).SetBody(settings.PinRequest{Pin: pin}).SetResult(&out)
	if err := do("enable admin mode", r, resty.MethodPost, "/api/settings/admin-mode"); err != nil {
		return false, nil, err
	}

	return out.Enabled, &out.Settings, nil
}

// AppendEvent records one event.
func (c *Client) AppendEvent(ctx context.Context, req events.Request) (*models.Event, error) {
	var out struct {
		OK    bool          `json:"ok"`
		Event *models.Event `json:"event"`
	}

	r := c.http.R().SetContext(ctx).SetBody(req).SetResult(&out)
	if err := do("append event", r, resty.MethodPost, "/api/events"); err != nil {
		return nil, err
	}

	return out.Event, nil
}

// SensorLatest returns the newest reading of boxID, nil when there is none.
func (c *Client) SensorLatest(ctx context.Context, boxID string) (*models.SensorReading, error) {
	var out *models.SensorReading

	r := c.http.R().SetContext(ctx).SetQueryParam("boxId", boxID).SetResult(&out)
	if err := do("latest sensor reading", r, resty.MethodGet, "/api/sensor/latest"); err != nil {
		return nil, err
	}

	return out, nil
}
