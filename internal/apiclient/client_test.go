package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/models"
	"github.com/boxwatch/boxwatch/internal/testutil"
	"github.com/boxwatch/boxwatch/internal/web/handler/events"
)

func TestClient_AgainstServer(t *testing.T) {
	srv := testutil.StartServer(t)
	c := New(config.Client{BaseURL: srv.URL + "/"})
	ctx := context.Background()

	snap, err := c.Bootstrap(ctx)
	require.NoError(t, err)
	assert.True(t, snap.OK)
	assert.Len(t, snap.Users, 3)
	assert.Len(t, snap.Boxes, 3)

	view, err := c.UpdateSettings(ctx, models.SettingsPatch{
		AdminPin:         models.Set("9876"),
		SensorBoundBoxID: models.Set("B02"),
	})
	require.NoError(t, err)
	assert.True(t, view.HasAdminPin)
	assert.True(t, view.ShowAlertBanner, "absent fields keep their value")
	require.NotNil(t, view.SensorBoundBoxID)
	assert.Equal(t, "B02", *view.SensorBoundBoxID)

	ok, err := c.VerifyPin(ctx, "9876")
	require.NoError(t, err)
	assert.True(t, ok)

	enabled, view, err := c.EnableAdminMode(ctx, "0000")
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.False(t, view.IsAdminMode)

	enabled, view, err = c.EnableAdminMode(ctx, "9876")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.True(t, view.IsAdminMode)

	got, err := c.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsAdminMode)

	user := "user-003"
	ev, err := c.AppendEvent(ctx, events.Request{BoxID: "B01", Type: "delivery", UserID: &user})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "DELIVERY", ev.Type)

	_, err = c.AppendEvent(ctx, events.Request{Type: "DELIVERY"})
	require.Error(t, err)
	assert.True(t, apperror.IsTransport(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, "boxId")

	reading, err := c.SensorLatest(ctx, "B01")
	require.NoError(t, err)
	assert.Nil(t, reading)
}

func TestClient_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok":false,"error":"database is locked"}`))
	}))
	defer ts.Close()

	_, err := New(config.Client{BaseURL: ts.URL}).Bootstrap(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsTransport(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "database is locked", se.Message)
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(config.Client{BaseURL: url, TimeoutSec: 1}).VerifyPin(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, apperror.IsTransport(err))
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base, want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://boxes.example.org/", "wss://boxes.example.org/ws"},
		{"http://10.0.0.2:9000/prefix", "ws://10.0.0.2:9000/prefix/ws"},
	}

	for _, tt := range tests {
		got, err := New(config.Client{BaseURL: tt.base}).WebsocketURL("/ws")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
