package gormlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	orig := log.Logger
	origLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	t.Cleanup(func() {
		log.Logger = orig
		zerolog.SetGlobalLevel(origLevel)
	})

	return &buf
}

func TestTrace(t *testing.T) {
	fc := func() (string, int64) { return "SELECT 1", 1 }

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		slow      time.Duration
		begin     time.Time
		err       error
		wantLevel string
	}{
		{"error logged", gormlogger.Warn, 0, time.Now(), errors.New("boom"), "error"},
		{"not found ignored", gormlogger.Warn, 0, time.Now(), gorm.ErrRecordNotFound, ""},
		{"slow query warns", gormlogger.Warn, time.Millisecond, time.Now().Add(-time.Second), nil, "warn"},
		{"fast query silent at warn", gormlogger.Warn, time.Hour, time.Now(), nil, ""},
		{"info traces every query", gormlogger.Info, 0, time.Now(), nil, "trace"},
		{"silent drops errors", gormlogger.Silent, 0, time.Now(), errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)

			New(tt.slow).LogMode(tt.level).Trace(context.Background(), tt.begin, fc, tt.err)

			if tt.wantLevel == "" {
				assert.Empty(t, buf.String())
				return
			}

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, "SELECT 1", line["sql"])
			assert.Equal(t, "gorm", line["component"])
		})
	}
}

func TestLogModeCopies(t *testing.T) {
	base := New(0)
	_ = base.LogMode(gormlogger.Info)

	assert.Equal(t, gormlogger.Warn, base.level)
}
