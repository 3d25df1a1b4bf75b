// Package gormlog bridges gorm's query logger to zerolog.
package gormlog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Logger implements gormlogger.Interface on top of the global zerolog logger.
type Logger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// New returns a Logger. Queries slower than slowThreshold are logged as warnings; zero disables it.
func New(slowThreshold time.Duration) *Logger {
	return &Logger{level: gormlogger.Warn, slowThreshold: slowThreshold}
}

// LogMode implements gormlogger.Interface.
func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	n := *l
	n.level = level

	return &n
}

// Info implements gormlogger.Interface.
func (l *Logger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		log.Info().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Warn implements gormlogger.Interface.
func (l *Logger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		log.Warn().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Error implements gormlogger.Interface.
func (l *Logger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		log.Error().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Trace implements gormlogger.Interface. Record-not-found is not an error here.
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	var e *zerolog.Event

	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		e = log.Error().Err(err)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		e = log.Warn().Dur("threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		e = log.Trace()
	default:
		return
	}

	sql, rows := fc()
	e.Str("component", "gorm").Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
}
