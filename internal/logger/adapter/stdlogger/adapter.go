// Package stdlogger exposes the global zerolog logger through the printf style interface expected
// by third party clients such as resty and the paho mqtt client.
package stdlogger

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to zerolog.
type Logger struct {
	component string
}

// New returns a Logger tagging every statement with component when one is given.
func New(component ...string) *Logger {
	l := &Logger{}
	if len(component) > 0 {
		l.component = component[0]
	}

	return l
}

func (l *Logger) event(e *zerolog.Event) *zerolog.Event {
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...any) {
	l.event(log.Debug()).Msgf(format, v...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...any) {
	l.event(log.Info()).Msgf(format, v...)
}

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, v ...any) {
	l.event(log.Warn()).Msgf(format, v...)
}

// Warningf is an alias of Warnf.
func (l *Logger) Warningf(format string, v ...any) {
	l.Warnf(format, v...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...any) {
	l.event(log.Error()).Msgf(format, v...)
}

// Printer adapts a single zerolog level to the Println/Printf pair used by paho.
type Printer struct {
	level     zerolog.Level
	component string
}

// NewPrinter returns a Printer writing at level.
func NewPrinter(level zerolog.Level, component string) Printer {
	return Printer{level: level, component: component}
}

// Println implements paho's Logger.
func (p Printer) Println(v ...any) {
	log.WithLevel(p.level).Str("component", p.component).Msg(fmt.Sprint(v...))
}

// Printf implements paho's Logger.
func (p Printer) Printf(format string, v ...any) {
	log.WithLevel(p.level).Str("component", p.component).Msgf(format, v...)
}
