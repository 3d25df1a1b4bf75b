package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned if Log.AppName was not defined.
	ErrAppNameIsEmpty = errors.New("log.appName can not be empty")

	// ErrServiceNameIsEmpty is returned if Log.ServiceName was not defined.
	ErrServiceNameIsEmpty = errors.New("log.serviceName can not be empty")

	// ErrUnsupportedLevel is returned if Log.LogLevel is not a zerolog level.
	ErrUnsupportedLevel = errors.New("log.logLevel is not supported")

	// ErrLogDirectory is returned if file logging is enabled and Log.File.Path can not be created.
	ErrLogDirectory = errors.New("log.file.path can not be created")
)

// ErrorHandler reports events zerolog failed to write. Writers may be broken, so it goes straight
// to stderr.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "boxwatch logger: could not write event: %v\n", err)
}
