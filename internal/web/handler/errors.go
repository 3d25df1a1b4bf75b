package handler

import "errors"

// ErrNilACD is returned by Init when app, cfg or db is nil.
var ErrNilACD = errors.New(ErrNilACDFatalLogMsg)
