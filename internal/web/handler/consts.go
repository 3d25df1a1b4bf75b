package handler

const (
	// APIPrefix is the route group every REST handler registers under.
	APIPrefix = "/api"

	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
