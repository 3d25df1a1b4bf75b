package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `mapstructure:"enabled"`
	UseConsoleWriter bool `mapstructure:"useConsoleWriter"`
}

// LogFile implements a file based logger with one rolling file per level group.
type LogFile struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`

	AccessLog        string `mapstructure:"access"`
	AccessMaxSize    int    `mapstructure:"accessMaxSize"`
	AccessMaxBackups int    `mapstructure:"accessMaxBackups"`
	AccessMaxAge     int    `mapstructure:"accessMaxAge"`

	ErrorLog        string `mapstructure:"error"`
	ErrorMaxSize    int    `mapstructure:"errorMaxSize"`
	ErrorMaxBackups int    `mapstructure:"errorMaxBackups"`
	ErrorMaxAge     int    `mapstructure:"errorMaxAge"`

	InfoLog        string `mapstructure:"info"`
	InfoMaxSize    int    `mapstructure:"infoMaxSize"`
	InfoMaxBackups int    `mapstructure:"infoMaxBackups"`
	InfoMaxAge     int    `mapstructure:"infoMaxAge"`

	TraceLog        string `mapstructure:"trace"`
	TraceMaxSize    int    `mapstructure:"traceMaxSize"`
	TraceMaxBackups int    `mapstructure:"traceMaxBackups"`
	TraceMaxAge     int    `mapstructure:"traceMaxAge"`

	WarnLog        string `mapstructure:"warn"`
	WarnMaxSize    int    `mapstructure:"warnMaxSize"`
	WarnMaxBackups int    `mapstructure:"warnMaxBackups"`
	WarnMaxAge     int    `mapstructure:"warnMaxAge"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string `mapstructure:"logLevel"` // trace, debug, info, warn, error.
	LogEnv   string `mapstructure:"logEnv"`

	// EnableAccessLogToConsole writes the http access log to the console as well.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool `mapstructure:"enableAccessLogToConsole"`
	ReportCaller             bool `mapstructure:"reportCaller"`
	DisableCheckAlive        bool `mapstructure:"disableCheckAlive"` // do not log /api/health calls

	// SlowQueryThreshold marks gorm queries slower than this as warnings. Zero disables it.
	SlowQueryThresholdMs int `mapstructure:"slowQueryThresholdMs"`

	AppName     string `mapstructure:"appName"`
	ServiceName string `mapstructure:"serviceName"`

	// Console used mainly for docker and dev.
	Console Console `mapstructure:"console"`

	File LogFile `mapstructure:"file"`
}
