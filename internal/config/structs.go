package config

import (
	"github.com/boxwatch/boxwatch/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool `mapstructure:"devMode"` // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Telemetry Telemetry
	Fanout    Fanout
	Client    Client
	Simulator Simulator
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   `mapstructure:"cleanPath"`      // strip duplicate slashes before routing
	DisableRecover bool   `mapstructure:"disableRecover"` // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    `mapstructure:"shutDownTime"` // seconds to wait for in-flight requests
	URL            string // public base url of the webserver
	AllowOrigins   string `mapstructure:"allowOrigins"` // CORS origins, comma separated
	BodyLimit      int    `mapstructure:"bodyLimit"`    // max request body in bytes
}

// Telemetry configures the websocket ingestion endpoint.
type Telemetry struct {
	Path            string // websocket route, default /ws
	ReadLimit       int64  `mapstructure:"readLimit"`       // max frame size in bytes
	WriteTimeoutSec int    `mapstructure:"writeTimeoutSec"` // ack write deadline
}

// Fanout configures where accepted readings and events are republished.
type Fanout struct {
	Redis Redis
	MQTT  MQTT `mapstructure:"mqtt"`
}

// Redis implements the redis streams publisher settings.
type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int    `mapstructure:"db"`
	Stream   string // stream key prefix
	MaxLen   int64  `mapstructure:"maxLen"` // approximate stream trim length, 0 keeps everything
}

// MQTT implements the mqtt publisher settings.
type MQTT struct {
	Enabled     bool
	Broker      string // tcp://host:1883
	ClientID    string `mapstructure:"clientId"`
	Username    string
	Password    string
	TopicPrefix string `mapstructure:"topicPrefix"`
	QoS         byte   `mapstructure:"qos"`
}

// Client configures the HTTP and websocket client used by the simulate command.
type Client struct {
	BaseURL    string `mapstructure:"baseUrl"`    // http://host:port of the server
	TimeoutSec int    `mapstructure:"timeoutSec"` // per request timeout
}

// Simulator configures the sensor simulator.
type Simulator struct {
	DeviceID   string `mapstructure:"deviceId"`
	IntervalMs int    `mapstructure:"intervalMs"`
	BoxID      string `mapstructure:"boxId"` // bound before starting when set
}
