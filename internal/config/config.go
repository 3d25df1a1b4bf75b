// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BOXWATCH_WEBSERVER_PORT.
const EnvPrefix = "BOXWATCH"

// JSONConfigEnv holds a JSON document merged over the file config.
const JSONConfigEnv = EnvPrefix + "_CONFIG_JSON"

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "boxwatch")
	v.SetDefault("db.gormEngine", EngineSQLite)
	v.SetDefault("db.path", "boxwatch.db")
	v.SetDefault("log.logLevel", "info")
	v.SetDefault("log.appName", "boxwatch")
	v.SetDefault("log.serviceName", "boxwatch")
	v.SetDefault("log.console.enabled", true)
	v.SetDefault("webserver.port", 8080)
	v.SetDefault("webserver.url", "http://localhost:8080")
	v.SetDefault("webserver.shutDownTime", 5)
	v.SetDefault("webserver.allowOrigins", "*")
	v.SetDefault("webserver.bodyLimit", 1024*1024)
	v.SetDefault("telemetry.path", "/ws")
	v.SetDefault("telemetry.readLimit", 64*1024)
	v.SetDefault("telemetry.writeTimeoutSec", 5)
	v.SetDefault("fanout.redis.stream", "boxwatch")
	v.SetDefault("fanout.mqtt.clientId", "boxwatch")
	v.SetDefault("fanout.mqtt.topicPrefix", "boxwatch")
	v.SetDefault("client.baseUrl", "http://localhost:8080")
	v.SetDefault("client.timeoutSec", 8)
	v.SetDefault("simulator.deviceId", "sim-device-1")
	v.SetDefault("simulator.intervalMs", 3000)
}

// ReadConfig reads main.toml from path, applies BOXWATCH_* env vars and the JSON override, then
// validates the result.
func ReadConfig(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("main")
	v.SetConfigType("toml")
	v.AddConfigPath(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	if raw := os.Getenv(JSONConfigEnv); raw != "" {
		var err error

		c, err = decodeAndMergeConfig(c, raw)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode "+JSONConfigEnv)
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer

	if err := toml.NewEncoder(&buffer).Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the daemon cannot start without and fills the remaining defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5
	}

	c.DB.GormEngine = strings.ToLower(c.DB.GormEngine)
	if c.DB.GormEngine == "" {
		c.DB.GormEngine = EngineSQLite
	}

	switch c.DB.GormEngine {
	case EngineSQLite:
		if c.DB.Path == "" {
			return errors.Wrap(ErrSQLitePathEmpty, invalidErrMessage)
		}
	case EngineMySQL, EnginePostgres:
	default:
		return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
	}

	if c.Fanout.Redis.Enabled && c.Fanout.Redis.Addr == "" {
		return errors.Wrap(ErrRedisAddrEmpty, invalidErrMessage)
	}

	if c.Fanout.MQTT.Enabled && c.Fanout.MQTT.Broker == "" {
		return errors.Wrap(ErrMQTTBrokerEmpty, invalidErrMessage)
	}

	if c.Fanout.MQTT.QoS > 2 { //nolint:mnd
		return errors.Wrap(ErrMQTTQoS, invalidErrMessage)
	}

	if c.Telemetry.Path == "" {
		c.Telemetry.Path = "/ws"
	}

	if c.Client.TimeoutSec <= 0 {
		c.Client.TimeoutSec = 8
	}

	return nil
}
