package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if db.gormEngine is not one of sqlite, mysql, postgres.
	ErrUnknownGormEngine = errors.New("toml config db.gormEngine must be sqlite, mysql or postgres")

	// ErrSQLitePathEmpty error if the sqlite engine has no file path.
	ErrSQLitePathEmpty = errors.New("toml config db.path can not be empty for sqlite")

	// ErrRedisAddrEmpty error if redis fan-out is enabled without an address.
	ErrRedisAddrEmpty = errors.New("toml config fanout.redis.addr can not be empty when enabled")

	// ErrMQTTBrokerEmpty error if mqtt fan-out is enabled without a broker.
	ErrMQTTBrokerEmpty = errors.New("toml config fanout.mqtt.broker can not be empty when enabled")

	// ErrMQTTQoS error if the mqtt qos is above 2.
	ErrMQTTQoS = errors.New("toml config fanout.mqtt.qos must be 0, 1 or 2")
)
