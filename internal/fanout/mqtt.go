package fanout

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/logger/adapter/stdlogger"
)

const mqttDisconnectQuiesce = 250 // ms

// MQTT publishes messages on "<prefix>/<kind>/<boxId>".
type MQTT struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// NewMQTT connects to the broker. paho reconnects on its own after a drop.
func NewMQTT(cfg config.MQTT) (*MQTT, error) {
	mqtt.ERROR = stdlogger.NewPrinter(zerolog.ErrorLevel, "mqtt")
	mqtt.WARN = stdlogger.NewPrinter(zerolog.WarnLevel, "mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}

	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, token.Error())
	}

	return newMQTT(client, cfg), nil
}

func newMQTT(client mqtt.Client, cfg config.MQTT) *MQTT {
	return &MQTT{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS}
}

// Name implements Publisher.
func (m *MQTT) Name() string { return "mqtt" }

// Topic returns the topic for msg.
func (m *MQTT) Topic(msg Message) string {
	return fmt.Sprintf("%s/%s/%s", m.prefix, msg.Kind, msg.BoxID)
}

// Publish implements Publisher.
func (m *MQTT) Publish(ctx context.Context, msg Message) error {
	body, err := msg.payload()
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Kind, err)
	}

	topic := m.Topic(msg)
	token := m.client.Publish(topic, m.qos, false, body)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}

	if err = token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

// Close implements Publisher.
func (m *MQTT) Close() error {
	m.client.Disconnect(mqttDisconnectQuiesce)
	return nil
}
