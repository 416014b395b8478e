// Package config loads the host tool configuration from a YAML file with
// environment overrides.
package config

import (
	"time"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/l0/cable"
	"github.com/robotalks/multilink/pkg/l0/multiboot"
)

// Config is the root of the configuration file.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Multiboot MultibootConfig `yaml:"multiboot"`
	Sim       SimConfig       `yaml:"sim"`
	Bridge    BridgeConfig    `yaml:"bridge"`
}

// ---- SESSION ----

// SessionConfig configures the link session of every console.
type SessionConfig struct {
	BaudRate      int    `yaml:"baud_rate" env:"MULTILINK_BAUD_RATE"` // bps
	Timeout       int    `yaml:"timeout" env:"MULTILINK_TIMEOUT"`
	RemoteTimeout int    `yaml:"remote_timeout" env:"MULTILINK_REMOTE_TIMEOUT"`
	QueueSize     int    `yaml:"queue_size" env:"MULTILINK_QUEUE_SIZE"`
	Interval      uint16 `yaml:"interval" env:"MULTILINK_INTERVAL"`
	SendTimerID   int    `yaml:"send_timer_id" env:"MULTILINK_SEND_TIMER_ID"`
}

// ---- MULTIBOOT ----

// MultibootConfig configures the boot sender.
type MultibootConfig struct {
	DetectionTries int   `yaml:"detection_tries" env:"MULTILINK_DETECTION_TRIES"`
	Palette        uint8 `yaml:"palette" env:"MULTILINK_PALETTE"`
	ExchangeDelay  int   `yaml:"exchange_delay" env:"MULTILINK_EXCHANGE_DELAY"`
	RetryDelay     int   `yaml:"retry_delay" env:"MULTILINK_RETRY_DELAY"`
}

// ---- SIM ----

// SimConfig configures the emulated cable.
type SimConfig struct {
	Consoles       int `yaml:"consoles" env:"MULTILINK_CONSOLES"`
	LineDurationUs int `yaml:"line_duration_us" env:"MULTILINK_LINE_DURATION_US"`
	ResolutionMs   int `yaml:"resolution_ms" env:"MULTILINK_RESOLUTION_MS"`
}

// ---- BRIDGE ----

// BridgeConfig configures linkbridge.
type BridgeConfig struct {
	// MQTTURL is mqtt://host:port/topic-prefix, empty disables MQTT.
	MQTTURL string `yaml:"mqtt_url" env:"MULTILINK_MQTT_URL"`
	// ClientID defaults to a machine derived id.
	ClientID string `yaml:"client_id" env:"MULTILINK_CLIENT_ID"`
	// WebsocketAddr is the listen address, empty disables the endpoint.
	WebsocketAddr  string `yaml:"websocket_addr" env:"MULTILINK_WEBSOCKET_ADDR"`
	PollIntervalMs int    `yaml:"poll_interval_ms" env:"MULTILINK_POLL_INTERVAL_MS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sc := cable.DefaultConfig()
	return &Config{
		Session: SessionConfig{
			BaudRate:      sc.BaudRate.BitsPerSecond(),
			Timeout:       sc.Timeout,
			RemoteTimeout: sc.RemoteTimeout,
			QueueSize:     sc.QueueSize,
			Interval:      sc.Interval,
			SendTimerID:   sc.SendTimerID,
		},
		Multiboot: MultibootConfig{
			DetectionTries: multiboot.DefaultDetectionTries,
			Palette:        multiboot.DefaultPalette,
			ExchangeDelay:  multiboot.DefaultExchangeDelay,
			RetryDelay:     multiboot.DefaultRetryDelay,
		},
		Sim: SimConfig{
			Consoles:     2,
			ResolutionMs: 1,
		},
		Bridge: BridgeConfig{
			MQTTURL:        "mqtt://localhost:1883/multilink/",
			PollIntervalMs: 10,
		},
	}
}

// CableConfig converts to the session configuration.
func (c SessionConfig) CableConfig() cable.Config {
	baudRate, _ := hw.BaudRateFromBPS(c.BaudRate)
	return cable.Config{
		BaudRate:      baudRate,
		Timeout:       c.Timeout,
		RemoteTimeout: c.RemoteTimeout,
		QueueSize:     c.QueueSize,
		Interval:      c.Interval,
		SendTimerID:   c.SendTimerID,
	}
}

// Options converts to boot sender options.
func (c MultibootConfig) Options() []multiboot.Option {
	return []multiboot.Option{
		multiboot.WithDetectionTries(c.DetectionTries),
		multiboot.WithPalette(c.Palette),
		multiboot.WithExchangeDelay(c.ExchangeDelay),
		multiboot.WithRetryDelay(c.RetryDelay),
	}
}

// LineDuration is the emulated duration of one display line.
func (c SimConfig) LineDuration() time.Duration {
	return time.Duration(c.LineDurationUs) * time.Microsecond
}

// Resolution is the wall clock step of the emulated clock.
func (c SimConfig) Resolution() time.Duration {
	return time.Duration(c.ResolutionMs) * time.Millisecond
}

// PollInterval is the period the bridge drains the session queues.
func (c BridgeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
