package config

import (
	"fmt"
	"net/url"

	"github.com/robotalks/multilink/pkg/hw"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if _, ok := hw.BaudRateFromBPS(cfg.Session.BaudRate); !ok {
		return fmt.Errorf("session: unsupported baud_rate %d", cfg.Session.BaudRate)
	}
	if err := cfg.Session.CableConfig().Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if cfg.Multiboot.DetectionTries < 1 {
		return fmt.Errorf("multiboot: detection_tries must be positive")
	}
	if cfg.Multiboot.ExchangeDelay < 0 || cfg.Multiboot.RetryDelay < 0 {
		return fmt.Errorf("multiboot: delays must not be negative")
	}

	if cfg.Sim.Consoles < 1 || cfg.Sim.Consoles > hw.MaxPlayers {
		return fmt.Errorf("sim: consoles must be 1..%d", hw.MaxPlayers)
	}
	if cfg.Sim.LineDurationUs < 0 || cfg.Sim.ResolutionMs < 1 {
		return fmt.Errorf("sim: invalid timing")
	}

	if cfg.Bridge.MQTTURL != "" {
		u, err := url.Parse(cfg.Bridge.MQTTURL)
		if err != nil {
			return fmt.Errorf("bridge: invalid mqtt_url: %w", err)
		}
		switch u.Scheme {
		case "mqtt", "tcp", "ssl", "ws", "wss":
		default:
			return fmt.Errorf("bridge: unsupported mqtt_url scheme %q", u.Scheme)
		}
	}
	if cfg.Bridge.PollIntervalMs < 1 {
		return fmt.Errorf("bridge: poll_interval_ms must be positive")
	}
	return nil
}
