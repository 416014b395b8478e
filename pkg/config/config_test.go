package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/l0/cable"
	"github.com/robotalks/multilink/pkg/l0/multiboot"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	require.Equal(t, cable.DefaultConfig(), cfg.Session.CableConfig())

	sender := multiboot.New(nil, nil, nil, cfg.Multiboot.Options()...)
	require.Equal(t, byte(multiboot.DefaultPalette), sender.Config().Palette)
	require.Equal(t, multiboot.DefaultDetectionTries, sender.Config().DetectionTries)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multilink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  baud_rate: 115200
  queue_size: 8
sim:
  consoles: 4
bridge:
  mqtt_url: mqtt://broker:1883/link/
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	require.Equal(t, hw.BaudRate115200, cfg.Session.CableConfig().BaudRate)
	require.Equal(t, 8, cfg.Session.QueueSize)
	require.Equal(t, cable.DefaultTimeout, cfg.Session.Timeout)
	require.Equal(t, 4, cfg.Sim.Consoles)
	require.Equal(t, "mqtt://broker:1883/link/", cfg.Bridge.MQTTURL)
}

func TestLoadUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  speed: 1\n"), 0644))
	_, err := Load(path)
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("MULTILINK_BAUD_RATE", "57600")
	os.Setenv("MULTILINK_MQTT_URL", "tcp://other:1883/")
	defer os.Unsetenv("MULTILINK_BAUD_RATE")
	defer os.Unsetenv("MULTILINK_MQTT_URL")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 57600, cfg.Session.BaudRate)
	require.Equal(t, "tcp://other:1883/", cfg.Bridge.MQTTURL)
	require.Equal(t, cable.DefaultRemoteTimeout, cfg.Session.RemoteTimeout)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"baud rate", func(c *Config) { c.Session.BaudRate = 19200 }},
		{"queue size", func(c *Config) { c.Session.QueueSize = 0 }},
		{"send timer", func(c *Config) { c.Session.SendTimerID = 4 }},
		{"detection tries", func(c *Config) { c.Multiboot.DetectionTries = 0 }},
		{"consoles", func(c *Config) { c.Sim.Consoles = 5 }},
		{"mqtt scheme", func(c *Config) { c.Bridge.MQTTURL = "http://host/" }},
		{"poll interval", func(c *Config) { c.Bridge.PollIntervalMs = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mod(cfg)
			require.Error(t, Validate(cfg))
		})
	}
}
