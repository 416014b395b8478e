package cable

import (
	"fmt"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/l0/queue"
)

// Defaults of Config.
const (
	DefaultTimeout       = 3
	DefaultRemoteTimeout = 5
	DefaultInterval      = 50
	DefaultSendTimerID   = 3
)

// Config is the session configuration. It is fixed at New.
type Config struct {
	// BaudRate is the transport speed.
	BaudRate hw.BaudRate
	// Timeout is the number of frames without a Serial interrupt before
	// the session resets.
	Timeout int
	// RemoteTimeout is the number of consecutive disconnected reads before
	// a peer is marked offline.
	RemoteTimeout int
	// QueueSize is the capacity of each message queue.
	QueueSize int
	// Interval is the send timer period in 1024-cycle ticks.
	Interval uint16
	// SendTimerID selects the hardware timer (0-3) driving the sends.
	SendTimerID int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaudRate:      hw.BaudRate38400,
		Timeout:       DefaultTimeout,
		RemoteTimeout: DefaultRemoteTimeout,
		QueueSize:     queue.DefaultCapacity,
		Interval:      DefaultInterval,
		SendTimerID:   DefaultSendTimerID,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.BaudRate.IsValid() {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.Timeout < 1 {
		return fmt.Errorf("invalid timeout %d", c.Timeout)
	}
	if c.RemoteTimeout < 1 {
		return fmt.Errorf("invalid remote timeout %d", c.RemoteTimeout)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("invalid queue size %d", c.QueueSize)
	}
	if c.Interval == 0 {
		return fmt.Errorf("invalid interval %d", c.Interval)
	}
	if c.SendTimerID < 0 || c.SendTimerID >= hw.NumTimers {
		return fmt.Errorf("invalid send timer %d", c.SendTimerID)
	}
	return nil
}
