// Package sim emulates the shared-clock multiplayer cable on the host.
//
// A Cable connects up to four Consoles in plug order. Position 0 is the
// primary. Writing the start bit on the primary queues an exchange which
// completes on the next control register read or on Flush; interrupts are
// only delivered by Flush so a handler never sees its own completion
// re-enter it.
package sim

import (
	"errors"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/irq"
)

var (
	// ErrCableFull indicates all four positions are taken.
	ErrCableFull = errors.New("cable full")
	// ErrAlreadyPlugged indicates the console is already on the cable.
	ErrAlreadyPlugged = errors.New("already plugged")
)

// Cable is the shared wire.
type Cable struct {
	consoles  [hw.MaxPlayers]*Console
	all       []*Console
	pending   bool
	irqQueue  []*Console
	exchanges int
	lock      sync.Mutex
}

// NewCable creates an empty cable.
func NewCable() *Cable {
	return &Cable{}
}

// NewConsole creates an unplugged console on this cable.
func (c *Cable) NewConsole(name string) *Console {
	con := &Console{
		Name:     name,
		IRQ:      irq.New(),
		cable:    c,
		position: -1,
		mode:     1 << hw.BitGeneralPurposeHigh,
		recv:     [hw.MaxPlayers]uint16{hw.Disconnected, hw.Disconnected, hw.Disconnected, hw.Disconnected},
	}
	c.lock.Lock()
	c.all = append(c.all, con)
	c.lock.Unlock()
	return con
}

// All returns every console created on this cable, plugged or not.
func (c *Cable) All() []*Console {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]*Console(nil), c.all...)
}

// Plug connects a console at the first free position.
func (c *Cable) Plug(con *Console) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if con.position >= 0 {
		return con.position, ErrAlreadyPlugged
	}
	for n, slot := range c.consoles {
		if slot == nil {
			c.consoles[n], con.position = con, n
			glog.V(2).Infof("sim: %s plugged at %d", con.Name, n)
			return n, nil
		}
	}
	return -1, ErrCableFull
}

// Unplug disconnects a console.
func (c *Cable) Unplug(con *Console) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if con.position < 0 {
		return
	}
	c.consoles[con.position] = nil
	glog.V(2).Infof("sim: %s unplugged from %d", con.Name, con.position)
	con.position = -1
	con.control &^= 1 << hw.BitStart
}

// Consoles returns the plugged consoles by position.
func (c *Cable) Consoles() []*Console {
	c.lock.Lock()
	defer c.lock.Unlock()
	var list []*Console
	for _, con := range c.consoles {
		if con != nil {
			list = append(list, con)
		}
	}
	return list
}

// Exchanges returns the number of completed exchanges.
func (c *Cable) Exchanges() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.exchanges
}

// Flush completes a queued exchange and delivers pending Serial
// interrupts. It reports whether anything happened.
func (c *Cable) Flush() bool {
	c.lock.Lock()
	done := c.pending
	if c.pending {
		c.completeLocked()
	}
	queue := c.irqQueue
	c.irqQueue = nil
	c.lock.Unlock()

	for _, con := range queue {
		con.IRQ.Raise(irq.Serial)
	}
	return done || len(queue) > 0
}

func (c *Cable) allReadyLocked() bool {
	count := 0
	for _, con := range c.consoles {
		if con == nil {
			continue
		}
		if !con.multiplayerLocked() {
			return false
		}
		count++
	}
	return count > 1
}

func (c *Cable) primaryLocked() *Console {
	return c.consoles[0]
}

func (c *Cable) completeLocked() {
	c.pending = false
	primary := c.primaryLocked()
	if primary == nil {
		return
	}
	primary.control &^= 1 << hw.BitStart
	if !c.allReadyLocked() {
		primary.recv = [hw.MaxPlayers]uint16{hw.Disconnected, hw.Disconnected, hw.Disconnected, hw.Disconnected}
		return
	}

	var words [hw.MaxPlayers]uint16
	for n, con := range c.consoles {
		words[n] = hw.Disconnected
		if con != nil && con.multiplayerLocked() {
			words[n] = con.send
		}
	}
	c.exchanges++

	for n, con := range c.consoles {
		if con == nil {
			continue
		}
		con.recv = words
		con.control = con.control&^hw.PlayerIDMask | uint16(n)<<hw.BitsPlayerID
		if con.responder != nil {
			con.send = con.responder.Respond(n, words)
		}
		if con.control&(1<<hw.BitIRQ) != 0 {
			c.irqQueue = append(c.irqQueue, con)
		}
	}
}
