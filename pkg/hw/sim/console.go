package sim

import (
	"time"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/irq"
)

// Responder computes a console's next outbound word from the words of the
// exchange that just completed. It runs with the cable locked and must not
// call back into the Console.
type Responder interface {
	Respond(position int, words [hw.MaxPlayers]uint16) uint16
}

// RespondFunc is func type of Responder.
type RespondFunc func(position int, words [hw.MaxPlayers]uint16) uint16

// Respond implements Responder.
func (f RespondFunc) Respond(position int, words [hw.MaxPlayers]uint16) uint16 {
	return f(position, words)
}

type timerState struct {
	enabled  bool
	interval uint16
	freq     hw.TimerFrequency
}

// Console is one device on the cable. It implements hw.Port, hw.Timers,
// hw.Clock and hw.BIOS.
type Console struct {
	Name string
	IRQ  *irq.Controller
	// LineDuration is slept per display line in WaitLines, 0 skips waiting.
	LineDuration time.Duration

	cable     *Cable
	position  int
	control   uint16
	mode      uint16
	send      uint16
	recv      [hw.MaxPlayers]uint16
	hasError  bool
	writes    int
	timers    [hw.NumTimers]timerState
	responder Responder
}

// Cable returns the cable the console belongs to.
func (c *Console) Cable() *Cable {
	return c.cable
}

// Position returns the plug position, -1 if unplugged.
func (c *Console) Position() int {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	return c.position
}

// Control implements hw.Port.
func (c *Console) Control() uint16 {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	if c.cable.pending && c.position == 0 {
		c.cable.completeLocked()
	}
	v := c.control &^ (1<<hw.BitSecondary | 1<<hw.BitReady | 1<<hw.BitError)
	if c.position > 0 {
		v |= 1 << hw.BitSecondary
	}
	if c.position >= 0 && c.cable.allReadyLocked() {
		v |= 1 << hw.BitReady
	}
	if c.hasError {
		v |= 1 << hw.BitError
	}
	return v
}

// SetControl implements hw.Port.
func (c *Console) SetControl(v uint16) {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	c.writes++
	starting := v&(1<<hw.BitStart) != 0 && c.control&(1<<hw.BitStart) == 0
	v &^= 1<<hw.BitSecondary | 1<<hw.BitReady | 1<<hw.BitError
	if c.position != 0 {
		// start is read-only busy on secondaries
		v = v&^(1<<hw.BitStart) | c.control&(1<<hw.BitStart)
		starting = false
	}
	c.control = v
	if starting {
		c.cable.pending = true
	} else if c.position == 0 && v&(1<<hw.BitStart) == 0 {
		c.cable.pending = false
	}
}

// Mode implements hw.Port.
func (c *Console) Mode() uint16 {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	return c.mode
}

// SetMode implements hw.Port.
func (c *Console) SetMode(v uint16) {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	c.writes++
	c.mode = v
}

// SetSend implements hw.Port.
func (c *Console) SetSend(v uint16) {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	c.writes++
	c.send = v
}

// Send returns the outbound word.
func (c *Console) Send() uint16 {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	return c.send
}

// Recv implements hw.Port.
func (c *Console) Recv(slot int) uint16 {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	return c.recv[slot]
}

// Writes returns the number of register writes so far.
func (c *Console) Writes() int {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	return c.writes
}

// SetError sets the peer error flag seen by this console.
func (c *Console) SetError(en bool) {
	c.cable.lock.Lock()
	c.hasError = en
	c.cable.lock.Unlock()
}

// SetResponder installs a responder and loads its initial word. A nil
// responder removes it.
func (c *Console) SetResponder(r Responder, initial uint16) {
	c.cable.lock.Lock()
	c.responder = r
	c.send = initial
	c.cable.lock.Unlock()
}

// EnterMultiplayer puts the port in multiplayer mode without going through
// a link engine, as passive firmware does.
func (c *Console) EnterMultiplayer() {
	c.cable.lock.Lock()
	c.mode &^= 1 << hw.BitGeneralPurposeHigh
	c.control = c.control | 1<<hw.BitMultiplayer
	c.cable.lock.Unlock()
}

// Start implements hw.Timers.
func (c *Console) Start(id int, interval uint16, freq hw.TimerFrequency) {
	c.cable.lock.Lock()
	c.timers[id] = timerState{enabled: true, interval: interval, freq: freq}
	c.cable.lock.Unlock()
}

// Stop implements hw.Timers.
func (c *Console) Stop(id int) {
	c.cable.lock.Lock()
	c.timers[id].enabled = false
	c.cable.lock.Unlock()
}

// TimerEnabled reports whether a timer runs.
func (c *Console) TimerEnabled(id int) bool {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	return c.timers[id].enabled
}

// TimerPeriod returns the expiry period of an enabled timer, 0 if stopped.
func (c *Console) TimerPeriod(id int) time.Duration {
	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	t := c.timers[id]
	if !t.enabled {
		return 0
	}
	cycles := int64(t.interval) * int64(t.freq.CyclesPerTick())
	return time.Duration(cycles * int64(time.Second) / CPUFrequency)
}

// WaitLines implements hw.Clock.
func (c *Console) WaitLines(lines int) {
	if c.LineDuration > 0 && lines > 0 {
		time.Sleep(time.Duration(lines) * c.LineDuration)
	}
}

// Fire raises an interrupt on this console.
func (c *Console) Fire(src irq.Source) bool {
	return c.IRQ.Raise(src)
}

func (c *Console) multiplayerLocked() bool {
	return c.mode&(1<<hw.BitGeneralPurposeHigh) == 0 && c.control&(1<<hw.BitMultiplayer) != 0
}
