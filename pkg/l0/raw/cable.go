// Package raw provides the low level multiplayer transport both link engines
// are built on: mode switching and single 16-bit exchanges.
package raw

import (
	"github.com/robotalks/multilink/pkg/hw"
)

// Response contains the inbound slots of one exchange.
type Response struct {
	Data     [hw.MaxPlayers]uint16
	PlayerID int // -1 = unknown
}

// EmptyResponse is returned by canceled or failed exchanges.
var EmptyResponse = Response{
	Data:     [hw.MaxPlayers]uint16{hw.Disconnected, hw.Disconnected, hw.Disconnected, hw.Disconnected},
	PlayerID: -1,
}

// Cancel is polled at every wait point. Returning true aborts the wait.
type Cancel func() bool

// Never is a Cancel which never fires.
func Never() bool { return false }

// Cable drives a hw.Port in multiplayer mode.
type Cable struct {
	Port hw.Port

	baudRate hw.BaudRate
	enabled  bool
}

// New wraps a port.
func New(port hw.Port) *Cable {
	return &Cable{Port: port, baudRate: hw.BaudRate38400}
}

// IsActive returns whether multiplayer mode is active.
func (c *Cable) IsActive() bool {
	return c.enabled
}

// BaudRate returns the speed of the last activation.
func (c *Cable) BaudRate() hw.BaudRate {
	return c.baudRate
}

// Activate switches the port to multiplayer mode.
func (c *Cable) Activate(baudRate hw.BaudRate) {
	c.baudRate = baudRate
	c.Port.SetMode(c.Port.Mode() &^ (1 << hw.BitGeneralPurposeHigh))
	c.Port.SetControl(1<<hw.BitMultiplayer | uint16(baudRate))
	c.Port.SetSend(hw.NoData)
	c.enabled = true
}

// Deactivate puts the port back into general-purpose mode.
func (c *Cable) Deactivate() {
	c.enabled = false
	c.Port.SetMode((c.Port.Mode() &^ (1 << hw.BitGeneralPurposeLow)) | 1<<hw.BitGeneralPurposeHigh)
	c.baudRate = hw.BaudRate38400
}

// Transfer exchanges data with all peers, blocking until the hardware
// completes or cancel fires. Serial interrupts are turned off for the
// duration.
func (c *Cable) Transfer(data uint16, cancel Cancel) Response {
	for c.IsSending() {
		if cancel() {
			return EmptyResponse
		}
	}

	c.SetData(data)
	c.SetInterruptsOff()
	c.StartTransfer()

	for c.IsSending() {
		if cancel() {
			c.StopTransfer()
			return EmptyResponse
		}
	}

	if c.IsReady() && !c.HasError() {
		return c.Data()
	}
	return EmptyResponse
}

// Data reads the inbound slots and the assigned player id.
func (c *Cable) Data() Response {
	var r Response
	for i := range r.Data {
		r.Data[i] = c.Port.Recv(i)
	}
	r.PlayerID = c.PlayerID()
	return r
}

// PlayerID reads the hardware-assigned slot.
func (c *Cable) PlayerID() int {
	return int((c.Port.Control() & hw.PlayerIDMask) >> hw.BitsPlayerID)
}

// SetData loads the outbound word.
func (c *Cable) SetData(data uint16) {
	c.Port.SetSend(data)
}

// IsPrimary reports whether this device drives the exchanges. The value is
// garbage while the cable is not properly connected.
func (c *Cable) IsPrimary() bool { return !c.bit(hw.BitSecondary) }

// IsReady reports whether all peers are in multiplayer mode.
func (c *Cable) IsReady() bool { return c.bit(hw.BitReady) }

// HasError reports the peer error flag.
func (c *Cable) HasError() bool { return c.bit(hw.BitError) }

// IsSending reports a transfer in progress.
func (c *Cable) IsSending() bool { return c.bit(hw.BitStart) }

// StartTransfer asserts the start bit.
func (c *Cable) StartTransfer() { c.setBit(hw.BitStart) }

// StopTransfer clears the start bit.
func (c *Cable) StopTransfer() { c.clearBit(hw.BitStart) }

// SetInterruptsOn enables the Serial interrupt on completion.
func (c *Cable) SetInterruptsOn() { c.setBit(hw.BitIRQ) }

// SetInterruptsOff disables the Serial interrupt.
func (c *Cable) SetInterruptsOff() { c.clearBit(hw.BitIRQ) }

func (c *Cable) bit(n uint) bool {
	return (c.Port.Control()>>n)&1 != 0
}

func (c *Cable) setBit(n uint) {
	c.Port.SetControl(c.Port.Control() | 1<<n)
}

func (c *Cable) clearBit(n uint) {
	c.Port.SetControl(c.Port.Control() &^ (1 << n))
}

// IsGeneralPurpose reports whether a mode register value selects the
// inactive general-purpose configuration.
func IsGeneralPurpose(mode uint16) bool {
	return mode>>hw.BitGeneralPurposeLow&0b11 == 0b10
}
