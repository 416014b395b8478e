// Package hw describes the shared-clock serial port as the link layer sees it.
//
// The link engines never touch memory-mapped registers directly. They talk to
// a Port, Timers, a Clock and the BIOS through the interfaces below; firmware
// builds bind them to the real registers and host builds use package sim.
package hw

// Control register (SIOCNT) bits.
const (
	BitSecondary   = 2  // 0 = this device is the primary
	BitReady       = 3  // all peers entered multiplayer mode
	BitsPlayerID   = 4  // bits 4-5, hardware-assigned slot
	BitError       = 6  // peer error
	BitStart       = 7  // transfer start / in progress
	BitMultiplayer = 13 // multiplayer mode select
	BitIRQ         = 14 // raise Serial interrupt on completion
)

// Mode register (RCNT) bits.
const (
	BitGeneralPurposeLow  = 14
	BitGeneralPurposeHigh = 15
)

// PlayerIDMask selects the slot id bits of the control register.
const PlayerIDMask uint16 = 0b11 << BitsPlayerID

// Link geometry and reserved payloads.
const (
	MaxPlayers = 4

	// Disconnected is read from a slot whose peer is absent.
	Disconnected uint16 = 0xFFFF
	// NoData is exchanged by a present peer with nothing to say.
	NoData uint16 = 0x0000
)

// Display timing used for fixed-duration waits.
const (
	FrameLines = 228
	FPS        = 60
)

// BaudRate selects one of the four fixed transport speeds.
type BaudRate uint16

// Baud rates.
const (
	BaudRate9600   BaudRate = iota // 9600 bps
	BaudRate38400                  // 38400 bps
	BaudRate57600                  // 57600 bps
	BaudRate115200                 // 115200 bps
)

// BitsPerSecond returns the line speed.
func (b BaudRate) BitsPerSecond() int {
	switch b {
	case BaudRate9600:
		return 9600
	case BaudRate38400:
		return 38400
	case BaudRate57600:
		return 57600
	case BaudRate115200:
		return 115200
	}
	return 0
}

// BaudRateFromBPS maps a line speed to its rate selector.
func BaudRateFromBPS(bps int) (BaudRate, bool) {
	for b := BaudRate9600; b <= BaudRate115200; b++ {
		if b.BitsPerSecond() == bps {
			return b, true
		}
	}
	return 0, false
}

// IsValid checks the value is one of the four rates.
func (b BaudRate) IsValid() bool {
	return b <= BaudRate115200
}

// Port is the serial register file.
type Port interface {
	// Control reads SIOCNT.
	Control() uint16
	// SetControl writes SIOCNT.
	SetControl(uint16)
	// Mode reads RCNT.
	Mode() uint16
	// SetMode writes RCNT.
	SetMode(uint16)
	// SetSend writes the outbound word (SIOMLT_SEND).
	SetSend(uint16)
	// Recv reads inbound slot 0..3 (SIOMULTI0-3).
	Recv(slot int) uint16
}

// TimerFrequency is the prescaler of a hardware timer.
type TimerFrequency uint16

// Timer prescalers.
const (
	TimerFreq1    TimerFrequency = 0 // 16.7 MHz
	TimerFreq64   TimerFrequency = 1 // 262 kHz
	TimerFreq256  TimerFrequency = 2 // 66 kHz
	TimerFreq1024 TimerFrequency = 3 // 16 kHz
)

// CyclesPerTick returns the CPU cycles of one timer tick.
func (f TimerFrequency) CyclesPerTick() int {
	return [...]int{1, 64, 256, 1024}[f&3]
}

// NumTimers is the number of hardware timers.
const NumTimers = 4

// Timers configures the hardware timers.
type Timers interface {
	// Start loads the timer with an interval (in ticks) and enables it,
	// raising the timer interrupt on every expiry.
	Start(id int, interval uint16, freq TimerFrequency)
	// Stop disables the timer.
	Stop(id int)
}

// Clock provides fixed-duration busy waits measured in display lines.
type Clock interface {
	WaitLines(lines int)
}

// TransferMode is the communication mode passed to the bulk transfer.
type TransferMode uint32

// Transfer modes. The values are part of the BIOS call.
const (
	TransferModeNormal    TransferMode = 0
	TransferModeMultiPlay TransferMode = 1
)

// MultiBootParam is handed to the BIOS bulk-transfer primitive.
type MultiBootParam struct {
	HandshakeData byte
	ClientData    [3]byte
	PaletteData   byte
	ClientBit     byte
	// Boot is the image region after the header (boot_srcp..boot_endp).
	Boot []byte
}

// BIOS exposes the hardware bulk-transfer primitive.
type BIOS interface {
	// MultiBoot transfers param.Boot to every client in param.ClientBit.
	// It returns 0 on success and 1 on failure.
	MultiBoot(param *MultiBootParam, mode TransferMode) int
}
