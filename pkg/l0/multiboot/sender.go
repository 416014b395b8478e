package multiboot

import (
	"github.com/golang/glog"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/l0/raw"
)

// Image limits.
const (
	HeaderSize   = 0xC0
	MinImageSize = 0x100 + HeaderSize
	MaxImageSize = 256 * 1024
	BlockSize    = 0x10
)

// Protocol words.
const (
	CmdHandshake        uint16 = 0x6200
	AckHandshake        uint16 = 0x7200
	CmdConfirmClients   uint16 = 0x6100
	CmdPalette          uint16 = 0x6300
	CmdConfirmHandshake uint16 = 0x6400
	AckResponse         uint16 = 0x7300
	ackResponseMask     uint16 = 0xFF00
	ackHandshakeMask    uint16 = 0xFFF0

	// HandshakeSeed is added to the client bytes to form the checksum.
	HandshakeSeed = 0x11
	// ClientNoData marks a client byte not received yet.
	ClientNoData byte = 0xFF
)

// Defaults of Config.
const (
	DefaultDetectionTries = 16
	DefaultPalette        = 0b10010011
	DefaultExchangeDelay  = 50
	DefaultRetryDelay     = hw.FrameLines
)

const maxClients = hw.MaxPlayers - 1

// clientID returns the id bit of the client in inbound slot n+1.
func clientID(n int) byte {
	return 1 << uint(n+1)
}

func isClientID(id byte) bool {
	return id == 0b0010 || id == 0b0100 || id == 0b1000
}

// ValidSize checks an image length against the size and block constraints.
func ValidSize(length int) bool {
	return length >= MinImageSize && length <= MaxImageSize && length%BlockSize == 0
}

type step int

const (
	stepDone step = iota
	stepRetry
	stepAborted
	stepFailed
)

// Sender pushes boot images over the cable. It owns the port for the
// duration of Send; serial interrupts must not be serviced meanwhile.
type Sender struct {
	cable   *raw.Cable
	clock   hw.Clock
	bios    hw.BIOS
	config  Config
	lastErr error
}

// New creates a Sender.
func New(port hw.Port, clock hw.Clock, bios hw.BIOS, opts ...Option) *Sender {
	s := &Sender{
		cable:  raw.New(port),
		clock:  clock,
		bios:   bios,
		config: defaultConfig(),
	}
	for _, opt := range opts {
		opt(&s.config)
	}
	return s
}

// Config returns the effective configuration.
func (s *Sender) Config() Config {
	return s.config
}

// LastError returns the *HandshakeError of the last HandshakeFailure, or
// nil.
func (s *Sender) LastError() error {
	return s.lastErr
}

// Send transfers image[:length] to every client that answers. It blocks
// until the transfer completes, fails, or cancel returns true.
func (s *Sender) Send(image []byte, length int, cancel raw.Cancel) Result {
	s.lastErr = nil
	if !ValidSize(length) || len(image) < length {
		return InvalidSize
	}
	if cancel == nil {
		cancel = raw.Never
	}
	defer s.cable.Deactivate()

	for {
		result, retry := s.attempt(image[:length], cancel)
		if !retry {
			if result == Success {
				glog.Infof("multiboot: %d bytes sent", length)
			} else {
				glog.Warningf("multiboot: %s", result)
			}
			return result
		}
		glog.V(2).Info("multiboot: palette not acknowledged, restarting")
	}
}

func (s *Sender) attempt(image []byte, cancel raw.Cancel) (Result, bool) {
	p := &hw.MultiBootParam{
		ClientData:  [maxClients]byte{ClientNoData, ClientNoData, ClientNoData},
		PaletteData: s.config.Palette,
		Boot:        image[HeaderSize:],
	}
	phases := []func() step{
		func() step { return s.detectClients(p, cancel) },
		func() step {
			return s.compare(PhaseConfirmClients, p, CmdConfirmClients|uint16(p.ClientBit), AckHandshake, cancel)
		},
		func() step { return s.sendHeader(p, image[:HeaderSize], cancel) },
		func() step { return s.compare(PhaseConfirmHeader, p, CmdHandshake, 0, cancel) },
		func() step {
			return s.compare(PhaseReconfirm, p, CmdHandshake|uint16(p.ClientBit), AckHandshake, cancel)
		},
		func() step { return s.sendPalette(p, cancel) },
		func() step { return s.confirmHandshake(p, cancel) },
	}
	for _, phase := range phases {
		switch phase() {
		case stepRetry:
			return Success, true
		case stepAborted:
			return Canceled, false
		case stepFailed:
			return HandshakeFailure, false
		}
	}

	s.report(PhaseTransfer, p.ClientBit, 95)
	if s.bios.MultiBoot(p, hw.TransferModeMultiPlay) != 0 {
		return FailureDuringTransfer, false
	}
	s.report(PhaseComplete, p.ClientBit, 100)
	return Success, false
}

// detectClients repeats the detection phase until at least one client is
// found or cancel fires.
func (s *Sender) detectClients(p *hw.MultiBootParam, cancel raw.Cancel) step {
	for {
		if st := s.detect(p, cancel); st != stepRetry {
			return st
		}
		if cancel() {
			return stepAborted
		}
	}
}

func (s *Sender) detect(p *hw.MultiBootParam, cancel raw.Cancel) step {
	s.cable.Activate(hw.BaudRate115200)
	p.ClientBit = 0
	s.report(PhaseDetect, 0, 0)
	for t := 0; t < s.config.DetectionTries; t++ {
		r := s.exchange(CmdHandshake, cancel)
		if cancel() {
			return stepAborted
		}
		for n := 0; n < maxClients; n++ {
			v := r.Data[n+1]
			if v&ackHandshakeMask != AckHandshake {
				continue
			}
			id := byte(v &^ ackHandshakeMask)
			if !isClientID(id) {
				glog.V(2).Infof("multiboot: slot %d answered 0x%04x, restarting detection", n+1, v)
				return stepRetry
			}
			p.ClientBit |= id
		}
	}
	if p.ClientBit == 0 {
		s.cable.Deactivate()
		s.clock.WaitLines(s.config.RetryDelay)
		return stepRetry
	}
	glog.V(2).Infof("multiboot: clients %04b detected", p.ClientBit)
	return stepDone
}

func (s *Sender) compare(phase Phase, p *hw.MultiBootParam, data, want uint16, cancel raw.Cancel) step {
	s.report(phase, p.ClientBit, phasePercentage(phase))
	r := s.exchange(data, cancel)
	if cancel() {
		return stepAborted
	}
	for n := 0; n < maxClients; n++ {
		id := clientID(n)
		if p.ClientBit&id == 0 {
			continue
		}
		expected := want | uint16(id)
		if got := r.Data[n+1]; got != expected {
			s.lastErr = &HandshakeError{Phase: phase, Slot: n + 1, Want: expected, Got: got}
			glog.V(2).Info("multiboot: ", s.lastErr)
			return stepFailed
		}
	}
	return stepDone
}

func (s *Sender) sendHeader(p *hw.MultiBootParam, header []byte, cancel raw.Cancel) step {
	words := len(header) / 2
	for k := 0; k < words; k++ {
		if k%16 == 0 {
			s.report(PhaseHeader, p.ClientBit, phasePercentage(PhaseHeader)+k*80/words)
		}
		s.exchange(uint16(header[k*2])|uint16(header[k*2+1])<<8, cancel)
		if cancel() {
			return stepAborted
		}
	}
	return stepDone
}

func (s *Sender) sendPalette(p *hw.MultiBootParam, cancel raw.Cancel) step {
	s.report(PhasePalette, p.ClientBit, phasePercentage(PhasePalette))
	r := s.exchange(CmdPalette|uint16(p.PaletteData), cancel)
	if cancel() {
		return stepAborted
	}
	for n := 0; n < maxClients; n++ {
		if p.ClientBit&clientID(n) == 0 {
			continue
		}
		if v := r.Data[n+1]; v&ackResponseMask == AckResponse {
			p.ClientData[n] = byte(v)
		}
	}
	for n := 0; n < maxClients; n++ {
		if p.ClientBit&clientID(n) != 0 && p.ClientData[n] == ClientNoData {
			return stepRetry
		}
	}
	return stepDone
}

func (s *Sender) confirmHandshake(p *hw.MultiBootParam, cancel raw.Cancel) step {
	p.HandshakeData = HandshakeData(p.ClientData)
	s.report(PhaseConfirmHandshake, p.ClientBit, phasePercentage(PhaseConfirmHandshake))
	r := s.exchange(CmdConfirmHandshake|uint16(p.HandshakeData), cancel)
	if cancel() {
		return stepAborted
	}
	for n := 0; n < maxClients; n++ {
		if n > 0 && p.ClientBit&clientID(n) == 0 {
			continue
		}
		if got := r.Data[n+1]; got&ackResponseMask != AckResponse {
			s.lastErr = &HandshakeError{Phase: PhaseConfirmHandshake, Slot: n + 1, Want: AckResponse, Got: got}
			glog.V(2).Info("multiboot: ", s.lastErr)
			return stepFailed
		}
	}
	return stepDone
}

// HandshakeData computes the checksum byte over the client bytes.
func HandshakeData(clientData [maxClients]byte) byte {
	sum := HandshakeSeed
	for _, b := range clientData {
		sum += int(b)
	}
	return byte(sum % 256)
}

func (s *Sender) exchange(data uint16, cancel raw.Cancel) raw.Response {
	s.clock.WaitLines(s.config.ExchangeDelay)
	return s.cable.Transfer(data, cancel)
}

func (s *Sender) report(phase Phase, clients byte, percentage int) {
	if glog.V(3) {
		glog.Infof("multiboot: %s %d%%", phase, percentage)
	}
	if s.config.Progress != nil {
		s.config.Progress(Progress{Phase: phase, Clients: clients, Percentage: percentage})
	}
}

func phasePercentage(phase Phase) int {
	switch phase {
	case PhaseDetect:
		return 0
	case PhaseConfirmClients:
		return 2
	case PhaseHeader:
		return 5
	case PhaseConfirmHeader:
		return 86
	case PhaseReconfirm:
		return 88
	case PhasePalette:
		return 90
	case PhaseConfirmHandshake:
		return 92
	case PhaseTransfer:
		return 95
	}
	return 100
}
