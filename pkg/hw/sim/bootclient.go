package sim

import (
	"math/rand"

	"github.com/golang/glog"

	"github.com/robotalks/multilink/pkg/hw"
)

// Boot handshake words as seen by a passive client.
const (
	bootCmdHandshake   uint16 = 0x6200
	bootAckHandshake   uint16 = 0x7200
	bootCmdConfirm     uint16 = 0x6100
	bootCmdPalette     uint16 = 0x6300
	bootCmdHandshakeHH uint16 = 0x6400
	bootAckResponse    uint16 = 0x7300
	bootHandshakeSeed         = 0x11
	bootHeaderSize            = 0xC0
	bootHeaderParts           = bootHeaderSize / 2
)

type bootState int

const (
	bootWaiting bootState = iota
	bootDetected
	bootHeader
	bootHeaderSent
	bootReconfirm
	bootPalette
	bootReady
	bootDone
)

// BootClient emulates the firmware of a passive peer waiting to be booted.
// Like the hardware, every answer is loaded for the next exchange.
type BootClient struct {
	// Image receives header and body once the bulk transfer completed.
	Image []byte
	// Palette is the palette byte received from the sender.
	Palette byte

	console   *Console
	state     bootState
	remaining int
	random    byte
	handshake byte
}

// NewBootClient attaches boot firmware to a console and puts its port in
// multiplayer mode.
func NewBootClient(con *Console, seed int64) *BootClient {
	c := &BootClient{
		console: con,
		random:  byte(rand.New(rand.NewSource(seed)).Intn(0xFF)),
		Image:   make([]byte, bootHeaderSize),
	}
	con.EnterMultiplayer()
	con.SetResponder(c, hw.NoData)
	return c
}

// Booted reports whether the bulk transfer reached this client.
func (c *BootClient) Booted() bool {
	c.console.cable.lock.Lock()
	defer c.console.cable.lock.Unlock()
	return c.state == bootDone
}

// Respond implements Responder.
func (c *BootClient) Respond(position int, words [hw.MaxPlayers]uint16) uint16 {
	bit := uint16(1) << uint(position)
	cmd := words[0]
	switch c.state {
	case bootWaiting, bootDetected:
		switch {
		case cmd == bootCmdHandshake:
			c.state = bootDetected
			return bootAckHandshake | bit
		case c.state == bootDetected && cmd&0xFF00 == bootCmdConfirm && cmd&bit != 0:
			c.state, c.remaining = bootHeader, bootHeaderParts
			return uint16(c.remaining)<<8 | bit
		}
		return hw.NoData
	case bootHeader:
		offset := (bootHeaderParts - c.remaining) * 2
		c.Image[offset], c.Image[offset+1] = byte(cmd), byte(cmd>>8)
		c.remaining--
		if c.remaining == 0 {
			c.state = bootHeaderSent
		}
		return uint16(c.remaining)<<8 | bit
	case bootHeaderSent:
		if cmd == bootCmdHandshake {
			c.state = bootReconfirm
			return bootAckHandshake | bit
		}
	case bootReconfirm:
		if cmd&0xFFF0 == bootCmdHandshake && cmd&bit != 0 {
			c.state = bootPalette
			return bootAckResponse | uint16(c.random)
		}
		return bootAckHandshake | bit
	case bootPalette:
		switch cmd & 0xFF00 {
		case bootCmdPalette:
			c.Palette = byte(cmd)
		case bootCmdHandshakeHH:
			c.handshake = byte(cmd)
			c.state = bootReady
		}
		return bootAckResponse | uint16(c.random)
	}
	return hw.NoData
}

// MultiBoot implements hw.BIOS. It delivers param.Boot to every detected
// client that completed the handshake with a matching checksum.
func (c *Console) MultiBoot(param *hw.MultiBootParam, mode hw.TransferMode) int {
	if mode != hw.TransferModeMultiPlay {
		return 1
	}
	sum := bootHandshakeSeed
	for _, b := range param.ClientData {
		sum += int(b)
	}
	if byte(sum) != param.HandshakeData {
		return 1
	}

	c.cable.lock.Lock()
	defer c.cable.lock.Unlock()
	if c.position != 0 {
		return 1
	}
	delivered := 0
	for i := 1; i < hw.MaxPlayers; i++ {
		if param.ClientBit&(1<<uint(i)) == 0 {
			continue
		}
		con := c.cable.consoles[i]
		if con == nil {
			return 1
		}
		client, ok := con.responder.(*BootClient)
		if !ok || client.state != bootReady ||
			client.handshake != param.HandshakeData ||
			client.random != param.ClientData[i-1] {
			return 1
		}
		client.Image = append(client.Image[:bootHeaderSize], param.Boot...)
		client.state = bootDone
		delivered++
	}
	glog.V(2).Infof("sim: multiboot delivered %d bytes to %d clients", len(param.Boot), delivered)
	if delivered == 0 {
		return 1
	}
	return 0
}
