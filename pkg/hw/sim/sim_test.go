package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/irq"
)

type simTestEnv struct {
	cable    *Cable
	consoles []*Console
}

func newSimTestEnv(t *testing.T, n int) *simTestEnv {
	env := &simTestEnv{cable: NewCable()}
	for i := 0; i < n; i++ {
		con := env.cable.NewConsole(string(rune('a' + i)))
		pos, err := env.cable.Plug(con)
		require.NoError(t, err)
		require.Equal(t, i, pos)
		env.consoles = append(env.consoles, con)
	}
	return env
}

func (e *simTestEnv) multiplayer() {
	for _, con := range e.consoles {
		con.EnterMultiplayer()
	}
}

func TestPlugLimits(t *testing.T) {
	env := newSimTestEnv(t, hw.MaxPlayers)
	_, err := env.cable.Plug(env.consoles[0])
	require.Equal(t, ErrAlreadyPlugged, err)
	_, err = env.cable.Plug(env.cable.NewConsole("extra"))
	require.Equal(t, ErrCableFull, err)

	env.cable.Unplug(env.consoles[1])
	require.Equal(t, -1, env.consoles[1].Position())
	require.Len(t, env.cable.Consoles(), 3)
	require.Len(t, env.cable.All(), 5)
}

func TestControlBits(t *testing.T) {
	env := newSimTestEnv(t, 2)
	primary, secondary := env.consoles[0], env.consoles[1]
	require.Zero(t, primary.Control()&(1<<hw.BitReady))

	env.multiplayer()
	require.NotZero(t, primary.Control()&(1<<hw.BitReady))
	require.Zero(t, primary.Control()&(1<<hw.BitSecondary))
	require.NotZero(t, secondary.Control()&(1<<hw.BitSecondary))

	secondary.SetError(true)
	require.NotZero(t, secondary.Control()&(1<<hw.BitError))
}

func TestExchange(t *testing.T) {
	env := newSimTestEnv(t, 3)
	env.multiplayer()
	var serial []string
	for _, con := range env.consoles {
		name := con.Name
		con.IRQ.AddFunc(irq.Serial, func() { serial = append(serial, name) })
		con.SetControl(con.Control() | 1<<hw.BitIRQ)
	}
	env.consoles[0].SetSend(0x1111)
	env.consoles[1].SetSend(0x2222)
	env.consoles[2].SetResponder(RespondFunc(func(pos int, words [hw.MaxPlayers]uint16) uint16 {
		return words[0] + 1
	}), 0x3333)

	primary := env.consoles[0]
	primary.SetControl(primary.Control() | 1<<hw.BitStart)
	require.True(t, env.cable.Flush())
	require.Equal(t, 1, env.cable.Exchanges())
	require.Equal(t, []string{"a", "b", "c"}, serial)

	for n, con := range env.consoles {
		require.Equal(t, uint16(0x1111), con.Recv(0))
		require.Equal(t, uint16(0x2222), con.Recv(1))
		require.Equal(t, uint16(0x3333), con.Recv(2))
		require.Equal(t, hw.Disconnected, con.Recv(3))
		require.Equal(t, uint16(n), (con.Control()&hw.PlayerIDMask)>>hw.BitsPlayerID)
	}
	require.Equal(t, uint16(0x1112), env.consoles[2].Send())
	require.Zero(t, primary.Control()&(1<<hw.BitStart))
	require.False(t, env.cable.Flush())
}

func TestSecondaryCannotStart(t *testing.T) {
	env := newSimTestEnv(t, 2)
	env.multiplayer()
	secondary := env.consoles[1]
	secondary.SetControl(secondary.Control() | 1<<hw.BitStart)
	require.Zero(t, secondary.Control()&(1<<hw.BitStart))
	require.False(t, env.cable.Flush())
}

func TestExchangeNotReady(t *testing.T) {
	env := newSimTestEnv(t, 2)
	primary := env.consoles[0]
	primary.EnterMultiplayer()
	primary.SetControl(primary.Control() | 1<<hw.BitStart)
	ctrl := primary.Control()
	require.Zero(t, ctrl&(1<<hw.BitStart))
	require.Zero(t, ctrl&(1<<hw.BitReady))
	require.Equal(t, hw.Disconnected, primary.Recv(1))
	require.Zero(t, env.cable.Exchanges())
}

func TestClock(t *testing.T) {
	env := newSimTestEnv(t, 2)
	con := env.consoles[0]
	var vblanks, timers int
	con.IRQ.AddFunc(irq.VBlank, func() { vblanks++ })
	con.IRQ.AddFunc(irq.Timer3, func() { timers++ })

	clock := NewClock(env.cable)
	clock.Advance(FrameDuration * 3)
	require.Equal(t, 3, vblanks)
	require.Zero(t, timers)

	// 1024 ticks of 1024 cycles is 1/16 s
	con.Start(3, 1024, hw.TimerFreq1024)
	require.Equal(t, time.Second/16, con.TimerPeriod(3))
	clock.Advance(time.Second / 2)
	require.Equal(t, 8, timers)
	require.Equal(t, 3+hw.FPS/2, vblanks)

	con.Stop(3)
	clock.Advance(time.Second)
	require.Equal(t, 8, timers)
	require.Equal(t, FrameDuration*3+time.Second*3/2, clock.Now())
}
