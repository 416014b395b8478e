package raw

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/hw/sim"
)

func newTestCable(t *testing.T) (*Cable, *sim.Console) {
	link := sim.NewCable()
	primary, secondary := link.NewConsole("primary"), link.NewConsole("secondary")
	for _, con := range []*sim.Console{primary, secondary} {
		_, err := link.Plug(con)
		require.NoError(t, err)
	}
	return New(primary), secondary
}

func TestActivate(t *testing.T) {
	c, _ := newTestCable(t)
	require.False(t, c.IsActive())
	c.Activate(hw.BaudRate115200)
	require.True(t, c.IsActive())
	require.Equal(t, hw.BaudRate115200, c.BaudRate())
	require.False(t, IsGeneralPurpose(c.Port.Mode()))
	require.Equal(t, uint16(hw.BaudRate115200), c.Port.Control()&0b11)
	require.NotZero(t, c.Port.Control()&(1<<hw.BitMultiplayer))

	c.Deactivate()
	require.False(t, c.IsActive())
	require.True(t, IsGeneralPurpose(c.Port.Mode()))
	require.Equal(t, hw.BaudRate38400, c.BaudRate())
}

func TestTransfer(t *testing.T) {
	c, secondary := newTestCable(t)
	c.Activate(hw.BaudRate38400)

	// the secondary is still in general-purpose mode
	require.Equal(t, EmptyResponse, c.Transfer(0x1234, Never))

	secondary.EnterMultiplayer()
	secondary.SetSend(0x4321)
	require.True(t, c.IsReady())
	require.True(t, c.IsPrimary())
	r := c.Transfer(0x1234, Never)
	require.Equal(t, 0, r.PlayerID)
	require.Equal(t, [hw.MaxPlayers]uint16{0x1234, 0x4321, hw.Disconnected, hw.Disconnected}, r.Data)
	require.False(t, c.IsSending())
}

func TestIsGeneralPurpose(t *testing.T) {
	require.True(t, IsGeneralPurpose(0b10<<hw.BitGeneralPurposeLow))
	require.True(t, IsGeneralPurpose(0b10<<hw.BitGeneralPurposeLow|0x00FF))
	require.False(t, IsGeneralPurpose(0b11<<hw.BitGeneralPurposeLow))
	require.False(t, IsGeneralPurpose(0))
}
