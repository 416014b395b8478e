package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilink/pkg/config"
	"github.com/robotalks/multilink/pkg/hw/sim"
	"github.com/robotalks/multilink/pkg/l0/cable"
)

func newTestShell(t *testing.T, consoles int) *Shell {
	s := &Shell{Config: config.Default(), Cable: sim.NewCable()}
	s.Clock = sim.NewClock(s.Cable)
	for i := 0; i < consoles; i++ {
		node, err := s.AddNode(string(rune('a' + i)))
		require.NoError(t, err)
		_, err = s.Cable.Plug(node.Console)
		require.NoError(t, err)
	}
	return s
}

func TestNode(t *testing.T) {
	s := newTestShell(t, 2)
	n, err := s.Node("b")
	require.NoError(t, err)
	require.Equal(t, "b", n.Console.Name)
	n, err = s.Node("0")
	require.NoError(t, err)
	require.Equal(t, "a", n.Console.Name)
	_, err = s.Node("2")
	require.Error(t, err)

	nodes, err := s.NodesOf(nil)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	_, err = s.NodesOf([]string{"a", "x"})
	require.Error(t, err)
}

func TestAdvance(t *testing.T) {
	s := newTestShell(t, 2)
	for _, n := range s.Nodes {
		n.Session.Activate()
	}
	fired, err := s.Advance(10 * sim.FrameDuration)
	require.NoError(t, err)
	require.NotZero(t, fired)
	for n, node := range s.Nodes {
		st := node.Status()
		require.Equal(t, cable.Connected.String(), st.State)
		require.Equal(t, 2, st.PlayerCount)
		require.Equal(t, n, st.PlayerID)
		require.Equal(t, n, st.Position)
	}

	s.cancel = func() {}
	_, err = s.Advance(sim.FrameDuration)
	require.Error(t, err)
}
