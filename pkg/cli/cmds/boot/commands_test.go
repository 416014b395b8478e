package boot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilink/pkg/cli/sh"
	"github.com/robotalks/multilink/pkg/config"
	"github.com/robotalks/multilink/pkg/hw/sim"
	"github.com/robotalks/multilink/pkg/l0/multiboot"
	"github.com/robotalks/multilink/pkg/l0/raw"
)

func newTestShell(t *testing.T, consoles int) *sh.Shell {
	s := &sh.Shell{Config: config.Default(), Cable: sim.NewCable()}
	for i := 0; i < consoles; i++ {
		node, err := s.AddNode(string(rune('a' + i)))
		require.NoError(t, err)
		_, err = s.Cable.Plug(node.Console)
		require.NoError(t, err)
	}
	return s
}

func TestBoot(t *testing.T) {
	s := newTestShell(t, 3)
	var phases []multiboot.Phase
	result, err := Boot(s, DemoImage(0x400), time.Minute, func(p multiboot.Progress) {
		phases = append(phases, p.Phase)
	})
	require.NoError(t, err)
	require.Equal(t, multiboot.Success, result)
	require.Equal(t, multiboot.PhaseComplete, phases[len(phases)-1])
	require.True(t, raw.IsGeneralPurpose(s.Nodes[0].Console.Mode()))
}

func TestBootRequiresInactiveSessions(t *testing.T) {
	s := newTestShell(t, 2)
	s.Nodes[1].Session.Activate()
	_, err := Boot(s, DemoImage(0x400), time.Minute, nil)
	require.Error(t, err)
}

func TestBootInvalidImage(t *testing.T) {
	s := newTestShell(t, 2)
	result, err := Boot(s, DemoImage(multiboot.MinImageSize+1), time.Minute, nil)
	require.Equal(t, multiboot.InvalidSize, result)
	require.Error(t, err)
}

func TestBootTimeout(t *testing.T) {
	s := newTestShell(t, 1)
	result, err := Boot(s, DemoImage(0x400), 0, nil)
	require.Equal(t, multiboot.Canceled, result)
	require.Error(t, err)
}
