package irq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRaise(t *testing.T) {
	var fired []Source
	c := New().
		Add(VBlank, HandlerFunc(func(src Source) { fired = append(fired, src) })).
		AddFunc(Serial, func() { fired = append(fired, Serial) })

	require.True(t, c.Raise(VBlank))
	require.True(t, c.Raise(Serial))
	require.False(t, c.Raise(Timer3))
	require.Equal(t, []Source{VBlank, Serial}, fired)

	c.SetEnabled(false)
	require.False(t, c.Raise(VBlank))
	require.Len(t, fired, 2)

	c.SetEnabled(true)
	c.Remove(VBlank)
	require.False(t, c.Raise(VBlank))
}

func TestTimerSource(t *testing.T) {
	require.Equal(t, Timer0, TimerSource(0))
	require.Equal(t, Timer3, TimerSource(3))
	require.Equal(t, "timer2", TimerSource(2).String())
	require.Panics(t, func() { TimerSource(4) })
}
