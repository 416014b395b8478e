package hw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaudRate(t *testing.T) {
	for _, bps := range []int{9600, 38400, 57600, 115200} {
		b, ok := BaudRateFromBPS(bps)
		require.True(t, ok)
		require.True(t, b.IsValid())
		require.Equal(t, bps, b.BitsPerSecond())
	}
	_, ok := BaudRateFromBPS(19200)
	require.False(t, ok)
	require.False(t, BaudRate(4).IsValid())
	require.Zero(t, BaudRate(4).BitsPerSecond())
}
