package env

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientID(t *testing.T) {
	id := ClientID("p0")
	require.True(t, strings.HasPrefix(id, AppID+"-"))
	require.True(t, strings.HasSuffix(id, "-p0"))
	require.Equal(t, id, ClientID("p0"))
}
