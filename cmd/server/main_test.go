package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_PortFlag(t *testing.T) {
	t.Cleanup(func() { port = "" })

	require.NoError(t, rootCmd.ParseFlags([]string{"--port", "9090"}))

	require.Equal(t, "9090", port)
}
