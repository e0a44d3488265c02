package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresNodeID(t *testing.T) {
	t.Setenv("NODE_ID", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("NODE_ID", "3000")
	t.Setenv("LEDGERD_DATA_DIR", "")
	t.Setenv("LEDGERD_LOG_LEVEL", "")
	t.Setenv("LEDGERD_METRICS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "3000", cfg.NodeID)
	require.Equal(t, "./tmp", cfg.DataDir)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "localhost:3000", cfg.NodeAddress())
}

func TestNamespacePathIncludesNodeID(t *testing.T) {
	cfg := Config{NodeID: "3001", DataDir: "/var/ledgerd"}
	require.Equal(t, "/var/ledgerd/blocks_3001", cfg.NamespacePath("blocks"))
}
