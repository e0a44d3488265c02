// Package config reads the environment variables that parameterize a
// ledgerd node: which node it is, where its data lives, how loud it logs,
// and where its metrics are served. None of this is negotiable at the
// library layer; it exists only so main.go and the cli package have one
// place to read it from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envNodeID      = "NODE_ID"
	envDataDir     = "LEDGERD_DATA_DIR"
	envLogLevel    = "LEDGERD_LOG_LEVEL"
	envMetricsAddr = "LEDGERD_METRICS_ADDR"
)

// Config holds the resolved environment for one process.
type Config struct {
	NodeID      string
	DataDir     string
	LogLevel    string
	MetricsAddr string
}

// Load reads Config from the environment. NodeID is required; every other
// field has a default.
func Load() (Config, error) {
	nodeID := os.Getenv(envNodeID)
	if nodeID == "" {
		return Config{}, fmt.Errorf("%s environment variable is not set", envNodeID)
	}

	dataDir := os.Getenv(envDataDir)
	if dataDir == "" {
		dataDir = "./tmp"
	}

	logLevel := os.Getenv(envLogLevel)
	if logLevel == "" {
		logLevel = "info"
	}

	return Config{
		NodeID:      nodeID,
		DataDir:     dataDir,
		LogLevel:    logLevel,
		MetricsAddr: os.Getenv(envMetricsAddr),
	}, nil
}

// NamespacePath returns the data directory for one (concern, node id) pair,
// e.g. chainDir/blocks_3000.
func (c Config) NamespacePath(concern string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("%s_%s", concern, c.NodeID))
}

// NodeAddress is the address this node listens on and advertises to peers.
func (c Config) NodeAddress() string {
	return fmt.Sprintf("localhost:%s", c.NodeID)
}
