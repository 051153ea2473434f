package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  host: "127.0.0.1"
  port: 9090
database:
  dsn: "host=localhost dbname=test"
chain:
  activeNetwork: "sepolia"
  networks:
    sepolia:
      chainId: 11155111
      name: "Sepolia"
      rpcEndpoints:
        - "https://rpc.example.com"
      enabled: true
mint:
  contract: "0x1111111111111111111111111111111111111111"
admin:
  allowedWallets:
    - "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	require.NoError(t, LoadConfig(writeTestConfig(t)))

	assert.Equal(t, 9090, AppConfig.Server.Port)
	assert.Equal(t, "sepolia", AppConfig.Chain.ActiveNetwork)

	// safety ceilings fall back to their defaults
	assert.Equal(t, big.NewInt(1e18), AppConfig.Mint.PriceCeiling())
	assert.Equal(t, uint64(500000), AppConfig.Mint.GasCeiling)
	assert.Equal(t, big.NewInt(50e9), AppConfig.Mint.MaxFeePerGas())
	assert.Equal(t, big.NewInt(2e9), AppConfig.Mint.MaxPriorityFeePerGas())
	assert.Equal(t, 60, AppConfig.RateLimit.WindowSeconds)
	assert.Equal(t, 10, AppConfig.RateLimit.MaxRequests)
	assert.Equal(t, "fallback_orders.db", AppConfig.Fallback.Path)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MINT_PRICE_CEILING_WEI", "2000000000000000000")
	t.Setenv("SEPOLIA_PRIVATE_KEY", "deadbeef")
	t.Setenv("ADMIN_WALLETS", "0xaaa, 0xbbb")

	require.NoError(t, LoadConfig(writeTestConfig(t)))

	assert.Equal(t, big.NewInt(2e18), AppConfig.Mint.PriceCeiling())
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, AppConfig.Admin.AllowedWallets)

	network, err := GetNetworkConfig("sepolia")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", network.PrivateKey)
}

func TestGetActiveNetwork(t *testing.T) {
	require.NoError(t, LoadConfig(writeTestConfig(t)))

	network, err := GetActiveNetwork()
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), network.ChainID)

	_, err = GetNetworkConfig("mainnet")
	require.Error(t, err)
}
