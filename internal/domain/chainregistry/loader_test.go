package chainregistry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCatalog = `[
  {
    "chainId": 1, "name": "ethereum", "providers": ["https://rpc.example/1"],
    "assets": [
      {"address": "0xusdc1", "symbol": "USDC", "decimals": 6, "tickerHash": "usdc-hash", "isNative": false, "balanceThreshold": "1000000000000000000"}
    ]
  },
  {
    "chainId": 10, "name": "optimism", "providers": ["https://rpc.example/10"],
    "assets": [
      {"address": "0xusdc10", "symbol": "USDC", "decimals": 6, "tickerHash": "usdc-hash"}
    ]
  }
]`

func TestLoadJSONParsesChainsAndAssets(t *testing.T) {
	reg, err := LoadJSON([]byte(sampleCatalog))
	require.NoError(t, err)

	eth, ok := reg.Chain(1)
	require.True(t, ok)
	require.Equal(t, "ethereum", eth.Name)
	require.Equal(t, []string{"https://rpc.example/1"}, eth.Providers)

	asset, ok := reg.Asset(1, "usdc-hash")
	require.True(t, ok)
	require.Equal(t, "0xusdc1", asset.Address)
	require.Equal(t, "1000000000000000000", asset.BalanceThreshold)

	op, ok := reg.Asset(10, "usdc-hash")
	require.True(t, ok)
	require.Equal(t, "0", op.BalanceThreshold)
}

func TestLoadJSONRejectsNonArray(t *testing.T) {
	_, err := LoadJSON([]byte(`{"not": "an array"}`))
	require.Error(t, err)
}

func TestLoadJSONRejectsDuplicateChainID(t *testing.T) {
	_, err := LoadJSON([]byte(`[{"chainId":1,"name":"a"},{"chainId":1,"name":"b"}]`))
	require.Error(t, err)
}
