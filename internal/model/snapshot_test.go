package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestVaultMetricsJSONKeys(t *testing.T) {
	metrics := VaultMetrics{
		TotalSupply:      decimal.RequireFromString("1000"),
		AvailableBalance: decimal.RequireFromString("100"),
		PooledBalance:    decimal.RequireFromString("900"),
		PricePerShare:    decimal.RequireFromString("1.05"),
		TokenPrice:       decimal.RequireFromString("2"),
		TVL:              decimal.RequireFromString("1800"),
	}

	data, err := json.Marshal(metrics)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"total supply", "available balance", "pooled balance", "price per share", "token price", "tvl"} {
		_, ok := decoded[key].(string)
		require.Truef(t, ok, "%s should be a decimal string", key)
	}
	require.Equal(t, "1.05", decoded["price per share"])
}

func TestTVLSnapshotOmitsLatestBlock(t *testing.T) {
	data, err := json.Marshal(TVLSnapshot{Registry: RegistrySpecial, Name: "yGov", TVL: decimal.NewFromInt(3)})
	require.NoError(t, err)
	require.JSONEq(t, `{"registry":"special","name":"yGov","tvl":"3"}`, string(data))

	block := uint64(11000000)
	data, err = json.Marshal(TVLSnapshot{Registry: RegistryIEarn, Name: "yDAIv2", Block: &block, TVL: decimal.NewFromInt(1)})
	require.NoError(t, err)
	require.JSONEq(t, `{"registry":"iearn","name":"yDAIv2","block":11000000,"tvl":"1"}`, string(data))
}
