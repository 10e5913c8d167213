package iearn

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
	"vaultScope/internal/multicall"
)

type rawVaultState struct {
	totalSupply   *big.Int
	pool          *big.Int
	pricePerShare *big.Int
	balance       *big.Int
}

func rawMetrics(row map[string]interface{}) (rawVaultState, error) {
	var out rawVaultState
	fields := []struct {
		method string
		dst    **big.Int
	}{
		{"totalSupply", &out.totalSupply},
		{"pool", &out.pool},
		{"getPricePerFullShare", &out.pricePerShare},
		{"balance", &out.balance},
	}
	for _, f := range fields {
		value, err := multicall.AsBigInt(row[f.method])
		if err != nil {
			return rawVaultState{}, fmt.Errorf("%s: %w", f.method, err)
		}
		*f.dst = value
	}
	return out, nil
}

func computeMetrics(v model.Vault, raw rawVaultState, price decimal.Decimal) model.VaultMetrics {
	pooled := normalize(raw.pool, v.Decimals)
	return model.VaultMetrics{
		TotalSupply:      normalize(raw.totalSupply, v.Decimals),
		AvailableBalance: normalize(raw.balance, v.Decimals),
		PooledBalance:    pooled,
		PricePerShare:    normalize(raw.pricePerShare, pricePerShareDecimals),
		TokenPrice:       price,
		TVL:              pooled.Mul(price),
	}
}

func normalize(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}
