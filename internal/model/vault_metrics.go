package model

import "github.com/shopspring/decimal"

// VaultMetrics holds the normalized state of a vault at one block.
type VaultMetrics struct {
	TotalSupply      decimal.Decimal `json:"total supply"`
	AvailableBalance decimal.Decimal `json:"available balance"`
	PooledBalance    decimal.Decimal `json:"pooled balance"`
	PricePerShare    decimal.Decimal `json:"price per share"`
	TokenPrice       decimal.Decimal `json:"token price"`
	TVL              decimal.Decimal `json:"tvl"`
}
