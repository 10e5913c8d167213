package model

import "github.com/shopspring/decimal"

const (
	RegistryIEarn   = "iearn"
	RegistrySpecial = "special"
)

// TVLSnapshot is one reported value of a vault at a block.
type TVLSnapshot struct {
	Registry string          `json:"registry"`
	Name     string          `json:"name"`
	Block    *uint64         `json:"block,omitempty"`
	TVL      decimal.Decimal `json:"tvl"`
	Metrics  *VaultMetrics   `json:"metrics,omitempty"`
}

// MarketRecord lists the markets of one lending protocol.
type MarketRecord struct {
	Protocol string   `json:"protocol"`
	Markets  []string `json:"markets"`
}
