package model

import "github.com/ethereum/go-ethereum/common"

// Vault describes an iEarn vault. Token and decimals are read from chain.
type Vault struct {
	Name     string         `json:"name"`
	Address  common.Address `json:"address"`
	Token    common.Address `json:"token"`
	Decimals uint8          `json:"decimals"`
}
