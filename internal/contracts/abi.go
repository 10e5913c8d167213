package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const iEarnVaultABIJSON = `[
  {"inputs": [], "name": "token", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "pool", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getPricePerFullShare", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "balance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const comptrollerABIJSON = `[
  {"inputs": [], "name": "getAllMarkets", "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}], "stateMutability": "view", "type": "function"}
]`

const cTokenABIJSON = `[
  {"inputs": [], "name": "underlying", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "exchangeRateStored", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

const aggregatorABIJSON = `[
  {"inputs": [], "name": "latestAnswer", "outputs": [{"internalType": "int256", "name": "", "type": "int256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

type lazyABI struct {
	raw    string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.raw))
	})
	return l.parsed, l.err
}

var (
	iEarnVaultABI  = &lazyABI{raw: iEarnVaultABIJSON}
	erc20ABI       = &lazyABI{raw: erc20ABIJSON}
	comptrollerABI = &lazyABI{raw: comptrollerABIJSON}
	cTokenABI      = &lazyABI{raw: cTokenABIJSON}
	aggregatorABI  = &lazyABI{raw: aggregatorABIJSON}
)

// IEarnVaultABI returns the parsed iEarn vault ABI.
func IEarnVaultABI() (abi.ABI, error) { return iEarnVaultABI.get() }

// ERC20ABI returns the parsed ERC20 subset (decimals, balanceOf). The voting
// escrow exposes the same balanceOf(address) signature.
func ERC20ABI() (abi.ABI, error) { return erc20ABI.get() }

// ComptrollerABI returns the parsed comptroller ABI.
func ComptrollerABI() (abi.ABI, error) { return comptrollerABI.get() }

// CTokenABI returns the parsed cToken ABI.
func CTokenABI() (abi.ABI, error) { return cTokenABI.get() }

// AggregatorABI returns the parsed Chainlink aggregator ABI.
func AggregatorABI() (abi.ABI, error) { return aggregatorABI.get() }
