package prices

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"vaultScope/internal/contracts"
	"vaultScope/internal/multicall"
)

// Chainlink prices tokens from configured aggregator feeds.
type Chainlink struct {
	caller *multicall.Multicaller
	feeds  map[common.Address]common.Address
}

func NewChainlink(caller *multicall.Multicaller, feeds map[common.Address]common.Address) *Chainlink {
	table := make(map[common.Address]common.Address, len(feeds))
	for token, feed := range feeds {
		table[token] = feed
	}
	return &Chainlink{caller: caller, feeds: table}
}

func (c *Chainlink) GetPrice(ctx context.Context, token common.Address, block *big.Int) (decimal.Decimal, error) {
	feed, ok := c.feeds[token]
	if !ok {
		return decimal.Decimal{}, ErrNoRoute
	}

	aggregatorABI, err := contracts.AggregatorABI()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse aggregator abi: %w", err)
	}

	values, err := c.caller.Fetch(ctx, block,
		multicall.Call{Target: feed, ABI: aggregatorABI, Method: "latestAnswer"},
		multicall.Call{Target: feed, ABI: aggregatorABI, Method: "decimals"},
	)
	if err != nil {
		return decimal.Decimal{}, err
	}

	answer, err := multicall.AsBigInt(values[0])
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("latestAnswer: %w", err)
	}
	if answer.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("feed %s answered %s", feed.Hex(), answer.String())
	}
	decimals, err := multicall.AsUint8(values[1])
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decimals: %w", err)
	}

	return decimal.NewFromBigInt(answer, -int32(decimals)), nil
}
