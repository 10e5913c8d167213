package prices

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"vaultScope/internal/contracts"
	"vaultScope/internal/multicall"
)

// ErrUnpricedUnderlying is returned for a listed market whose underlying token
// has no price route.
var ErrUnpricedUnderlying = errors.New("underlying has no price route")

// MarketChecker reports whether an address is a listed lending market.
type MarketChecker interface {
	IsMarket(ctx context.Context, address common.Address) (bool, error)
}

// Compound prices cTokens from their exchange rate and underlying price.
//
// The exchange rate is scaled by 10^(18 + underlyingDecimals - cTokenDecimals).
// Native markets have no underlying() and must be listed in nativeUnderlying.
type Compound struct {
	caller           *multicall.Multicaller
	markets          MarketChecker
	underlying       Oracle
	nativeUnderlying map[common.Address]common.Address
}

func NewCompound(caller *multicall.Multicaller, markets MarketChecker, underlying Oracle, nativeUnderlying map[common.Address]common.Address) *Compound {
	table := make(map[common.Address]common.Address, len(nativeUnderlying))
	for market, token := range nativeUnderlying {
		table[market] = token
	}
	return &Compound{
		caller:           caller,
		markets:          markets,
		underlying:       underlying,
		nativeUnderlying: table,
	}
}

func (c *Compound) GetPrice(ctx context.Context, token common.Address, block *big.Int) (decimal.Decimal, error) {
	listed, err := c.markets.IsMarket(ctx, token)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("market lookup: %w", err)
	}
	if !listed {
		return decimal.Decimal{}, ErrNoRoute
	}

	cTokenABI, err := contracts.CTokenABI()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse ctoken abi: %w", err)
	}
	erc20ABI, err := contracts.ERC20ABI()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	calls := []multicall.Call{
		{Target: token, ABI: cTokenABI, Method: "exchangeRateStored"},
		{Target: token, ABI: cTokenABI, Method: "decimals"},
	}
	underlying, native := c.nativeUnderlying[token]
	if !native {
		calls = append(calls, multicall.Call{Target: token, ABI: cTokenABI, Method: "underlying"})
	}

	values, err := c.caller.Fetch(ctx, block, calls...)
	if err != nil {
		return decimal.Decimal{}, err
	}
	rate, err := multicall.AsBigInt(values[0])
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("exchangeRateStored: %w", err)
	}
	cTokenDecimals, err := multicall.AsUint8(values[1])
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decimals: %w", err)
	}
	if !native {
		underlying, err = multicall.AsAddress(values[2])
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("underlying: %w", err)
		}
	}

	values, err = c.caller.Fetch(ctx, block, multicall.Call{Target: underlying, ABI: erc20ABI, Method: "decimals"})
	if err != nil {
		return decimal.Decimal{}, err
	}
	underlyingDecimals, err := multicall.AsUint8(values[0])
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("underlying decimals: %w", err)
	}

	underlyingPrice, err := c.underlying.GetPrice(ctx, underlying, block)
	if errors.Is(err, ErrNoRoute) {
		return decimal.Decimal{}, fmt.Errorf("market %s underlying %s: %w", token.Hex(), underlying.Hex(), ErrUnpricedUnderlying)
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("market %s underlying %s: %w", token.Hex(), underlying.Hex(), err)
	}

	scale := 18 + int32(underlyingDecimals) - int32(cTokenDecimals)
	return decimal.NewFromBigInt(rate, -scale).Mul(underlyingPrice), nil
}
