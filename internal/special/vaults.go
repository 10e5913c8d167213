package special

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"vaultScope/internal/contracts"
	"vaultScope/internal/multicall"
	"vaultScope/internal/prices"
)

// Kind tags a special vault variant.
type Kind string

const (
	KindBackscratcher Kind = "backscratcher"
	KindYGov          Kind = "ygov"
)

// lockedDecimals is the scale of both locked balances.
const lockedDecimals = 18

// Vault is a non-standard vault that can report its own TVL.
type Vault interface {
	Name() string
	Kind() Kind
	// Vault is the contract whose creation block gates historical queries.
	Vault() common.Address
	TotalValueAt(ctx context.Context, block *big.Int) (decimal.Decimal, error)
}

// BackscratcherConfig addresses the yveCRV backscratcher.
type BackscratcherConfig struct {
	Vault        common.Address
	Proxy        common.Address
	VotingEscrow common.Address
	CRV          common.Address
}

// Backscratcher values the CRV locked in the voting escrow by the strategy proxy.
type Backscratcher struct {
	cfg    BackscratcherConfig
	caller *multicall.Multicaller
	oracle prices.Oracle
}

func NewBackscratcher(cfg BackscratcherConfig, caller *multicall.Multicaller, oracle prices.Oracle) *Backscratcher {
	return &Backscratcher{cfg: cfg, caller: caller, oracle: oracle}
}

func (b *Backscratcher) Name() string          { return "yveCRV" }
func (b *Backscratcher) Kind() Kind            { return KindBackscratcher }
func (b *Backscratcher) Vault() common.Address { return b.cfg.Vault }

func (b *Backscratcher) TotalValueAt(ctx context.Context, block *big.Int) (decimal.Decimal, error) {
	return lockedValue(ctx, b.caller, b.oracle, b.cfg.VotingEscrow, b.cfg.Proxy, b.cfg.CRV, block)
}

// YGovConfig addresses the yGov staking vault.
type YGovConfig struct {
	Vault common.Address
	Token common.Address
}

// YGov values the governance token held by the yGov vault.
type YGov struct {
	cfg    YGovConfig
	caller *multicall.Multicaller
	oracle prices.Oracle
}

func NewYGov(cfg YGovConfig, caller *multicall.Multicaller, oracle prices.Oracle) *YGov {
	return &YGov{cfg: cfg, caller: caller, oracle: oracle}
}

func (y *YGov) Name() string          { return "yGov" }
func (y *YGov) Kind() Kind            { return KindYGov }
func (y *YGov) Vault() common.Address { return y.cfg.Vault }

func (y *YGov) TotalValueAt(ctx context.Context, block *big.Int) (decimal.Decimal, error) {
	return lockedValue(ctx, y.caller, y.oracle, y.cfg.Token, y.cfg.Vault, y.cfg.Token, block)
}

// lockedValue returns balanceOf(holder) on ledger, scaled by 1e18, times the
// price of priced.
func lockedValue(ctx context.Context, caller *multicall.Multicaller, oracle prices.Oracle, ledger, holder, priced common.Address, block *big.Int) (decimal.Decimal, error) {
	erc20ABI, err := contracts.ERC20ABI()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := caller.Fetch(ctx, block, multicall.Call{
		Target: ledger,
		ABI:    erc20ABI,
		Method: "balanceOf",
		Args:   []interface{}{holder},
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	balance, err := multicall.AsBigInt(values[0])
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("balanceOf: %w", err)
	}

	price, err := oracle.GetPrice(ctx, priced, block)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return decimal.NewFromBigInt(balance, -lockedDecimals).Mul(price), nil
}
