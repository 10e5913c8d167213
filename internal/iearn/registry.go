package iearn

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/contracts"
	"vaultScope/internal/model"
	"vaultScope/internal/multicall"
	"vaultScope/internal/parallel"
	"vaultScope/internal/prices"
)

// pricePerShareDecimals is fixed: getPricePerFullShare is 1e18-scaled for
// every vault regardless of the vault's own decimals.
const pricePerShareDecimals = 18

var metricMethods = []string{"totalSupply", "pool", "getPricePerFullShare", "balance"}

// Entry is a configured vault address.
type Entry struct {
	Name    string
	Address common.Address
}

// Config controls registry behavior.
type Config struct {
	Vaults      []Entry
	Concurrency int
}

// Registry reports metrics and TVL of iEarn vaults.
type Registry struct {
	cfg    Config
	caller *multicall.Multicaller
	oracle prices.Oracle
	state  chain.Reader
	logger *zap.Logger
}

func NewRegistry(cfg Config, caller *multicall.Multicaller, oracle prices.Oracle, state chain.Reader, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = parallel.DefaultLimit
	}
	return &Registry{
		cfg:    cfg,
		caller: caller,
		oracle: oracle,
		state:  state,
		logger: logger,
	}
}

// Load reads token and decimals of every configured vault in one batch and
// returns descriptors in configuration order.
func (r *Registry) Load(ctx context.Context) ([]model.Vault, error) {
	vaultABI, err := contracts.IEarnVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}

	addresses := make([]common.Address, 0, len(r.cfg.Vaults))
	for _, entry := range r.cfg.Vaults {
		addresses = append(addresses, entry.Address)
	}

	results, err := r.caller.Matrix(ctx, vaultABI, addresses, []string{"token", "decimals"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load vaults: %w", err)
	}

	vaults := make([]model.Vault, 0, len(r.cfg.Vaults))
	for _, entry := range r.cfg.Vaults {
		row := results[entry.Address]
		token, err := multicall.AsAddress(row["token"])
		if err != nil {
			return nil, fmt.Errorf("%s token: %w", entry.Name, err)
		}
		decimals, err := multicall.AsUint8(row["decimals"])
		if err != nil {
			return nil, fmt.Errorf("%s decimals: %w", entry.Name, err)
		}
		vaults = append(vaults, model.Vault{
			Name:     entry.Name,
			Address:  entry.Address,
			Token:    token,
			Decimals: decimals,
		})
	}

	r.logger.Info("vaults loaded", zap.Int("vaults", len(vaults)))
	return vaults, nil
}

// Describe returns the full metrics of every vault that existed at block. A
// nil block reads every field and price at one resolved head.
func (r *Registry) Describe(ctx context.Context, vaults []model.Vault, block *big.Int) (map[string]model.VaultMetrics, error) {
	active, err := r.activeAt(ctx, vaults, block)
	if err != nil {
		return nil, err
	}
	at, err := chain.Pin(ctx, r.state, block)
	if err != nil {
		return nil, err
	}

	vaultABI, err := contracts.IEarnVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}

	addresses := make([]common.Address, 0, len(active))
	for _, v := range active {
		addresses = append(addresses, v.Address)
	}
	results, err := r.caller.Matrix(ctx, vaultABI, addresses, metricMethods, at)
	if err != nil {
		return nil, fmt.Errorf("describe vaults: %w", err)
	}

	tokenPrices, err := r.prices(ctx, active, at)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.VaultMetrics, len(active))
	for i, v := range active {
		raw, err := rawMetrics(results[v.Address])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name, err)
		}
		out[v.Name] = computeMetrics(v, raw, tokenPrices[i])
	}
	return out, nil
}

// TotalValueAt returns the TVL of every vault that existed at block. Only
// pool is read from chain; prices are looked up concurrently.
func (r *Registry) TotalValueAt(ctx context.Context, vaults []model.Vault, block *big.Int) (map[string]decimal.Decimal, error) {
	active, err := r.activeAt(ctx, vaults, block)
	if err != nil {
		return nil, err
	}
	at, err := chain.Pin(ctx, r.state, block)
	if err != nil {
		return nil, err
	}

	vaultABI, err := contracts.IEarnVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}

	tokenPrices, err := r.prices(ctx, active, at)
	if err != nil {
		return nil, err
	}

	calls := make([]multicall.Call, 0, len(active))
	for _, v := range active {
		calls = append(calls, multicall.Call{Target: v.Address, ABI: vaultABI, Method: "pool"})
	}
	pools, err := r.caller.Fetch(ctx, at, calls...)
	if err != nil {
		return nil, fmt.Errorf("vault pools: %w", err)
	}

	out := make(map[string]decimal.Decimal, len(active))
	for i, v := range active {
		pool, err := multicall.AsBigInt(pools[i])
		if err != nil {
			return nil, fmt.Errorf("%s pool: %w", v.Name, err)
		}
		out[v.Name] = normalize(pool, v.Decimals).Mul(tokenPrices[i])
	}
	return out, nil
}

func (r *Registry) activeAt(ctx context.Context, vaults []model.Vault, block *big.Int) ([]model.Vault, error) {
	active, err := chain.CreatedBy(ctx, r.state, vaults, func(v model.Vault) common.Address { return v.Address }, block)
	if err != nil {
		return nil, fmt.Errorf("filter vaults: %w", err)
	}
	if len(active) != len(vaults) {
		r.logger.Debug("vaults filtered by creation block",
			zap.Int("total", len(vaults)),
			zap.Int("active", len(active)),
			zap.Stringer("block", block),
		)
	}
	return active, nil
}

func (r *Registry) prices(ctx context.Context, vaults []model.Vault, block *big.Int) ([]decimal.Decimal, error) {
	return parallel.Map(ctx, r.cfg.Concurrency, vaults, func(ctx context.Context, v model.Vault) (decimal.Decimal, error) {
		price, err := r.oracle.GetPrice(ctx, v.Token, block)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%s token price: %w", v.Name, err)
		}
		return price, nil
	})
}
