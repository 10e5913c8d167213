package special

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// Registry reports the special vaults.
type Registry struct {
	vaults []Vault
	state  chain.Reader
	logger *zap.Logger
}

func NewRegistry(state chain.Reader, logger *zap.Logger, vaults ...Vault) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		vaults: vaults,
		state:  state,
		logger: logger,
	}
}

// Vaults returns every registered vault.
func (r *Registry) Vaults() []Vault {
	return append([]Vault(nil), r.vaults...)
}

// ActiveVaultsAt returns the vaults whose contract existed at block.
func (r *Registry) ActiveVaultsAt(ctx context.Context, block *big.Int) ([]Vault, error) {
	active, err := chain.CreatedBy(ctx, r.state, r.Vaults(), func(v Vault) common.Address { return v.Vault() }, block)
	if err != nil {
		return nil, fmt.Errorf("filter special vaults: %w", err)
	}
	return active, nil
}

// TotalValueAt returns the TVL of every active vault keyed by name. A nil
// block values every vault at one resolved head.
func (r *Registry) TotalValueAt(ctx context.Context, block *big.Int) (map[string]decimal.Decimal, error) {
	active, err := r.ActiveVaultsAt(ctx, block)
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(active))
	if len(active) == 0 {
		return out, nil
	}
	at, err := chain.Pin(ctx, r.state, block)
	if err != nil {
		return nil, err
	}
	for _, v := range active {
		value, err := v.TotalValueAt(ctx, at)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name(), err)
		}
		r.logger.Debug("special vault valued", zap.String("vault", v.Name()), zap.String("kind", string(v.Kind())), zap.String("tvl", value.String()))
		out[v.Name()] = value
	}
	return out, nil
}

// Describe is not supported for special vaults and always returns an empty map.
func (r *Registry) Describe(_ context.Context, _ *big.Int) (map[string]model.VaultMetrics, error) {
	return map[string]model.VaultMetrics{}, nil
}
