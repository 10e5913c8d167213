package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CreationLookup resolves the deployment block of a contract.
type CreationLookup interface {
	ContractCreationBlock(ctx context.Context, account common.Address) (uint64, error)
}

// CreatedBy keeps the items whose contract was deployed at or before block.
// A nil block means latest and keeps every item without any lookups.
func CreatedBy[T any](ctx context.Context, lookup CreationLookup, items []T, addressOf func(T) common.Address, block *big.Int) ([]T, error) {
	if block == nil {
		return items, nil
	}
	if lookup == nil {
		return nil, fmt.Errorf("creation lookup is nil")
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		created, err := lookup.ContractCreationBlock(ctx, addressOf(item))
		if err != nil {
			return nil, err
		}
		if new(big.Int).SetUint64(created).Cmp(block) <= 0 {
			out = append(out, item)
		}
	}
	return out, nil
}

// findCreationBlock binary searches [0, latest] for the lowest height at
// which hasCode reports true.
func findCreationBlock(ctx context.Context, latest uint64, hasCode func(context.Context, uint64) (bool, error)) (uint64, error) {
	ok, err := hasCode(ctx, latest)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("no code at block %d", latest)
	}

	lo, hi := uint64(0), latest
	for lo < hi {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		mid := lo + (hi-lo)/2
		ok, err := hasCode(ctx, mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}
