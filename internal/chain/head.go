package chain

import (
	"context"
	"fmt"
	"math/big"
)

// HeadLookup resolves the current chain height.
type HeadLookup interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Reader is the chain state the vault registries depend on.
type Reader interface {
	CreationLookup
	HeadLookup
}

// Pin returns block, or the current head when block is nil. Reads of one
// report go through the pinned height so they all observe the same state.
func Pin(ctx context.Context, head HeadLookup, block *big.Int) (*big.Int, error) {
	if block != nil {
		return block, nil
	}
	latest, err := head.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}
	return new(big.Int).SetUint64(latest), nil
}
