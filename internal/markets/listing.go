package markets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/contracts"
	"vaultScope/internal/multicall"
)

// DefaultTTL is how long a fetched market listing is served from cache.
const DefaultTTL = time.Hour

// Protocol is a Compound-style lending protocol identified by its comptroller.
type Protocol struct {
	Name        string
	Comptroller common.Address
}

type snapshot struct {
	markets   map[string][]common.Address
	members   map[common.Address]struct{}
	fetchedAt time.Time
}

// Listing serves the markets of every configured protocol from a single-slot
// cache that is refreshed lazily once it is older than ttl. The fetch runs
// without holding the lock, so concurrent callers that all observe an
// expired slot may each fetch; the last one to finish wins the slot.
type Listing struct {
	caller    *multicall.Multicaller
	protocols []Protocol
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.Mutex
	cache *snapshot
}

func NewListing(caller *multicall.Multicaller, protocols []Protocol, ttl time.Duration, logger *zap.Logger) *Listing {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listing{
		caller:    caller,
		protocols: append([]Protocol(nil), protocols...),
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Protocols returns the configured protocols in order.
func (l *Listing) Protocols() []Protocol {
	return append([]Protocol(nil), l.protocols...)
}

// GetMarkets returns market addresses keyed by protocol name.
func (l *Listing) GetMarkets(ctx context.Context) (map[string][]common.Address, error) {
	snap, err := l.current(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]common.Address, len(snap.markets))
	for name, list := range snap.markets {
		out[name] = append([]common.Address(nil), list...)
	}
	return out, nil
}

// IsMarket reports whether address is listed by any protocol.
func (l *Listing) IsMarket(ctx context.Context, address common.Address) (bool, error) {
	snap, err := l.current(ctx)
	if err != nil {
		return false, err
	}
	_, ok := snap.members[address]
	return ok, nil
}

func (l *Listing) current(ctx context.Context) (*snapshot, error) {
	l.mu.Lock()
	snap := l.cache
	l.mu.Unlock()

	if snap != nil && l.now().Sub(snap.fetchedAt) < l.ttl {
		return snap, nil
	}

	fresh, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache = fresh
	l.mu.Unlock()
	return fresh, nil
}

func (l *Listing) fetch(ctx context.Context) (*snapshot, error) {
	comptrollerABI, err := contracts.ComptrollerABI()
	if err != nil {
		return nil, fmt.Errorf("parse comptroller abi: %w", err)
	}

	calls := make([]multicall.Call, 0, len(l.protocols))
	for _, p := range l.protocols {
		calls = append(calls, multicall.Call{Target: p.Comptroller, ABI: comptrollerABI, Method: "getAllMarkets"})
	}

	values, err := l.caller.Fetch(ctx, nil, calls...)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	snap := &snapshot{
		markets:   make(map[string][]common.Address, len(l.protocols)),
		members:   make(map[common.Address]struct{}),
		fetchedAt: l.now(),
	}
	for i, p := range l.protocols {
		list, err := multicall.AsAddresses(values[i])
		if err != nil {
			return nil, fmt.Errorf("%s getAllMarkets: %w", p.Name, err)
		}
		snap.markets[p.Name] = list
		for _, market := range list {
			snap.members[market] = struct{}{}
		}
	}

	l.logger.Info("markets refreshed", zap.Int("protocols", len(l.protocols)), zap.Int("markets", len(snap.members)))
	return snap, nil
}
