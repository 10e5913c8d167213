package prices

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoRoute is returned by an oracle that does not know how to price a token.
var ErrNoRoute = errors.New("no price route")

// Oracle resolves a token to a spot price at a block (nil means latest).
type Oracle interface {
	GetPrice(ctx context.Context, token common.Address, block *big.Int) (decimal.Decimal, error)
}

// LookupObserver is notified after every routed price lookup.
type LookupObserver interface {
	ObservePriceLookup(route string, err error)
}

type namedOracle struct {
	name   string
	oracle Oracle
}

// Router tries each route in order. ErrNoRoute falls through to the next
// route; any other error stops the lookup.
type Router struct {
	routes   []namedOracle
	logger   *zap.Logger
	observer LookupObserver
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{logger: logger}
}

// Add appends a named route.
func (r *Router) Add(name string, oracle Oracle) {
	r.routes = append(r.routes, namedOracle{name: name, oracle: oracle})
}

// SetObserver installs an observer for price lookups.
func (r *Router) SetObserver(observer LookupObserver) {
	r.observer = observer
}

func (r *Router) GetPrice(ctx context.Context, token common.Address, block *big.Int) (decimal.Decimal, error) {
	for _, route := range r.routes {
		price, err := route.oracle.GetPrice(ctx, token, block)
		if errors.Is(err, ErrNoRoute) {
			continue
		}
		r.observe(route.name, err)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%s price %s: %w", route.name, token.Hex(), err)
		}
		r.logger.Debug("price resolved",
			zap.String("route", route.name),
			zap.String("token", token.Hex()),
			zap.String("price", price.String()),
		)
		return price, nil
	}

	r.observe("none", ErrNoRoute)
	return decimal.Decimal{}, fmt.Errorf("price %s: %w", token.Hex(), ErrNoRoute)
}

func (r *Router) observe(route string, err error) {
	if r.observer != nil {
		r.observer.ObservePriceLookup(route, err)
	}
}

// Static prices tokens from a fixed table, independent of block.
type Static struct {
	prices map[common.Address]decimal.Decimal
}

func NewStatic(prices map[common.Address]decimal.Decimal) *Static {
	table := make(map[common.Address]decimal.Decimal, len(prices))
	for token, price := range prices {
		table[token] = price
	}
	return &Static{prices: table}
}

func (s *Static) GetPrice(_ context.Context, token common.Address, _ *big.Int) (decimal.Decimal, error) {
	price, ok := s.prices[token]
	if !ok {
		return decimal.Decimal{}, ErrNoRoute
	}
	return price, nil
}
