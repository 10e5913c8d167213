package multicall

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Backend executes many eth_calls in one round trip at one block.
type Backend interface {
	BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg, blockNumber *big.Int) ([][]byte, error)
}

// Call is a single contract read.
type Call struct {
	Target common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

// Multicaller packs contract reads into batches and decodes the results.
type Multicaller struct {
	backend Backend
}

func New(backend Backend) *Multicaller {
	return &Multicaller{backend: backend}
}

// Fetch performs all calls in one batch and returns the first output value
// of each call, in call order.
func (m *Multicaller) Fetch(ctx context.Context, block *big.Int, calls ...Call) ([]interface{}, error) {
	if m == nil || m.backend == nil {
		return nil, fmt.Errorf("multicall backend is nil")
	}
	if len(calls) == 0 {
		return nil, nil
	}

	msgs := make([]ethereum.CallMsg, len(calls))
	for i, call := range calls {
		data, err := call.ABI.Pack(call.Method, call.Args...)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", call.Method, err)
		}
		target := call.Target
		msgs[i] = ethereum.CallMsg{To: &target, Data: data}
	}

	resps, err := m.backend.BatchCallContract(ctx, msgs, block)
	if err != nil {
		return nil, fmt.Errorf("multicall: %w", err)
	}
	if len(resps) != len(calls) {
		return nil, fmt.Errorf("multicall: got %d results for %d calls", len(resps), len(calls))
	}

	out := make([]interface{}, len(calls))
	for i, call := range calls {
		values, err := call.ABI.Unpack(call.Method, resps[i])
		if err != nil {
			return nil, fmt.Errorf("unpack %s on %s: %w", call.Method, call.Target.Hex(), err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%s on %s returned no values", call.Method, call.Target.Hex())
		}
		out[i] = values[0]
	}
	return out, nil
}

// Matrix reads every method on every contract in a single batch and returns
// the results keyed by contract and method.
func (m *Multicaller) Matrix(ctx context.Context, parsed abi.ABI, contracts []common.Address, methods []string, block *big.Int) (map[common.Address]map[string]interface{}, error) {
	calls := make([]Call, 0, len(contracts)*len(methods))
	for _, contract := range contracts {
		for _, method := range methods {
			calls = append(calls, Call{Target: contract, ABI: parsed, Method: method})
		}
	}

	values, err := m.Fetch(ctx, block, calls...)
	if err != nil {
		return nil, err
	}

	out := make(map[common.Address]map[string]interface{}, len(contracts))
	for i, call := range calls {
		row, ok := out[call.Target]
		if !ok {
			row = make(map[string]interface{}, len(methods))
			out[call.Target] = row
		}
		row[call.Method] = values[i]
	}
	return out, nil
}
