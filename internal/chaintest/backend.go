// Package chaintest provides an in-memory chain backend for tests. Contract
// reads are answered by registered handlers keyed by target and method.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Handler returns the ABI-decoded outputs of a method for the call
// arguments and block (nil means latest).
type Handler func(args []interface{}, block *big.Int) ([]interface{}, error)

type route struct {
	method abi.Method
	handle Handler
}

// DefaultHead is the chain height a new Backend reports as latest.
const DefaultHead = 20_000_000

// Backend implements batched eth_call, head and creation block lookups in
// memory.
type Backend struct {
	mu       sync.Mutex
	routes   map[common.Address]map[[4]byte]route
	creation map[common.Address]uint64
	head     uint64
	batches  int
	blocks   []*big.Int
}

func NewBackend() *Backend {
	return &Backend{
		routes:   make(map[common.Address]map[[4]byte]route),
		creation: make(map[common.Address]uint64),
		head:     DefaultHead,
	}
}

// Handle registers a handler for method on target.
func (b *Backend) Handle(target common.Address, parsed abi.ABI, method string, handle Handler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: unknown method %s", method))
	}
	var selector [4]byte
	copy(selector[:], m.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.routes[target] == nil {
		b.routes[target] = make(map[[4]byte]route)
	}
	b.routes[target][selector] = route{method: m, handle: handle}
}

// Returns registers constant outputs for method on target.
func (b *Backend) Returns(target common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	b.Handle(target, parsed, method, func([]interface{}, *big.Int) ([]interface{}, error) {
		return outputs, nil
	})
}

// Reverts registers a failing method on target.
func (b *Backend) Reverts(target common.Address, parsed abi.ABI, method string) {
	b.Handle(target, parsed, method, func([]interface{}, *big.Int) ([]interface{}, error) {
		return nil, fmt.Errorf("execution reverted")
	})
}

// SetCreationBlock records the deployment block of a contract.
func (b *Backend) SetCreationBlock(account common.Address, block uint64) {
	b.mu.Lock()
	b.creation[account] = block
	b.mu.Unlock()
}

// SetHead sets the height returned by LatestBlockNumber.
func (b *Backend) SetHead(block uint64) {
	b.mu.Lock()
	b.head = block
	b.mu.Unlock()
}

func (b *Backend) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head, nil
}

// Batches returns the number of batched round trips served.
func (b *Backend) Batches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batches
}

// Blocks returns the block parameter of every batch served, in order.
func (b *Backend) Blocks() []*big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*big.Int, len(b.blocks))
	copy(out, b.blocks)
	return out
}

func (b *Backend) BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg, blockNumber *big.Int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.batches++
	b.blocks = append(b.blocks, blockNumber)
	b.mu.Unlock()

	out := make([][]byte, len(msgs))
	for i, msg := range msgs {
		resp, err := b.call(msg, blockNumber)
		if err != nil {
			return nil, fmt.Errorf("batch call %d: %w", i, err)
		}
		out[i] = resp
	}
	return out, nil
}

func (b *Backend) call(msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	var selector [4]byte
	copy(selector[:], msg.Data[:4])

	b.mu.Lock()
	r, ok := b.routes[*msg.To][selector]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("execution reverted: no handler for %s %x", msg.To.Hex(), selector)
	}

	args, err := r.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack args: %w", err)
	}
	outputs, err := r.handle(args, block)
	if err != nil {
		return nil, err
	}
	return r.method.Outputs.Pack(outputs...)
}

func (b *Backend) ContractCreationBlock(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	block, ok := b.creation[account]
	if !ok {
		return 0, fmt.Errorf("creation block %s: no code", account.Hex())
	}
	return block, nil
}

// Pow10 returns n * 10^exp.
func Pow10(n int64, exp int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}
