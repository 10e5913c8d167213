package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	logger    *zap.Logger
	observer  BatchObserver

	mu            sync.RWMutex
	creationCache map[common.Address]uint64
	head          *big.Int
}

// BatchObserver is notified after every batched call round trip.
type BatchObserver interface {
	ObserveBatch(size int, err error)
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		rpcClient:     rpcClient,
		ethClient:     ethclient.NewClient(rpcClient),
		logger:        logger,
		creationCache: make(map[common.Address]uint64),
	}, nil
}

// SetObserver installs an observer for batched calls.
func (c *Client) SetObserver(observer BatchObserver) {
	c.observer = observer
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the pinned head if set, otherwise the latest
// block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if head := c.pinned(); head != nil {
		return head.Uint64(), nil
	}
	return c.ethClient.BlockNumber(ctx)
}

// PinHead resolves the latest block once. Afterwards reads at latest are sent
// at that height and LatestBlockNumber returns it.
func (c *Client) PinHead(ctx context.Context) (uint64, error) {
	latest, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.head = new(big.Int).SetUint64(latest)
	c.mu.Unlock()

	c.logger.Debug("head pinned", zap.Uint64("block", latest))
	return latest, nil
}

func (c *Client) pinned() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head
}

// CodeAt returns the contract code of the given account at a block height.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CodeAt(ctx, account, blockNumber)
}

// BatchCallContract sends every message as an eth_call in a single JSON-RPC
// batch. All calls are evaluated against the same block tag; a nil block
// means the pinned head, or latest when none is pinned. Results are returned
// in message order; the first failed element fails the whole batch.
func (c *Client) BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg, blockNumber *big.Int) ([][]byte, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	if blockNumber == nil {
		blockNumber = c.pinned()
	}
	block := blockTag(blockNumber)
	results := make([]hexutil.Bytes, len(msgs))
	elems := make([]rpc.BatchElem, len(msgs))
	for i, msg := range msgs {
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{toCallArg(msg), block},
			Result: &results[i],
		}
	}

	err := c.rpcClient.BatchCallContext(ctx, elems)
	if err == nil {
		for i, elem := range elems {
			if elem.Error != nil {
				err = fmt.Errorf("batch call %d: %w", i, elem.Error)
				break
			}
		}
	}
	if c.observer != nil {
		c.observer.ObserveBatch(len(msgs), err)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("batch call complete", zap.Int("calls", len(msgs)), zap.String("block", block))

	out := make([][]byte, len(results))
	for i, res := range results {
		out[i] = res
	}
	return out, nil
}

// ContractCreationBlock returns the first block at which the account holds
// code, using an in-memory cache. Requires an archive node for old contracts.
func (c *Client) ContractCreationBlock(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.RLock()
	block, ok := c.creationCache[account]
	c.mu.RUnlock()
	if ok {
		return block, nil
	}

	latest, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}

	block, err = findCreationBlock(ctx, latest, func(ctx context.Context, height uint64) (bool, error) {
		code, err := c.CodeAt(ctx, account, new(big.Int).SetUint64(height))
		if err != nil {
			return false, err
		}
		return len(code) > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("creation block %s: %w", account.Hex(), err)
	}

	c.mu.Lock()
	c.creationCache[account] = block
	c.mu.Unlock()

	c.logger.Debug("creation block resolved", zap.String("address", account.Hex()), zap.Uint64("block", block))
	return block, nil
}

func blockTag(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}

func toCallArg(msg ethereum.CallMsg) interface{} {
	arg := map[string]interface{}{
		"to": msg.To,
	}
	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	return arg
}
