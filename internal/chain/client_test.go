package chain

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

var (
	vaultA = common.HexToAddress("0x16de59092dAE5CcF4A1E6439D611fd0653f0Bd01")
	vaultB = common.HexToAddress("0xd6aD7a6750A7593E092a9B218d66C0A814a3436e")
)

// ethService answers the eth namespace methods the client uses.
type ethService struct {
	mu       sync.Mutex
	head     uint64
	created  uint64
	reverts  common.Address
	callTags []string
	codeHits int
}

func (s *ethService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1))
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hexutil.Uint64(s.head)
}

func (s *ethService) Call(args map[string]interface{}, block string) (hexutil.Bytes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callTags = append(s.callTags, block)
	if to, _ := args["to"].(string); strings.EqualFold(to, s.reverts.Hex()) {
		return nil, errors.New("execution reverted")
	}
	return hexutil.Bytes{1}, nil
}

func (s *ethService) GetCode(_ common.Address, block string) (hexutil.Bytes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeHits++
	height, err := hexutil.DecodeUint64(block)
	if err != nil {
		return nil, err
	}
	if height < s.created {
		return hexutil.Bytes{}, nil
	}
	return hexutil.Bytes{0x60, 0x80}, nil
}

func (s *ethService) tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.callTags...)
}

type batchRecord struct {
	size int
	err  error
}

type batchRecorder struct{ batches []batchRecord }

func (r *batchRecorder) ObserveBatch(size int, err error) {
	r.batches = append(r.batches, batchRecord{size: size, err: err})
}

func newTestClient(t *testing.T, svc *ethService) *Client {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})

	client, err := NewClient(context.Background(), httpServer.URL, nil)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func callMsgs(targets ...common.Address) []ethereum.CallMsg {
	msgs := make([]ethereum.CallMsg, len(targets))
	for i := range targets {
		msgs[i] = ethereum.CallMsg{To: &targets[i], Data: []byte{0xfc, 0x0c, 0x54, 0x6a}}
	}
	return msgs
}

func TestBatchCallContractTagsEveryElement(t *testing.T) {
	svc := &ethService{head: 500}
	client := newTestClient(t, svc)
	ctx := context.Background()

	got, err := client.BatchCallContract(ctx, callMsgs(vaultA, vaultB), big.NewInt(1234))
	require.NoError(t, err)
	require.Equal(t, [][]byte{{1}, {1}}, got)
	require.Equal(t, []string{"0x4d2", "0x4d2"}, svc.tags())

	_, err = client.BatchCallContract(ctx, callMsgs(vaultA, vaultB), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"latest", "latest"}, svc.tags()[2:])
}

func TestBatchCallContractOneFailureFailsBatch(t *testing.T) {
	svc := &ethService{head: 500, reverts: vaultB}
	client := newTestClient(t, svc)
	recorder := &batchRecorder{}
	client.SetObserver(recorder)

	got, err := client.BatchCallContract(context.Background(), callMsgs(vaultA, vaultB), nil)
	require.Nil(t, got)
	require.ErrorContains(t, err, "batch call 1")
	require.ErrorContains(t, err, "execution reverted")
	require.Len(t, recorder.batches, 1)
	require.Equal(t, 2, recorder.batches[0].size)
	require.Error(t, recorder.batches[0].err)
}

func TestBatchCallContractEmpty(t *testing.T) {
	svc := &ethService{head: 500}
	client := newTestClient(t, svc)
	recorder := &batchRecorder{}
	client.SetObserver(recorder)

	got, err := client.BatchCallContract(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Empty(t, svc.tags())
	require.Empty(t, recorder.batches)
}

func TestPinHead(t *testing.T) {
	svc := &ethService{head: 777}
	client := newTestClient(t, svc)
	ctx := context.Background()

	head, err := client.PinHead(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(777), head)

	svc.mu.Lock()
	svc.head = 900
	svc.mu.Unlock()

	latest, err := client.LatestBlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(777), latest)

	_, err = client.BatchCallContract(ctx, callMsgs(vaultA, vaultB), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"0x309", "0x309"}, svc.tags())
}

func TestContractCreationBlockCached(t *testing.T) {
	svc := &ethService{head: 1000, created: 421}
	client := newTestClient(t, svc)
	ctx := context.Background()

	block, err := client.ContractCreationBlock(ctx, vaultA)
	require.NoError(t, err)
	require.Equal(t, uint64(421), block)

	svc.mu.Lock()
	hits := svc.codeHits
	svc.mu.Unlock()
	require.Positive(t, hits)

	block, err = client.ContractCreationBlock(ctx, vaultA)
	require.NoError(t, err)
	require.Equal(t, uint64(421), block)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Equal(t, hits, svc.codeHits)
}
