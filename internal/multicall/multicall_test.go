package multicall_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/chaintest"
	"vaultScope/internal/contracts"
	"vaultScope/internal/multicall"
)

func TestMatrix(t *testing.T) {
	vaultABI, err := contracts.IEarnVaultABI()
	require.NoError(t, err)

	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenA := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	backend := chaintest.NewBackend()
	backend.Returns(a, vaultABI, "token", tokenA)
	backend.Returns(a, vaultABI, "decimals", uint8(18))
	backend.Returns(b, vaultABI, "token", tokenB)
	backend.Returns(b, vaultABI, "decimals", uint8(6))

	mc := multicall.New(backend)
	got, err := mc.Matrix(context.Background(), vaultABI, []common.Address{a, b}, []string{"token", "decimals"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, backend.Batches())

	require.Equal(t, tokenA, got[a]["token"])
	require.Equal(t, uint8(18), got[a]["decimals"])
	require.Equal(t, tokenB, got[b]["token"])
	require.Equal(t, uint8(6), got[b]["decimals"])
}

func TestFetchWithArgsAndBlock(t *testing.T) {
	erc20ABI, err := contracts.ERC20ABI()
	require.NoError(t, err)

	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	holder := common.HexToAddress("0x4444444444444444444444444444444444444444")

	backend := chaintest.NewBackend()
	backend.Handle(token, erc20ABI, "balanceOf", func(args []interface{}, block *big.Int) ([]interface{}, error) {
		require.Equal(t, holder, args[0])
		return []interface{}{new(big.Int).Set(block)}, nil
	})

	mc := multicall.New(backend)
	got, err := mc.Fetch(context.Background(), big.NewInt(77), multicall.Call{
		Target: token,
		ABI:    erc20ABI,
		Method: "balanceOf",
		Args:   []interface{}{holder},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	bal, err := multicall.AsBigInt(got[0])
	require.NoError(t, err)
	require.Equal(t, int64(77), bal.Int64())
	require.Equal(t, []*big.Int{big.NewInt(77)}, backend.Blocks())
}

func TestFetchRevertFailsBatch(t *testing.T) {
	vaultABI, err := contracts.IEarnVaultABI()
	require.NoError(t, err)

	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	backend := chaintest.NewBackend()
	backend.Returns(a, vaultABI, "pool", big.NewInt(1))
	backend.Reverts(b, vaultABI, "pool")

	mc := multicall.New(backend)
	_, err = mc.Fetch(context.Background(), nil,
		multicall.Call{Target: a, ABI: vaultABI, Method: "pool"},
		multicall.Call{Target: b, ABI: vaultABI, Method: "pool"},
	)
	require.ErrorContains(t, err, "reverted")
}

func TestFetchEmpty(t *testing.T) {
	backend := chaintest.NewBackend()
	got, err := multicall.New(backend).Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Zero(t, backend.Batches())
}

func TestAsUint8Overflow(t *testing.T) {
	_, err := multicall.AsUint8(big.NewInt(256))
	require.Error(t, err)

	v, err := multicall.AsUint8(big.NewInt(18))
	require.NoError(t, err)
	require.Equal(t, uint8(18), v)
}

func TestAsUint8OverflowFixedWidth(t *testing.T) {
	for _, value := range []interface{}{uint16(256), uint32(70_000), uint64(1 << 40)} {
		_, err := multicall.AsUint8(value)
		require.Error(t, err, "%T", value)
	}

	for _, value := range []interface{}{uint16(6), uint32(8), uint64(255)} {
		_, err := multicall.AsUint8(value)
		require.NoError(t, err, "%T", value)
	}
}
