package markets

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/chaintest"
	"vaultScope/internal/contracts"
	"vaultScope/internal/multicall"
)

var (
	compound = common.HexToAddress("0x3d9819210A31b4961b30EF54bE2aeD79B9c9Cd3B")
	cream    = common.HexToAddress("0x3d5BC3c8d13dcB8bF317092d84783c2697AE9258")
	ironbank = common.HexToAddress("0xAB1c342C7bf5Ec5F02ADEA1c2270670bCa144CbB")

	cDAI  = common.HexToAddress("0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643")
	crYFI = common.HexToAddress("0xCbaE0A83f4f9926997c8339545fb8eE32eDc6b76")
	cyDAI = common.HexToAddress("0x8e595470Ed749b85C6F7669de83EAe304C2ec68F")
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestListing(t *testing.T) (*Listing, *chaintest.Backend, *fakeClock) {
	t.Helper()
	comptrollerABI, err := contracts.ComptrollerABI()
	require.NoError(t, err)

	backend := chaintest.NewBackend()
	backend.Returns(compound, comptrollerABI, "getAllMarkets", []common.Address{cDAI})
	backend.Returns(cream, comptrollerABI, "getAllMarkets", []common.Address{crYFI})
	backend.Returns(ironbank, comptrollerABI, "getAllMarkets", []common.Address{cyDAI})

	clock := &fakeClock{t: time.Unix(1600000000, 0)}
	listing := NewListing(multicall.New(backend), []Protocol{
		{Name: "compound", Comptroller: compound},
		{Name: "cream", Comptroller: cream},
		{Name: "ironbank", Comptroller: ironbank},
	}, time.Hour, nil)
	listing.now = clock.Now
	return listing, backend, clock
}

func TestGetMarketsSingleBatch(t *testing.T) {
	listing, backend, _ := newTestListing(t)

	got, err := listing.GetMarkets(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string][]common.Address{
		"compound": {cDAI},
		"cream":    {crYFI},
		"ironbank": {cyDAI},
	}, got)
	require.Equal(t, 1, backend.Batches())
}

func TestGetMarketsCachedWithinTTL(t *testing.T) {
	listing, backend, clock := newTestListing(t)

	first, err := listing.GetMarkets(context.Background())
	require.NoError(t, err)

	clock.t = clock.t.Add(59 * time.Minute)
	second, err := listing.GetMarkets(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, backend.Batches())
}

func TestGetMarketsRefreshAfterExpiry(t *testing.T) {
	listing, backend, clock := newTestListing(t)
	comptrollerABI, err := contracts.ComptrollerABI()
	require.NoError(t, err)

	_, err = listing.GetMarkets(context.Background())
	require.NoError(t, err)

	newMarket := common.HexToAddress("0x39AA39c021dfbaE8faC545936693aC917d5E7563")
	backend.Returns(compound, comptrollerABI, "getAllMarkets", []common.Address{cDAI, newMarket})

	clock.t = clock.t.Add(time.Hour)
	got, err := listing.GetMarkets(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, backend.Batches())
	require.Equal(t, []common.Address{cDAI, newMarket}, got["compound"])

	clock.t = clock.t.Add(time.Minute)
	_, err = listing.GetMarkets(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, backend.Batches())
}

func TestGetMarketsReturnsCopy(t *testing.T) {
	listing, _, _ := newTestListing(t)

	got, err := listing.GetMarkets(context.Background())
	require.NoError(t, err)
	got["compound"][0] = common.Address{}
	delete(got, "cream")

	again, err := listing.GetMarkets(context.Background())
	require.NoError(t, err)
	require.Equal(t, cDAI, again["compound"][0])
	require.Contains(t, again, "cream")
}

func TestIsMarket(t *testing.T) {
	listing, backend, _ := newTestListing(t)
	ctx := context.Background()

	for _, addr := range []common.Address{cDAI, crYFI, cyDAI} {
		ok, err := listing.IsMarket(ctx, addr)
		require.NoError(t, err)
		require.True(t, ok, addr.Hex())
	}

	ok, err := listing.IsMarket(ctx, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, backend.Batches())
}

func TestFetchFailureKeepsPreviousSlot(t *testing.T) {
	listing, backend, clock := newTestListing(t)
	comptrollerABI, err := contracts.ComptrollerABI()
	require.NoError(t, err)

	_, err = listing.GetMarkets(context.Background())
	require.NoError(t, err)
	fetchedAt := listing.cache.fetchedAt

	backend.Reverts(cream, comptrollerABI, "getAllMarkets")
	clock.t = clock.t.Add(2 * time.Hour)
	_, err = listing.GetMarkets(context.Background())
	require.Error(t, err)
	require.Equal(t, fetchedAt, listing.cache.fetchedAt)
}
