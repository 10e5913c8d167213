package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/iearn"
	"vaultScope/internal/markets"
	"vaultScope/internal/multicall"
	"vaultScope/internal/observability"
	"vaultScope/internal/output"
	"vaultScope/internal/prices"
	"vaultScope/internal/special"
)

// app is the dependency graph shared by every command.
type app struct {
	cfg     config.Config
	head    uint64
	logger  *zap.Logger
	metrics *observability.Metrics
	sink    output.Sink

	markets *markets.Listing
	iearn   *iearn.Registry
	special *special.Registry
}

// runWith loads configuration, builds the app and runs fn with a
// signal-aware context.
func runWith(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, logger.Named("chain"))
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	head := cfg.Block
	if head == 0 {
		if head, err = chainClient.PinHead(ctx); err != nil {
			return fmt.Errorf("pin head: %w", err)
		}
	}

	a := newApp(cfg, logger, chainClient)
	a.head = head
	a.metrics.LastReportBlock.Set(float64(head))

	logger.Info("report start",
		zap.String("command", cmd.CommandPath()),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("block", cfg.Block),
		zap.Uint64("head", head),
		zap.String("out", cfg.Out),
		zap.Int("iearn_vaults", len(cfg.Network.IEarn)),
		zap.Int("concurrency", cfg.Concurrency),
	)

	runErr := fn(ctx, a)

	if cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("write metrics failed", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}
	return runErr
}

func newApp(cfg config.Config, logger *zap.Logger, chainClient *chain.Client) *app {
	metrics := observability.NewMetrics("vaultscope")
	chainClient.SetObserver(metrics)
	caller := multicall.New(chainClient)
	net := cfg.Network

	protocols := make([]markets.Protocol, 0, len(net.Comptrollers))
	for _, c := range net.Comptrollers {
		protocols = append(protocols, markets.Protocol{Name: c.Name, Comptroller: c.Address})
	}
	listing := markets.NewListing(caller, protocols, cfg.MarketsTTL, logger.Named("markets"))

	router := prices.NewRouter(logger.Named("prices"))
	router.SetObserver(metrics)
	router.Add("static", prices.NewStatic(net.StaticPrices))
	router.Add("chainlink", prices.NewChainlink(caller, net.ChainlinkFeeds))
	router.Add("compound", prices.NewCompound(caller, listing, router, net.NativeMarkets))

	entries := make([]iearn.Entry, 0, len(net.IEarn))
	for _, v := range net.IEarn {
		entries = append(entries, iearn.Entry{Name: v.Name, Address: v.Address})
	}
	iearnRegistry := iearn.NewRegistry(iearn.Config{
		Vaults:      entries,
		Concurrency: cfg.Concurrency,
	}, caller, router, chainClient, logger.Named("iearn"))

	specialRegistry := special.NewRegistry(chainClient, logger.Named("special"),
		special.NewBackscratcher(special.BackscratcherConfig{
			Vault:        net.Backscratcher.Vault,
			Proxy:        net.Backscratcher.Proxy,
			VotingEscrow: net.Backscratcher.VotingEscrow,
			CRV:          net.Backscratcher.CRV,
		}, caller, router),
		special.NewYGov(special.YGovConfig{
			Vault: net.YGov.Vault,
			Token: net.YGov.Token,
		}, caller, router),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		sink:    output.NewJsonlSink(cfg.Out),
		markets: listing,
		iearn:   iearnRegistry,
		special: specialRegistry,
	}
}

// block returns the configured report block, nil for latest. Reads at latest
// are served at the head pinned for this run.
func (a *app) block() *big.Int {
	if a.cfg.Block == 0 {
		return nil
	}
	return new(big.Int).SetUint64(a.cfg.Block)
}

// height is the block every read of this run observes.
func (a *app) height() *big.Int {
	return new(big.Int).SetUint64(a.head)
}
