package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/report"
)

func newIEarnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iearn",
		Short: "Reports for iEarn yield vaults",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "describe",
		Short: "Print full metrics for every iEarn vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, func(ctx context.Context, a *app) error {
				vaults, err := a.iearn.Load(ctx)
				if err != nil {
					return err
				}
				block := a.block()
				metrics, err := a.iearn.Describe(ctx, vaults, block)
				if err != nil {
					return err
				}
				values := report.MetricsTVL(metrics)
				a.recordTVL(model.RegistryIEarn, values)
				return a.sink.PutSnapshots(report.Snapshots(model.RegistryIEarn, a.height(), values, metrics))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tvl",
		Short: "Print the TVL of every iEarn vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, func(ctx context.Context, a *app) error {
				block := a.block()
				values, err := a.iearnTVL(ctx, block)
				if err != nil {
					return err
				}
				return a.sink.PutSnapshots(report.Snapshots(model.RegistryIEarn, a.height(), values, nil))
			})
		},
	})
	return cmd
}

func newSpecialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "special",
		Short: "Reports for special vaults (yveCRV, yGov)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tvl",
		Short: "Print the TVL of every special vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, func(ctx context.Context, a *app) error {
				block := a.block()
				values, err := a.specialTVL(ctx, block)
				if err != nil {
					return err
				}
				return a.sink.PutSnapshots(report.Snapshots(model.RegistrySpecial, a.height(), values, nil))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "describe",
		Short: "Print metrics for special vaults (currently none are exposed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, func(ctx context.Context, a *app) error {
				block := a.block()
				metrics, err := a.special.Describe(ctx, block)
				if err != nil {
					return err
				}
				return a.sink.PutSnapshots(report.Snapshots(model.RegistrySpecial, a.height(), report.MetricsTVL(metrics), metrics))
			})
		},
	})
	return cmd
}

func newMarketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "Lending market listings from the configured comptrollers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every market per protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, func(ctx context.Context, a *app) error {
				listing, err := a.markets.GetMarkets(ctx)
				if err != nil {
					return err
				}
				return a.sink.PutMarkets(report.Markets(listing))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "is-market <address>",
		Short: "Report whether an address is a known lending market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			addr := common.HexToAddress(args[0])
			return runWith(cmd, func(ctx context.Context, a *app) error {
				ok, err := a.markets.IsMarket(ctx, addr)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
				return err
			})
		},
	})
	return cmd
}

func newTVLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tvl",
		Short: "Print the TVL of iEarn and special vaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, func(ctx context.Context, a *app) error {
				block := a.block()
				iearnValues, err := a.iearnTVL(ctx, block)
				if err != nil {
					return err
				}
				specialValues, err := a.specialTVL(ctx, block)
				if err != nil {
					return err
				}

				records := report.Snapshots(model.RegistryIEarn, a.height(), iearnValues, nil)
				records = append(records, report.Snapshots(model.RegistrySpecial, a.height(), specialValues, nil)...)
				if err := a.sink.PutSnapshots(records); err != nil {
					return err
				}

				a.logger.Info("tvl report done",
					zap.Int("vaults", len(records)),
					zap.String("iearn", report.Total(iearnValues).String()),
					zap.String("special", report.Total(specialValues).String()),
					zap.String("total", report.Total(iearnValues).Add(report.Total(specialValues)).String()),
				)
				return nil
			})
		},
	}
}

func (a *app) iearnTVL(ctx context.Context, block *big.Int) (map[string]decimal.Decimal, error) {
	vaults, err := a.iearn.Load(ctx)
	if err != nil {
		return nil, err
	}
	values, err := a.iearn.TotalValueAt(ctx, vaults, block)
	if err != nil {
		return nil, err
	}
	a.recordTVL(model.RegistryIEarn, values)
	return values, nil
}

func (a *app) specialTVL(ctx context.Context, block *big.Int) (map[string]decimal.Decimal, error) {
	values, err := a.special.TotalValueAt(ctx, block)
	if err != nil {
		return nil, err
	}
	a.recordTVL(model.RegistrySpecial, values)
	return values, nil
}

func (a *app) recordTVL(registry string, values map[string]decimal.Decimal) {
	for name, value := range values {
		a.metrics.RecordTVL(registry, name, value)
	}
}
