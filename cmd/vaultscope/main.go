package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vaultscope",
		Short:        "TVL and pricing reports for vault contracts",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "Ethereum RPC URL (archive node for historical blocks)")
	flags.Uint64("block", 0, "block height to report at, 0 means latest")
	flags.String("out", "-", "output JSONL path, - for stdout")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	flags.Int("concurrency", 8, "maximum concurrent price lookups")
	flags.Duration("markets-ttl", time.Hour, "lending market listing cache TTL")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newIEarnCmd(), newSpecialCmd(), newMarketsCmd(), newTVLCmd())
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
