package report

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

// Snapshots turns a name→TVL mapping into records sorted by name. metrics
// may be nil; when set, each record carries the full metrics of its vault.
func Snapshots(registry string, block *big.Int, values map[string]decimal.Decimal, metrics map[string]model.VaultMetrics) []model.TVLSnapshot {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	height := blockHeight(block)
	out := make([]model.TVLSnapshot, 0, len(names))
	for _, name := range names {
		snap := model.TVLSnapshot{
			Registry: registry,
			Name:     name,
			Block:    height,
			TVL:      values[name],
		}
		if m, ok := metrics[name]; ok {
			m := m
			snap.Metrics = &m
		}
		out = append(out, snap)
	}
	return out
}

// MetricsTVL extracts the TVL of every described vault.
func MetricsTVL(metrics map[string]model.VaultMetrics) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(metrics))
	for name, m := range metrics {
		out[name] = m.TVL
	}
	return out
}

// Total sums the values of a report.
func Total(values map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Markets turns a market listing into records sorted by protocol.
func Markets(listing map[string][]common.Address) []model.MarketRecord {
	protocols := make([]string, 0, len(listing))
	for protocol := range listing {
		protocols = append(protocols, protocol)
	}
	sort.Strings(protocols)

	out := make([]model.MarketRecord, 0, len(protocols))
	for _, protocol := range protocols {
		markets := make([]string, 0, len(listing[protocol]))
		for _, addr := range listing[protocol] {
			markets = append(markets, addr.Hex())
		}
		out = append(out, model.MarketRecord{Protocol: protocol, Markets: markets})
	}
	return out
}

func blockHeight(block *big.Int) *uint64 {
	if block == nil || !block.IsUint64() {
		return nil
	}
	h := block.Uint64()
	return &h
}
