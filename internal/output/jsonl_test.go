package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
)

func TestJsonlSinkAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "tvl.jsonl")
	sink := NewJsonlSink(path)

	require.NoError(t, sink.PutSnapshots([]model.TVLSnapshot{
		{Registry: model.RegistryIEarn, Name: "yDAIv2", TVL: decimal.NewFromInt(1800)},
	}))
	require.NoError(t, sink.PutMarkets([]model.MarketRecord{
		{Protocol: "cream", Markets: []string{"0xCbaE0A83f4f9926997c8339545fb8eE32eDc6b76"}},
	}))
	require.NoError(t, sink.PutSnapshots(nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	require.Equal(t, "1800", lines[0]["tvl"])
	require.Equal(t, "cream", lines[1]["protocol"])
}

func TestJsonlSinkStdout(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJsonlSink(Stdout)
	sink.stdout = &buf

	require.NoError(t, sink.PutSnapshots([]model.TVLSnapshot{
		{Registry: model.RegistrySpecial, Name: "yGov", TVL: decimal.NewFromInt(5)},
		{Registry: model.RegistrySpecial, Name: "yveCRV", TVL: decimal.NewFromInt(7)},
	}))
	require.Equal(t,
		"{\"registry\":\"special\",\"name\":\"yGov\",\"tvl\":\"5\"}\n{\"registry\":\"special\",\"name\":\"yveCRV\",\"tvl\":\"7\"}\n",
		buf.String())
}
