package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// NamedAddress is an ordered {name, address} table entry.
type NamedAddress struct {
	Name    string
	Address common.Address
}

// Backscratcher addresses the yveCRV backscratcher contracts.
type Backscratcher struct {
	Vault        common.Address
	Proxy        common.Address
	VotingEscrow common.Address
	CRV          common.Address
}

// YGov addresses the yGov staking vault.
type YGov struct {
	Vault common.Address
	Token common.Address
}

// Network is the validated, immutable address table of the reported contracts.
type Network struct {
	IEarn          []NamedAddress
	Comptrollers   []NamedAddress
	ChainlinkFeeds map[common.Address]common.Address
	StaticPrices   map[common.Address]decimal.Decimal
	NativeMarkets  map[common.Address]common.Address
	Backscratcher  Backscratcher
	YGov           YGov
}

const (
	tokenYFI  = "0x0bc529c00C6401aEF6D220BE8C6Ea1667F6Ad93e"
	tokenCRV  = "0xD533a949740bb3306d119CC777fa900bA034cd52"
	tokenWETH = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

var defaultIEarn = []string{
	// v2
	"yDAIv2=0x16de59092dAE5CcF4A1E6439D611fd0653f0Bd01",
	"yUSDCv2=0xd6aD7a6750A7593E092a9B218d66C0A814a3436e",
	"yUSDTv2=0x83f798e925BcD4017Eb265844FDDAbb448f1707D",
	"ysUSDv2=0xF61718057901F84C4eEC4339EF8f0D86D2B45600",
	"yTUSDv2=0x73a052500105205d34daf004eab301916da8190f",
	"yWBTCv2=0x04Aa51bbcB46541455cCF1B8bef2ebc5d3787EC9",
	// v3
	"yDAIv3=0xC2cB1040220768554cf699b0d863A3cd4324ce32",
	"yUSDCv3=0x26EA744E5B887E5205727f55dFBE8685e3b21951",
	"yUSDTv3=0xE6354ed5bC4b393a5Aad09f21c46E101e692d447",
	"yBUSDv3=0x04bC0Ab673d88aE9dbC9DA2380cB6B79C4BCa9aE",
}

var defaultComptrollers = []string{
	"compound=0x3d9819210A31b4961b30EF54bE2aeD79B9c9Cd3B",
	"cream=0x3d5BC3c8d13dcB8bF317092d84783c2697AE9258",
	"ironbank=0xAB1c342C7bf5Ec5F02ADEA1c2270670bCa144CbB",
}

// Chainlink USD aggregators keyed by token.
var defaultChainlinkFeeds = map[string]string{
	"0x6B175474E89094C44Da98b954EedeAC495271d0F": "0xAed0c38402a5d19df6E4c03F4E2DceD6e29c1ee9", // DAI
	"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48": "0x8fFfFfd4AfB6115b954Bd326cbe7B4BA576818f6", // USDC
	"0xdAC17F958D2ee523a2206206994597C13D831ec7": "0x3E7d1eAB13ad0104d2750B8863b489D65364e32D", // USDT
	"0x0000000000085d4780B73119b644AE5ecd22b376": "0xec746eCF986E2927Abd291a2A1716c940100f8Ba", // TUSD
	"0x57Ab1ec28D129707052df4dF418D58a2D46d5f51": "0xad35Bd71b9aFE6e4bDc266B345c198eaDEf9Ad94", // sUSD
	"0x4Fabb145d64652a948d72533023f6E7A623C7C53": "0x833D8Eb16D306ed1FbB5D7A2E019e106B960965A", // BUSD
	"0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599": "0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c", // WBTC via BTC/USD
	tokenWETH: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419",
	tokenCRV:  "0xCd627aA160A6fA45Eb793D19Ef54f5062F20f33f",
	tokenYFI:  "0xA027702dbb89fbd58938e4324ac03B58d812b0E1",
}

// Markets without underlying(), priced as their wrapped asset.
var defaultNativeMarkets = map[string]string{
	"0x4Ddc2D193948926D02f9B1fE9e1daa0718270ED5": tokenWETH, // cETH
	"0xD06527D5e56A3495252A528C4987003b712860eE": tokenWETH, // crETH
}

var defaultBackscratcher = map[string]string{
	"vault":         "0xc5bDdf9843308380375a611c18B50Fb9341f502A",
	"proxy":         "0xF147b8125d2ef93FB6965Db97D6746952a133934",
	"voting-escrow": "0x5f3b5DfEb7B28CDbD7FAba78963EE202a494e2A2",
	"crv":           tokenCRV,
}

var defaultYGov = map[string]string{
	"vault": "0xBa37B002AbaFDd8E89a1995dA52740bbC013D992",
	"token": tokenYFI,
}

func setNetworkDefaults(v *viper.Viper) {
	v.SetDefault("iearn", defaultIEarn)
	v.SetDefault("comptrollers", defaultComptrollers)
	v.SetDefault("chainlink-feeds", defaultChainlinkFeeds)
	v.SetDefault("static-prices", map[string]string{})
	v.SetDefault("native-markets", defaultNativeMarkets)
	v.SetDefault("backscratcher", defaultBackscratcher)
	v.SetDefault("ygov", defaultYGov)
}

func parseNetwork(v *viper.Viper) (Network, error) {
	var (
		n   Network
		err error
	)

	if n.IEarn, err = parseNamedAddresses("iearn", getStringSlice(v, "iearn")); err != nil {
		return Network{}, err
	}
	if n.Comptrollers, err = parseNamedAddresses("comptrollers", getStringSlice(v, "comptrollers")); err != nil {
		return Network{}, err
	}
	if n.ChainlinkFeeds, err = parseAddressMap("chainlink-feeds", getStringMap(v, "chainlink-feeds")); err != nil {
		return Network{}, err
	}
	if n.NativeMarkets, err = parseAddressMap("native-markets", getStringMap(v, "native-markets")); err != nil {
		return Network{}, err
	}
	if n.StaticPrices, err = parsePriceMap(getStringMap(v, "static-prices")); err != nil {
		return Network{}, err
	}

	bs := withDefaults(getStringMap(v, "backscratcher"), defaultBackscratcher)
	if n.Backscratcher.Vault, err = parseAddress("backscratcher.vault", bs["vault"]); err != nil {
		return Network{}, err
	}
	if n.Backscratcher.Proxy, err = parseAddress("backscratcher.proxy", bs["proxy"]); err != nil {
		return Network{}, err
	}
	if n.Backscratcher.VotingEscrow, err = parseAddress("backscratcher.voting-escrow", bs["voting-escrow"]); err != nil {
		return Network{}, err
	}
	if n.Backscratcher.CRV, err = parseAddress("backscratcher.crv", bs["crv"]); err != nil {
		return Network{}, err
	}

	yg := withDefaults(getStringMap(v, "ygov"), defaultYGov)
	if n.YGov.Vault, err = parseAddress("ygov.vault", yg["vault"]); err != nil {
		return Network{}, err
	}
	if n.YGov.Token, err = parseAddress("ygov.token", yg["token"]); err != nil {
		return Network{}, err
	}

	return n, nil
}

func parseNamedAddresses(key string, entries []string) ([]NamedAddress, error) {
	out := make([]NamedAddress, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		name, value, ok := splitPair(entry)
		if !ok {
			return nil, fmt.Errorf("%s: expected name=address, got %q", key, entry)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%s: duplicate name %s", key, name)
		}
		seen[name] = struct{}{}

		addr, err := parseAddress(key+"."+name, value)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedAddress{Name: name, Address: addr})
	}
	return out, nil
}

func parseAddressMap(key string, raw map[string]string) (map[common.Address]common.Address, error) {
	out := make(map[common.Address]common.Address, len(raw))
	for k, v := range raw {
		from, err := parseAddress(key, k)
		if err != nil {
			return nil, err
		}
		to, err := parseAddress(key, v)
		if err != nil {
			return nil, err
		}
		out[from] = to
	}
	return out, nil
}

func parsePriceMap(raw map[string]string) (map[common.Address]decimal.Decimal, error) {
	out := make(map[common.Address]decimal.Decimal, len(raw))
	for k, v := range raw {
		token, err := parseAddress("static-prices", k)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("static-prices: invalid price %q for %s: %w", v, k, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("static-prices: price for %s must be positive", k)
		}
		out[token] = price
	}
	return out, nil
}

func parseAddress(key, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", key, input)
	}
	return common.HexToAddress(input), nil
}

func withDefaults(values, defaults map[string]string) map[string]string {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range values {
		out[strings.ToLower(k)] = v
	}
	return out
}
