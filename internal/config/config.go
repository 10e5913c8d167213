package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL      string
	Block       uint64
	Out         string
	MetricsFile string
	Concurrency int
	MarketsTTL  time.Duration
	LogLevel    string

	// Network is the validated address table.
	Network Network
}

// Load merges config file, environment variables, and flags into Config and
// validates the address tables once.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULTSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "-")
	v.SetDefault("concurrency", 8)
	v.SetDefault("markets-ttl", time.Hour)
	v.SetDefault("log-level", "info")
	setNetworkDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	network, err := parseNetwork(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:      v.GetString("rpc"),
		Block:       v.GetUint64("block"),
		Out:         v.GetString("out"),
		MetricsFile: v.GetString("metrics-file"),
		Concurrency: v.GetInt("concurrency"),
		MarketsTTL:  v.GetDuration("markets-ttl"),
		LogLevel:    v.GetString("log-level"),
		Network:     network,
	}

	if cfg.Concurrency <= 0 {
		return Config{}, fmt.Errorf("concurrency must be greater than zero")
	}
	if cfg.MarketsTTL <= 0 {
		return Config{}, fmt.Errorf("markets ttl must be positive")
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		key, value, ok := splitPair(pair)
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}

func splitPair(pair string) (string, string, bool) {
	parts := strings.SplitN(pair, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}
