package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// ChainConfig locates the order book deployment and its read endpoints.
type ChainConfig struct {
	ID         int64    `mapstructure:"id" yaml:"id"`
	OrderBook  string   `mapstructure:"order_book" yaml:"order_book"`
	Endpoints  []string `mapstructure:"endpoints" yaml:"endpoints"`
	StartBlock uint64   `mapstructure:"start_block" yaml:"start_block"`
	GasLimit   uint64   `mapstructure:"gas_limit" yaml:"gas_limit"`
}

// ProtocolConfig carries the signing-domain constants of the deployed
// contract version.
type ProtocolConfig struct {
	DomainName        string `mapstructure:"domain_name" yaml:"domain_name"`
	DomainVersion     string `mapstructure:"domain_version" yaml:"domain_version"`
	RewardDistributor string `mapstructure:"reward_distributor" yaml:"reward_distributor"`
}

// TrackingConfig tunes the lifecycle poller.
type TrackingConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency" yaml:"fetch_concurrency"`
}

// Config is the application configuration.
type Config struct {
	LogLevel    string         `mapstructure:"log_level" yaml:"log_level"`
	MetricsAddr string         `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	Chain       ChainConfig    `mapstructure:"chain" yaml:"chain"`
	Protocol    ProtocolConfig `mapstructure:"protocol" yaml:"protocol"`
	Tracking    TrackingConfig `mapstructure:"tracking" yaml:"tracking"`
}

// Load reads configuration from the given YAML file (optional) with
// ORDERBOOK_* environment overrides, applies defaults and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORDERBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":9190")
	v.SetDefault("chain.gas_limit", 400_000)
	v.SetDefault("protocol.domain_name", "Limit Order Protocol")
	v.SetDefault("protocol.domain_version", "1")
	v.SetDefault("tracking.poll_interval", 5*time.Second)
	v.SetDefault("tracking.fetch_concurrency", 3)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields nothing sensible can default.
func (c *Config) Validate() error {
	if c.Chain.ID == 0 {
		return fmt.Errorf("config: chain.id is required")
	}
	if !common.IsHexAddress(c.Chain.OrderBook) {
		return fmt.Errorf("config: chain.order_book %q is not a valid address", c.Chain.OrderBook)
	}
	if len(c.Chain.Endpoints) == 0 {
		return fmt.Errorf("config: at least one chain endpoint is required")
	}
	if c.Protocol.RewardDistributor != "" && !common.IsHexAddress(c.Protocol.RewardDistributor) {
		return fmt.Errorf("config: protocol.reward_distributor %q is not a valid address", c.Protocol.RewardDistributor)
	}
	if c.Tracking.PollInterval < time.Second {
		return fmt.Errorf("config: tracking.poll_interval must be at least 1s")
	}
	return nil
}

// OrderBookAddress returns the parsed contract address.
func (c *Config) OrderBookAddress() common.Address {
	return common.HexToAddress(c.Chain.OrderBook)
}

// RewardDistributorAddress returns the parsed reward distributor, zero when
// unset.
func (c *Config) RewardDistributorAddress() common.Address {
	if c.Protocol.RewardDistributor == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.Protocol.RewardDistributor)
}
