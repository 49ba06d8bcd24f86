package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	Stores    StoresConfig    `yaml:"stores"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	TokenMeta TokenMetaConfig `yaml:"token_meta"`
	Chains    []ChainConfig   `yaml:"chains"`
}

type AppConfig struct {
	InstanceID       string        `yaml:"instance_id"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"` // 0 -> no periodic snapshot of the memory store
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type JWTConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Alg           string        `yaml:"alg"` // RS256
	PublicKeyPath string        `yaml:"public_key_path"`
	Audience      string        `yaml:"audience"`
	Issuer        string        `yaml:"issuer"`
	Leeway        time.Duration `yaml:"leeway"`

	// dev only, loadgen mints read tokens with it
	PrivateKeyPath string `yaml:"private_key_path"`
}

type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

type IngestConfig struct {
	Subject    string `yaml:"subject"` // e.g. "dex.events.>"
	Queue      string `yaml:"queue"`   // optional queue group
	LaneBuffer int    `yaml:"lane_buffer"`
}

type DedupeConfig struct {
	Backend      string        `yaml:"backend"` // memory|redis
	TTL          time.Duration `yaml:"ttl"`
	Prefix       string        `yaml:"prefix"`
	JanitorEvery time.Duration `yaml:"janitor_every"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Prefix       string        `yaml:"prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type ClickHouseWriterConfig struct {
	BatchMaxRows     int           `yaml:"batch_max_rows"`
	BatchMaxInterval time.Duration `yaml:"batch_max_interval"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
}

type ClickHouseConfig struct {
	Enabled bool                   `yaml:"enabled"`
	DSN     string                 `yaml:"dsn"`
	Writer  ClickHouseWriterConfig `yaml:"writer"`
}

type StoresConfig struct {
	Entities   string           `yaml:"entities"` // memory|redis
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type NATSConfig struct {
	URL             string        `yaml:"url"`
	Name            string        `yaml:"name"`
	BroadcastPrefix string        `yaml:"broadcast_prefix"`
	ReconnectWait   time.Duration `yaml:"reconnect_wait"`
}

type PubSubConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
	Headers []string `yaml:"headers"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORS         CORSConfig    `yaml:"cors"`
}

type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	RefillPerSec int           `yaml:"refill_per_sec"`
	Burst        int           `yaml:"burst"`
	TTL          time.Duration `yaml:"ttl"`
	Prefix       string        `yaml:"prefix"`
}

type APIConfig struct {
	HTTP      HTTPConfig      `yaml:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type PyroscopeConfig struct {
	Enabled    bool              `yaml:"enabled"`
	AppName    string            `yaml:"app_name"`
	ServerAddr string            `yaml:"server_addr"`
	AuthToken  string            `yaml:"auth_token"`
	Tags       map[string]string `yaml:"tags"`
}

type MetricsConfig struct {
	Pyroscope PyroscopeConfig `yaml:"pyroscope"`
}

type TokenMetaConfig struct {
	Timeout time.Duration `yaml:"timeout"` // per lookup
	Prefix  string        `yaml:"prefix"`  // redis registry key prefix
}

type TokenOverrideConfig struct {
	Address     string `yaml:"address"`
	Symbol      string `yaml:"symbol"`
	Name        string `yaml:"name"`
	Decimals    int32  `yaml:"decimals"`
	TotalSupply string `yaml:"total_supply"` // decimal integer, optional
}

// ChainConfig static per-chain settings; addresses are normalised by NewChainTable
type ChainConfig struct {
	ChainID                            uint64                `yaml:"chain_id"`
	Name                               string                `yaml:"name"`
	FactoryAddress                     string                `yaml:"factory_address"`
	StablecoinWrappedNativePoolAddress string                `yaml:"stablecoin_wrapped_native_pool_address"`
	StablecoinIsToken0                 bool                  `yaml:"stablecoin_is_token0"`
	WrappedNativeAddress               string                `yaml:"wrapped_native_address"`
	StablecoinAddresses                []string              `yaml:"stablecoin_addresses"`
	MinimumNativeLocked                string                `yaml:"minimum_native_locked"`
	WhitelistTokens                    []string              `yaml:"whitelist_tokens"`
	TokenOverrides                     []TokenOverrideConfig `yaml:"token_overrides"`
	PoolsToIndex                       []string              `yaml:"pools_to_index"` // empty -> every pool
	PoolsToSkip                        []string              `yaml:"pools_to_skip"`
	SkipSwapPools                      []string              `yaml:"skip_swap_pools"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 10 * time.Second
	}
	if c.Ingest.Subject == "" {
		c.Ingest.Subject = "dex.events.>"
	}
	if c.Ingest.LaneBuffer <= 0 {
		c.Ingest.LaneBuffer = 1024
	}
	if c.Dedupe.Backend == "" {
		c.Dedupe.Backend = "memory"
	}
	if c.Dedupe.TTL <= 0 {
		c.Dedupe.TTL = 24 * time.Hour
	}
	if c.Stores.Entities == "" {
		c.Stores.Entities = "memory"
	}
	if c.PubSub.NATS.BroadcastPrefix == "" {
		c.PubSub.NATS.BroadcastPrefix = "dexstats"
	}
	if c.API.HTTP.Addr == "" {
		c.API.HTTP.Addr = ":8080"
	}
	if c.Security.JWT.Leeway <= 0 {
		c.Security.JWT.Leeway = time.Minute
	}
	if c.TokenMeta.Timeout <= 0 {
		c.TokenMeta.Timeout = 5 * time.Second
	}
	if c.TokenMeta.Prefix == "" {
		c.TokenMeta.Prefix = "tokenmeta:"
	}
}
