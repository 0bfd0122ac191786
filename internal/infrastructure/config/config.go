package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Neo4J   Neo4JConfig   `mapstructure:"neo4j"`
	Sources SourcesConfig `mapstructure:"sources"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Health  HealthConfig  `mapstructure:"health"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env            string        `mapstructure:"env"`
	LogLevel       string        `mapstructure:"log_level"`
	HTTPPort       int           `mapstructure:"http_port"`
	WorkerPoolSize int           `mapstructure:"worker_pool_size"`
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
	PageSize       int           `mapstructure:"page_size"`
	SeedFile       string        `mapstructure:"seed_file"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL                string        `mapstructure:"url"`
	StreamName         string        `mapstructure:"stream_name"`
	SubjectPrefix      string        `mapstructure:"subject_prefix"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts  int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay     time.Duration `mapstructure:"reconnect_delay"`
	MaxPendingMessages int           `mapstructure:"max_pending_messages"`
	Enabled            bool          `mapstructure:"enabled"`
}

// Neo4JConfig represents Neo4J configuration
type Neo4JConfig struct {
	Enabled                      bool          `mapstructure:"enabled"`
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
}

// SourcesConfig represents the external data sources
type SourcesConfig struct {
	TagURL      string        `mapstructure:"tag_url"`
	StatsURL    string        `mapstructure:"stats_url"`
	TransferURL string        `mapstructure:"transfer_url"`
	TransferKey string        `mapstructure:"transfer_key"`
	Simulated   bool          `mapstructure:"simulated"`
	Chain       string        `mapstructure:"chain"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	MinUSD      float64       `mapstructure:"min_usd"`
}

// LedgerConfig represents the on-chain tag registry
type LedgerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPCURL          string        `mapstructure:"rpc_url"`
	ChainID         int64         `mapstructure:"chain_id"`
	TokenAddress    string        `mapstructure:"token_address"`
	RegistryAddress string        `mapstructure:"registry_address"`
	RelayerKey      string        `mapstructure:"relayer_key"`
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
}

// AuthConfig represents wallet signature authentication
type AuthConfig struct {
	SignMessage string `mapstructure:"sign_message"`
	// SignatureTTL bounds how long a signed issued-at timestamp is accepted
	SignatureTTL time.Duration `mapstructure:"signature_ttl"`
}

// CacheConfig represents the summary cache
type CacheConfig struct {
	Driver      string        `mapstructure:"driver"`
	TTL         time.Duration `mapstructure:"ttl"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/onchain-intel")

	// Environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	// Map environment variables to nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Default values
	setDefaults()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.http_port", 8080)
	viper.SetDefault("app.worker_pool_size", 8)
	viper.SetDefault("app.search_debounce", "500ms")
	viper.SetDefault("app.page_size", 16)
	viper.SetDefault("app.seed_file", "")

	// NATS defaults
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.stream_name", "ADDRESS_STATS")
	viper.SetDefault("nats.subject_prefix", "intel")
	viper.SetDefault("nats.consumer_group", "onchain-intel")
	viper.SetDefault("nats.connect_timeout", "10s")
	viper.SetDefault("nats.reconnect_attempts", 5)
	viper.SetDefault("nats.reconnect_delay", "2s")
	viper.SetDefault("nats.max_pending_messages", 10000)
	viper.SetDefault("nats.enabled", false)

	// Neo4J defaults
	viper.SetDefault("neo4j.enabled", false)
	viper.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.connect_timeout", "10s")
	viper.SetDefault("neo4j.max_connection_pool_size", 50)
	viper.SetDefault("neo4j.connection_acquisition_timeout", "60s")

	// Source defaults
	viper.SetDefault("sources.tag_url", "https://plugin.chaininsight.vip/api/v0/util/query/wallet_tags_v2")
	viper.SetDefault("sources.stats_url", "https://debot.ai/api/dashboard/wallet/market/stats")
	viper.SetDefault("sources.transfer_url", "https://api.arkhamintelligence.com")
	viper.SetDefault("sources.transfer_key", "")
	viper.SetDefault("sources.simulated", false)
	viper.SetDefault("sources.chain", "bsc")
	viper.SetDefault("sources.timeout", "15s")
	viper.SetDefault("sources.max_retries", 2)
	viper.SetDefault("sources.retry_delay", "500ms")
	viper.SetDefault("sources.min_usd", 0.1)

	// Ledger defaults
	viper.SetDefault("ledger.enabled", false)
	viper.SetDefault("ledger.rpc_url", "https://bsc-dataseed.binance.org")
	viper.SetDefault("ledger.chain_id", 56)
	viper.SetDefault("ledger.token_address", "")
	viper.SetDefault("ledger.registry_address", "")
	viper.SetDefault("ledger.relayer_key", "")
	viper.SetDefault("ledger.receipt_timeout", "2m")

	// Auth defaults
	viper.SetDefault("auth.sign_message", "Hi, VisualScan")
	viper.SetDefault("auth.signature_ttl", "10m")

	// Cache defaults
	viper.SetDefault("cache.driver", "memory")
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.key_prefix", "ai-summary-cache-")
	viper.SetDefault("cache.postgres_dsn", "")

	// Health defaults
	viper.SetDefault("health.interval", "30s")
	viper.SetDefault("health.timeout", "5s")

	// Bind env for connection strings
	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("cache.postgres_dsn", "DATABASE_URL")
	viper.BindEnv("ledger.relayer_key", "RELAYER_KEY")
}
