package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is loaded from config/config.yaml with sensitive values overridable
// from the environment (a local .env is honored when present).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Escrow   EscrowConfig   `mapstructure:"escrow"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug/release/test
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig configures the optional event journal. An empty DSN
// disables journaling entirely.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ChainConfig scopes signed result digests to one deployment: signatures are
// bound to this chain id and engine address and cannot be replayed elsewhere.
type ChainConfig struct {
	ChainID       int64  `mapstructure:"chain_id"`
	EngineAddress string `mapstructure:"engine_address"`
}

// EscrowConfig holds the bootstrap values for the platform-mutable escrow
// configuration record; after first start the persisted record wins.
type EscrowConfig struct {
	FeeBps        uint32   `mapstructure:"fee_bps"`
	FeeRecipient  string   `mapstructure:"fee_recipient"`
	ResultSigner  string   `mapstructure:"result_signer"`
	MinStake      string   `mapstructure:"min_stake"`
	AllowedTokens []string `mapstructure:"allowed_tokens"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  int64  `mapstructure:"token_ttl_seconds"`
}

func Load() (*Config, error) {
	// env wins over yaml for secrets; .env may be absent
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	overrideFromEnv(&cfg)

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * 60 * 60
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("RESULT_SIGNER"); v != "" {
		cfg.Escrow.ResultSigner = v
	}
	if v := os.Getenv("FEE_RECIPIENT"); v != "" {
		cfg.Escrow.FeeRecipient = v
	}
}
