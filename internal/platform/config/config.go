package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the enforcement service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Crypto  CryptoConfig  `mapstructure:"crypto"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig selects the persistence backend for policies and consents.
// Backend is one of "memory", "file", "postgres". Redis, when configured,
// backs the consent store in place of the primary backend's consent table.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	FileDir     string `mapstructure:"file_dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisURL    string `mapstructure:"redis_url"`
}

// AuditConfig holds the audit log path and the optional Kafka mirror.
type AuditConfig struct {
	LogPath      string        `mapstructure:"log_path"`
	MirrorBroker string        `mapstructure:"mirror_broker"`
	MirrorTopic  string        `mapstructure:"mirror_topic"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// CryptoConfig holds keys for the optional reversible transform and for
// consent receipt signing.
type CryptoConfig struct {
	EncryptKey        string `mapstructure:"encrypt_key"`
	ReceiptSigningKey string `mapstructure:"receipt_signing_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional YAML file plus VEIL_* environment
// overrides, applying defaults so main stays lean.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.file_dir", "data")
	v.SetDefault("audit.log_path", "data/audit.log")
	v.SetDefault("audit.flush_timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("VEIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	return &cfg, nil
}
