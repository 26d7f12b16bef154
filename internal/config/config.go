// Package config loads service configuration from a YAML file and
// WP_-prefixed environment variables, with sane defaults for local runs.
//
// The player origin allow-list lives here rather than in code so tests and
// deployments can swap the trusted embed hosts without a rebuild.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Party  PartyConfig  `mapstructure:"party"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	InstanceID      string        `mapstructure:"instance_id"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BaseURL         string        `mapstructure:"base_url"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// PartyConfig holds watch-party behavior settings.
type PartyConfig struct {
	// PlayerOrigins is the allow-list of embed origins whose relayed
	// messages may control playback. Messages from any other origin are
	// dropped before parsing.
	PlayerOrigins []string `mapstructure:"player_origins"`

	MaxConnections int `mapstructure:"max_connections"`
	HistoryLimit   int `mapstructure:"history_limit"`

	// Identity field maxima for the OAuth redirect parameters.
	MaxUsernameLen int `mapstructure:"max_username_len"`
	MaxAvatarLen   int `mapstructure:"max_avatar_len"`
	MaxUserIDLen   int `mapstructure:"max_user_id_len"`
}

// Load reads configuration from the given file path (optional) and the
// environment. Missing file is fine as long as defaults plus env suffice.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8005)
	v.SetDefault("server.instance_id", "watchparty-1")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.base_url", "http://localhost:8005")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.token_ttl", 24*time.Hour)

	// The two known player host origins.
	v.SetDefault("party.player_origins", []string{
		"https://www.youtube.com",
		"https://www.youtube-nocookie.com",
	})
	v.SetDefault("party.max_connections", 10000)
	v.SetDefault("party.history_limit", 500)
	v.SetDefault("party.max_username_len", 64)
	v.SetDefault("party.max_avatar_len", 256)
	v.SetDefault("party.max_user_id_len", 64)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if len(cfg.Party.PlayerOrigins) == 0 {
		return fmt.Errorf("at least one player origin is required")
	}
	if cfg.Party.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}
	return nil
}
