package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Comms     CommsConfig
	Scheduler SchedulerConfig
	Email     EmailConfig
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateBurst      int      `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	RefreshSecret      string `mapstructure:"refresh_secret"`
	ExpiryHours        int    `mapstructure:"expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// StorageConfig selects cloud object storage or a local directory.
type StorageConfig struct {
	Mode      string `mapstructure:"mode"` // "cloud" or "local"
	LocalRoot string `mapstructure:"local_root"`
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type CommsConfig struct {
	AccountSID     string `mapstructure:"account_sid"`
	APIKey         string `mapstructure:"api_key"`
	APIKeySecret   string `mapstructure:"api_key_secret"`
	ChatServiceSID string `mapstructure:"chat_service_sid"`
	BaseURL        string `mapstructure:"base_url"`
	TokenTTLHours  int    `mapstructure:"token_ttl_hours"`
}

// SchedulerConfig carries the policy knobs of the matcher. MinOptions
// and LookaheadWeeks make the "at least N options, else scan further
// weeks" guarantee explicit.
type SchedulerConfig struct {
	MinOptions     int `mapstructure:"min_options"`
	LookaheadWeeks int `mapstructure:"lookahead_weeks"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("server.rate_limit", 100)
	viper.SetDefault("server.rate_burst", 200)
	viper.SetDefault("scheduler.min_options", 10)
	viper.SetDefault("scheduler.lookahead_weeks", 2)
	viper.SetDefault("storage.mode", "local")
	viper.SetDefault("storage.local_root", "./data/attachments")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
