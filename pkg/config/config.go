package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payout   PayoutConfig
	Outbox   OutboxRelayConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	MetricsPort int `mapstructure:"metrics_port"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	ClientID    string   `mapstructure:"client_id"`
	PayoutTopic string   `mapstructure:"payout_topic"`
	DLQTopic    string   `mapstructure:"dlq_topic"`
}

type PayoutConfig struct {
	ProviderTimeout   time.Duration `mapstructure:"provider_timeout"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	PendingAge        time.Duration `mapstructure:"pending_age"`
}

type OutboxRelayConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/posdesk/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("POSDESK")
	viper.AutomaticEnv()

	viper.SetDefault("server.metrics_port", 9091)
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("kafka.client_id", "posdesk-outbox-relay")
	viper.SetDefault("kafka.payout_topic", "posdesk.payout.events")
	viper.SetDefault("kafka.dlq_topic", "posdesk.payout.events.dlq")
	viper.SetDefault("payout.provider_timeout", "30s")
	viper.SetDefault("payout.reconcile_interval", "1m")
	viper.SetDefault("payout.pending_age", "5m")
	viper.SetDefault("outbox.poll_interval", "5s")
	viper.SetDefault("outbox.batch_size", 100)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
