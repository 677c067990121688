package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Remote   RemoteConfig   `yaml:"remote"`
	Worker   WorkerConfig   `yaml:"worker"`
	Resync   ResyncConfig   `yaml:"resync"`
	Items    ItemsConfig    `yaml:"items"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and topology configuration
type RabbitMQConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	VHost         string        `yaml:"vhost"`
	ExchangeName  string        `yaml:"exchange_name"`
	ExchangeType  string        `yaml:"exchange_type"`
	QueueName     string        `yaml:"queue_name"`
	RoutingKey    string        `yaml:"routing_key"`
	PrefetchCount int           `yaml:"prefetch_count"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// RemoteConfig holds the recommendation API client configuration
type RemoteConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	APISecret    string        `yaml:"api_secret"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryWaitMin time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max"`
}

// WorkerConfig holds queue worker configuration
type WorkerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	ReclaimAfter time.Duration `yaml:"reclaim_after"`
	ChunkSize    int           `yaml:"chunk_size"`
}

// ResyncConfig holds reconciliation configuration
type ResyncConfig struct {
	Interval  time.Duration `yaml:"interval"`
	ChunkSize int           `yaml:"chunk_size"`
}

// ItemsConfig holds storefront-wide item building configuration
type ItemsConfig struct {
	Currency            string `yaml:"currency"`
	PlaceholderImageURL string `yaml:"placeholder_image_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand ${VAR} references so secrets can stay in the environment.
	data = []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Worker.TickInterval <= 0 {
		c.Worker.TickInterval = 20 * time.Second
	}
	if c.Worker.ReclaimAfter <= 0 {
		c.Worker.ReclaimAfter = 15 * time.Minute
	}
	if c.Worker.ChunkSize <= 0 {
		c.Worker.ChunkSize = 200
	}
	if c.Resync.Interval <= 0 {
		c.Resync.Interval = time.Hour
	}
	if c.Resync.ChunkSize <= 0 {
		c.Resync.ChunkSize = 200
	}
	if c.Remote.MaxAttempts <= 0 {
		c.Remote.MaxAttempts = 3
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 30 * time.Second
	}
	if c.Items.Currency == "" {
		c.Items.Currency = "USD"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.ExchangeName == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.QueueName == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote base_url is required")
	}

	if c.Remote.APIKey == "" {
		return fmt.Errorf("remote api_key is required")
	}

	if c.Remote.APISecret == "" {
		return fmt.Errorf("remote api_secret is required")
	}

	return nil
}
