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
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
	WOD      WODConfig      `yaml:"wod"`
	Coach    CoachConfig    `yaml:"coach"`
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

// RabbitMQConfig holds RabbitMQ connection and queue topology configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Queue      QueueConfig      `yaml:"queue"`
	Connection ConnectionConfig `yaml:"connection"`
}

// QueueConfig holds work queue and dead-letter queue topology settings.
// The work queue is bounded; expired or overflowed messages are routed to
// the dead-letter queue.
type QueueConfig struct {
	Name           string        `yaml:"name"`
	DeadLetterName string        `yaml:"dead_letter_name"`
	MessageTTL     time.Duration `yaml:"message_ttl"`
	MaxLength      int           `yaml:"max_length"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds consumer service configuration. FailureRate injects a
// synthetic processing failure with the given probability per delivery to
// exercise the retry path under load; it should be zero in production.
type WorkerConfig struct {
	PrefetchCount   int           `yaml:"prefetch_count"`
	MaxRetries      int           `yaml:"max_retries"`
	FailureRate     float64       `yaml:"failure_rate"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WODConfig holds selection engine configuration
type WODConfig struct {
	Size            int           `yaml:"size"`
	LookbackDays    int           `yaml:"lookback_days"`
	MinWeight       float64       `yaml:"min_weight"`
	MaxWeight       float64       `yaml:"max_weight"`
	MinReps         int           `yaml:"min_reps"`
	MaxReps         int           `yaml:"max_reps"`
	ComputeDelayMin time.Duration `yaml:"compute_delay_min"`
	ComputeDelayMax time.Duration `yaml:"compute_delay_max"`
}

// CoachConfig holds strangler routing configuration for the external WOD
// generation service
type CoachConfig struct {
	UseExternalService bool          `yaml:"use_external_service"`
	Endpoint           string        `yaml:"endpoint"`
	CallTimeout        time.Duration `yaml:"call_timeout"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills in defaults for optional sections
func (c *Config) applyDefaults() {
	if c.RabbitMQ.Queue.MessageTTL == 0 {
		c.RabbitMQ.Queue.MessageTTL = 60 * time.Second
	}
	if c.RabbitMQ.Queue.MaxLength == 0 {
		c.RabbitMQ.Queue.MaxLength = 100
	}
	if c.Worker.PrefetchCount == 0 {
		c.Worker.PrefetchCount = 1
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}
	if c.WOD.Size == 0 {
		c.WOD.Size = 6
	}
	if c.WOD.LookbackDays == 0 {
		c.WOD.LookbackDays = 3
	}
	if c.WOD.MinWeight == 0 {
		c.WOD.MinWeight = 5.0
	}
	if c.WOD.MaxWeight == 0 {
		c.WOD.MaxWeight = 50.0
	}
	if c.WOD.MinReps == 0 {
		c.WOD.MinReps = 8
	}
	if c.WOD.MaxReps == 0 {
		c.WOD.MaxReps = 15
	}
	if c.Coach.CallTimeout == 0 {
		c.Coach.CallTimeout = 10 * time.Second
	}
}

// ValidateAPIConfig checks the configuration needed by the API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateShared(); err != nil {
		return err
	}

	return nil
}

// ValidateWorkerConfig checks the configuration needed by the worker service
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateShared(); err != nil {
		return err
	}

	if c.Worker.PrefetchCount <= 0 {
		return fmt.Errorf("worker prefetch_count must be greater than 0")
	}

	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker max_retries must not be negative")
	}

	if c.Worker.FailureRate < 0 || c.Worker.FailureRate > 1 {
		return fmt.Errorf("worker failure_rate must be between 0 and 1")
	}

	return nil
}

// validateShared checks the configuration both services depend on
func (c *Config) validateShared() error {
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

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.RabbitMQ.Queue.DeadLetterName == "" {
		return fmt.Errorf("rabbitmq dead letter queue name is required")
	}

	if c.WOD.Size <= 0 {
		return fmt.Errorf("wod size must be greater than 0")
	}

	if c.WOD.LookbackDays <= 0 {
		return fmt.Errorf("wod lookback_days must be greater than 0")
	}

	if c.WOD.MinWeight > c.WOD.MaxWeight {
		return fmt.Errorf("wod min_weight must not exceed max_weight")
	}

	if c.WOD.MinReps > c.WOD.MaxReps {
		return fmt.Errorf("wod min_reps must not exceed max_reps")
	}

	if c.Coach.UseExternalService && c.Coach.Endpoint == "" {
		return fmt.Errorf("coach endpoint is required when use_external_service is enabled")
	}

	return nil
}
