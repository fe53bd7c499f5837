package config

import (
	"errors"
	"time"

	"github.com/eventrelay/eventrelay/internal/errs"
)

var (
	ErrConfigurationValuesError = errors.New("configuration value error")
	ErrUnknownStoreBackend      = errors.New("store backend must be dynamodb or memory")
	ErrEmptyTableName           = errors.New("store table name must be specified")
	ErrNoSecretSource           = errors.New("either a secret id or inline secrets must be specified")
	ErrBadRetrySchedule         = errors.New("retry schedule values must be positive")
)

// Config holds all application configuration parameters
type Config struct {
	Logger     Logger     `yaml:"logger"`
	HTTP       HTTPServer `yaml:"http"`
	Store      Store      `yaml:"store"`
	Auth       Auth       `yaml:"auth"`
	Secrets    Secrets    `yaml:"secrets"`
	Dispatcher Dispatcher `yaml:"dispatcher"`
	Metrics    Metrics    `yaml:"metrics"`
	Telemetry  Telemetry  `yaml:"telemetry"`
}

func (c *Config) Validate() error {
	err := c.Store.Validate()
	if err != nil {
		return errs.Wrap(ErrConfigurationValuesError, err)
	}

	err = c.Secrets.Validate()
	if err != nil {
		return errs.Wrap(ErrConfigurationValuesError, err)
	}

	err = c.Dispatcher.Validate()
	if err != nil {
		return errs.Wrap(ErrConfigurationValuesError, err)
	}

	return nil
}

type Logger struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
}

// HTTPServer holds http server config
type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

const (
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendMemory   = "memory"
)

// Store holds the event store backend config. The memory backend exists for
// local runs and tests only.
type Store struct {
	Backend   string `yaml:"backend" default:"dynamodb"`
	TableName string `yaml:"tableName" default:"eventrelay-events"`
	Region    string `yaml:"region"`
	// Endpoint overrides the DynamoDB endpoint for local development.
	Endpoint string `yaml:"endpoint"`
}

func (s *Store) Validate() error {
	switch s.Backend {
	case StoreBackendDynamoDB:
		if s.TableName == "" {
			return ErrEmptyTableName
		}
	case StoreBackendMemory:
	default:
		return ErrUnknownStoreBackend
	}

	return nil
}

// Auth holds the credential exchange config.
type Auth struct {
	Username string        `yaml:"username" default:"api"`
	TokenTTL time.Duration `yaml:"tokenTTL" default:"1h"`
}

// Secrets points at the operational secret. Inline values short-circuit the
// Secrets Manager fetch for local development.
type Secrets struct {
	SecretID string `yaml:"secretId"`
	Region   string `yaml:"region"`

	Inline *InlineSecrets `yaml:"inline"`
}

type InlineSecrets struct {
	APIKey          string `yaml:"apiKey"`
	WebhookURL      string `yaml:"webhookUrl"`
	WebhookSecret   string `yaml:"webhookSecret"`
	TokenSigningKey string `yaml:"tokenSigningKey"`
}

func (s *Secrets) Validate() error {
	if s.SecretID == "" && s.Inline == nil {
		return ErrNoSecretSource
	}

	return nil
}

// Dispatcher holds one batch run's config.
type Dispatcher struct {
	APIBaseURL     string        `yaml:"apiBaseUrl" default:"http://localhost:8080"`
	BatchSize      int           `yaml:"batchSize" default:"100"`
	MaxRetries     uint          `yaml:"maxRetries" default:"3"`
	InitialBackoff time.Duration `yaml:"initialBackoff" default:"1s"`
	MaxBackoff     time.Duration `yaml:"maxBackoff" default:"60s"`
	CallTimeout    time.Duration `yaml:"callTimeout" default:"30s"`
}

func (d *Dispatcher) Validate() error {
	if d.MaxRetries < 1 || d.InitialBackoff <= 0 || d.MaxBackoff <= 0 || d.BatchSize < 1 {
		return ErrBadRetrySchedule
	}

	return nil
}

type Metrics struct {
	CacheTTL time.Duration `yaml:"cacheTTL" default:"30s"`
	MaxScan  int           `yaml:"maxScan" default:"10000"`
}

type Telemetry struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" default:"EventRelay/Dispatcher"`
	Region    string `yaml:"region"`
}
