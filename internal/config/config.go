// Package config provides structures and utilities for managing the
// ordersink application configuration.
package config

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// PipelineConfig holds the tunables of the ingestion pipeline itself.
type PipelineConfig struct {
	// Precision is the number of decimal places monetary values are rounded to.
	Precision int `yaml:"precision"`
	// SampleRejectionLimit caps how many rejected records are carried into the
	// run summary (and logged) per run.
	SampleRejectionLimit int `yaml:"sample_rejection_limit"`
	// RejectionRateThreshold is the maximum tolerated share of rejected
	// records per batch, in [0, 1]. Exceeding it aborts the run before loading.
	RejectionRateThreshold float64 `yaml:"rejection_rate_threshold"`
	// FutureDateToleranceHours is how far into the future an order_date may
	// lie before the quality gate rejects the record.
	FutureDateToleranceHours int `yaml:"future_date_tolerance_hours"`
	// LoadTimeoutSeconds bounds the warehouse load transaction.
	LoadTimeoutSeconds int `yaml:"load_timeout_seconds"`
	// QuarantineEnabled controls whether rejected records are exported as
	// Parquet to the quarantine storage connection.
	QuarantineEnabled bool `yaml:"quarantine_enabled"`
	// QuarantinePrefix is the object key prefix for quarantine exports.
	QuarantinePrefix string `yaml:"quarantine_prefix"`
}

// SourceConfig describes where a batch of raw order records comes from.
type SourceConfig struct {
	// StorageRef is the name of the storage connection to read from.
	StorageRef string `yaml:"storage_ref"`
	// Object is the object key (or path) of the batch file.
	Object string `yaml:"object"`
	// Format is the encoding of the batch file ("csv" or "json").
	Format string `yaml:"format"`
}

// DatabaseConfig holds the connection settings for one named database.
type DatabaseConfig struct {
	// Type is the database kind ("postgres", "mysql" or "sqlite").
	Type string `yaml:"type"`
	// Host is the database host.
	Host string `yaml:"host"`
	// Port is the database port.
	Port int `yaml:"port"`
	// Database is the database (or file path, for sqlite) name.
	Database string `yaml:"database"`
	// User is the database user.
	User string `yaml:"user"`
	// Password is the database password.
	Password string `yaml:"password"`
	// SSLMode is the postgres sslmode parameter.
	SSLMode string `yaml:"sslmode"`
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// ListenAddress is the address the /metrics endpoint binds to.
	ListenAddress string `yaml:"listen_address"`
}

// TelemetryConfig holds the OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Protocol selects the OTLP transport ("grpc" or "http").
	Protocol string `yaml:"protocol"`
	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`
	// ServiceName is the reported service.name resource attribute.
	ServiceName string `yaml:"service_name"`
	// Insecure disables TLS on the exporter connection.
	Insecure bool `yaml:"insecure"`
}

// MigrationConfig holds schema migration settings.
type MigrationConfig struct {
	Enabled bool `yaml:"enabled"`
	// Table is the migrations bookkeeping table name.
	Table string `yaml:"table"`
}

// OrdersinkConfig holds all configuration under the "ordersink" top-level key.
type OrdersinkConfig struct {
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Pipeline contains the ingestion pipeline tunables.
	Pipeline PipelineConfig `yaml:"pipeline"`
	// Source describes the raw batch input.
	Source SourceConfig `yaml:"source"`
	// Databases holds named database connections. The "warehouse" entry is
	// the ingestion target.
	Databases map[string]DatabaseConfig `yaml:"database"`
	// Storages holds named storage connections, keyed by logical name. Each
	// entry is decoded into a typed storage config by the storage adapter.
	Storages map[string]map[string]interface{} `yaml:"storage"`
	// Metrics contains the Prometheus settings.
	Metrics MetricsConfig `yaml:"metrics"`
	// Telemetry contains the OpenTelemetry settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Migration contains schema migration settings.
	Migration MigrationConfig `yaml:"migration"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Ordersink contains the top-level configuration for the ingestion pipeline.
	Ordersink OrdersinkConfig `yaml:"ordersink"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// WarehouseRef is the name of the database connection the pipeline loads into.
const WarehouseRef = "warehouse"

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Ordersink: OrdersinkConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Pipeline: PipelineConfig{
				Precision:                2,
				SampleRejectionLimit:     5,
				RejectionRateThreshold:   0.2,
				FutureDateToleranceHours: 24,
				LoadTimeoutSeconds:       60,
				QuarantineEnabled:        false,
				QuarantinePrefix:         "quarantine/",
			},
			Source: SourceConfig{
				StorageRef: "local",
				Format:     "csv",
			},
			Metrics: MetricsConfig{
				Enabled:       false,
				ListenAddress: ":9464",
			},
			Telemetry: TelemetryConfig{
				Enabled:     false,
				Protocol:    "grpc",
				ServiceName: "ordersink",
				Insecure:    true,
			},
			Migration: MigrationConfig{
				Enabled: true,
				Table:   "schema_migrations",
			},
		},
	}

	cfg.Ordersink.Databases = map[string]DatabaseConfig{}
	cfg.Ordersink.Storages = map[string]map[string]interface{}{}
	return cfg
}
