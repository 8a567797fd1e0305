package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go.uber.org/fx"

	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string         `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from defaults, embedded YAML and environment
// variables, in that precedence order. It is called once during startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	// Unmarshal directly over the defaults: only keys present in the document
	// are touched, so explicit zero and false values apply while absent keys
	// keep their defaults.
	if err := yaml.Unmarshal(embeddedConfig, cfg); err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to load config from environment variables", err, false, false)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, exception.NewPipelineError(moduleName, "invalid configuration", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It initializes the application configuration by loading defaults, merging
// from embedded YAML, and overriding with environment variables. It also sets
// the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Ordersink.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Ordersink.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from configuration files and environment
// variables. It is expected to be called only once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// validateConfig rejects settings the pipeline cannot run with.
func validateConfig(cfg *Config) error {
	p := cfg.Ordersink.Pipeline
	if p.Precision < 0 {
		return fmt.Errorf("pipeline.precision must not be negative, got %d", p.Precision)
	}
	if p.RejectionRateThreshold < 0 || p.RejectionRateThreshold > 1 {
		return fmt.Errorf("pipeline.rejection_rate_threshold must be within [0, 1], got %f", p.RejectionRateThreshold)
	}
	if p.LoadTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.load_timeout_seconds must be positive, got %d", p.LoadTimeoutSeconds)
	}
	switch f := strings.ToLower(cfg.Ordersink.Source.Format); f {
	case "csv", "json":
	default:
		return fmt.Errorf("source.format must be \"csv\" or \"json\", got %q", f)
	}
	if _, ok := cfg.Ordersink.Databases[WarehouseRef]; !ok {
		return fmt.Errorf("database.%s connection is not configured", WarehouseRef)
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables. It uses the "yaml" tag to derive the variable name,
// e.g. ORDERSINK_PIPELINE_PRECISION.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists && field.Kind() != reflect.Map {
			continue
		}

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct {
			// map[string]struct fields accept nested variables such as
			// ORDERSINK_DATABASE_WAREHOUSE_HOST.
			if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv loads fields of type map[string]struct from
// environment variables, inferring the map key and struct field from the
// variable name.
//
// Example: ORDERSINK_DATABASE_WAREHOUSE_HOST=localhost sets the Host field of
// the DatabaseConfig stored under the key "warehouse".
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}

	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}

		keyPartWithValue := strings.TrimPrefix(env, prefix)
		parts := strings.SplitN(keyPartWithValue, "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := parts[0] // e.g., "WAREHOUSE_HOST"
		envValue := parts[1]

		keyAndFieldParts := strings.Split(keyAndField, "_")
		if len(keyAndFieldParts) < 2 {
			continue
		}
		mapKey := strings.ToLower(keyAndFieldParts[0])
		structFieldName := strings.Join(keyAndFieldParts[1:], "_")

		structVal := mapField.MapIndex(reflect.ValueOf(mapKey))
		if !structVal.IsValid() {
			structVal = reflect.New(elemType).Elem()
		} else {
			// Map values are not addressable, copy before mutating.
			copied := reflect.New(elemType).Elem()
			copied.Set(structVal)
			structVal = copied
		}

		if err := setStructFieldFromEnv(structVal, structFieldName, envValue); err != nil {
			return err
		}
		mapField.SetMapIndex(reflect.ValueOf(mapKey), structVal)
	}
	return nil
}

// setStructFieldFromEnv sets the value of a specific struct field, matching
// fieldName case-insensitively against the field's yaml tag.
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := structVal.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, fieldName) {
			return setField(field, value)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
