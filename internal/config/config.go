// Package config loads the catalog service configuration.
//
// Sources, lowest priority first: built-in defaults, config.yaml, a .env
// file, then CATALOG_* environment variables. Nested keys use "_" in env
// names, so CATALOG_STORE_S3_BUCKET sets store.s3.bucket.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix      = "CATALOG_"
	defaultEnvFile = ".env"
	configFile     = "config.yaml"
)

const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

type Config struct {
	HTTP struct {
		Port              int           `koanf:"port" validate:"min=1,max=65535"`
		ReadHeaderTimeout time.Duration `koanf:"readheadertimeout" validate:"gt=0"`
		ShutdownTimeout   time.Duration `koanf:"shutdowntimeout" validate:"gt=0"`
	} `koanf:"http"`

	Log struct {
		Level string `koanf:"level" validate:"oneof=debug info warn error"`
	} `koanf:"log"`

	Store struct {
		Driver string `koanf:"driver" validate:"oneof=file memory sqlite postgres s3"`
		Path   string `koanf:"path" validate:"required_if=Driver file,required_if=Driver sqlite"`
		DSN    string `koanf:"dsn" validate:"required_if=Driver postgres"`
		S3     struct {
			Bucket    string `koanf:"bucket"`
			Key       string `koanf:"key"`
			Region    string `koanf:"region"`
			Endpoint  string `koanf:"endpoint"`
			PathStyle bool   `koanf:"pathstyle"`
		} `koanf:"s3"`
	} `koanf:"store"`

	Metrics struct {
		Enabled bool   `koanf:"enabled"`
		Token   string `koanf:"token"`
	} `koanf:"metrics"`

	Auth struct {
		JWTSecret string `koanf:"jwtsecret" validate:"omitempty,min=32"`
	} `koanf:"auth"`

	Events struct {
		NatsURL       string `koanf:"natsurl" validate:"omitempty,url"`
		SubjectPrefix string `koanf:"subjectprefix"`
	} `koanf:"events"`

	RateLimit struct {
		WritesPerMin int `koanf:"writespermin" validate:"min=0"`
	} `koanf:"ratelimit"`
}

func (c Config) String() string {
	return fmt.Sprintf("http.port=%d, log.level=%s, store.driver=%s, store.path=%s, store.dsn=%s, metrics.enabled=%t, auth=%t, events=%t",
		c.HTTP.Port,
		c.Log.Level,
		c.Store.Driver,
		c.Store.Path,
		maskDSN(c.Store.DSN),
		c.Metrics.Enabled,
		c.Auth.JWTSecret != "",
		c.Events.NatsURL != "",
	)
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return "<not configured>"
	}
	if _, host, ok := strings.Cut(dsn, "@"); ok {
		return "****@" + host
	}
	return "****"
}

func defaults() map[string]any {
	return map[string]any{
		"http.port":              8082,
		"http.readheadertimeout": "5s",
		"http.shutdowntimeout":   "10s",
		"log.level":              "info",
		"store.driver":           DriverFile,
		"store.path":             "products.jsonl",
		"store.s3.key":           "catalog/products.jsonl",
		"events.subjectprefix":   "catalog",
		"ratelimit.writespermin": 60,
	}
}

// keyTransformer maps CATALOG_STORE_S3_BUCKET to store.s3.bucket. Config
// keys never contain underscores, so every "_" is a level separator.
func keyTransformer(key string) string {
	key = strings.TrimPrefix(strings.ToUpper(key), envPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", ".")
}

// Load reads configuration from every source and validates the result.
func Load() (*Config, error) {
	return load(configFile, defaultEnvFile)
}

func load(yamlPath, envPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: error loading YAML config %q: %v", yamlPath, err)
	}

	if envFileMap, err := godotenv.Read(envPath); err == nil {
		envMap := make(map[string]any, len(envFileMap))
		for key, value := range envFileMap {
			if strings.HasPrefix(strings.ToUpper(key), envPrefix) {
				envMap[keyTransformer(key)] = value
			}
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", keyTransformer), nil); err != nil {
		log.Printf("WARN: error loading env vars: %v", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.Driver == DriverS3 && c.Store.S3.Bucket == "" {
		return errors.New("store.s3.bucket is required for the s3 driver")
	}
	if c.Metrics.Enabled && c.Metrics.Token == "" {
		return errors.New("metrics.token is required when metrics are enabled")
	}
	return nil
}
