package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is only accepted when CAREERVR_ENV is "development".
const DefaultJWTSecret = "supersecretkey"

type Config struct {
	Env           string        `yaml:"env" envconfig:"ENV"`
	Addr          string        `yaml:"addr" envconfig:"ADDR"`
	JWTSecret     string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	APITimeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	TokenDuration time.Duration `yaml:"token_duration" envconfig:"TOKEN_DURATION"`
	LogLevel      string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	Storage       StorageConfig `yaml:"storage" ignored:"true"`
}

// StorageConfig selects the backend and the write gate inputs. Its variables
// keep the unprefixed names existing deployments already set.
type StorageConfig struct {
	// URL picks the backend by scheme: redis://, postgres://, sqlite: or
	// empty for the local JSON files.
	URL              string        `yaml:"url" envconfig:"DATABASE_URL"`
	DataDir          string        `yaml:"data_dir" envconfig:"DATA_DIR"`
	KeyPrefix        string        `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
	ConnectRetries   int           `yaml:"connect_retries" envconfig:"CONNECT_RETRIES"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT"`
	Restricted       bool          `yaml:"restricted" envconfig:"RESTRICTED_DEPLOYMENT"`
	ForceLocalWrites bool          `yaml:"force_local_writes" envconfig:"FORCE_LOCAL_WRITES"`
}

func Default() *Config {
	return &Config{
		Env:           "production",
		Addr:          ":8080",
		JWTSecret:     DefaultJWTSecret,
		APITimeout:    15 * time.Second,
		TokenDuration: time.Hour,
		LogLevel:      "info",
		Storage: StorageConfig{
			DataDir:          "data",
			KeyPrefix:        "careervr",
			ConnectTimeout:   5 * time.Second,
			ConnectRetries:   3,
			OperationTimeout: 10 * time.Second,
		},
	}
}

// LoadConfig layers defaults, the optional YAML file at path and the
// environment, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := envconfig.Process("careervr", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := envconfig.Process("", &cfg.Storage); err != nil {
		return nil, fmt.Errorf("read storage environment: %w", err)
	}
	// Older deployments only set VERCEL.
	if os.Getenv("VERCEL") == "1" {
		cfg.Storage.Restricted = true
	}
	return cfg, nil
}

func (c *Config) Development() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(os.Getenv("CAREERVR_ENV"), "development")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == DefaultJWTSecret && !c.Development() {
		errs = append(errs, errors.New("jwt_secret must be changed outside development"))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, errors.New("token_duration must be positive"))
	}
	if c.Storage.ConnectTimeout <= 0 {
		c.Storage.ConnectTimeout = 5 * time.Second
	}
	if c.Storage.OperationTimeout <= 0 {
		c.Storage.OperationTimeout = 10 * time.Second
	}
	if c.Storage.ConnectRetries < 0 {
		errs = append(errs, errors.New("storage.connect_retries must not be negative"))
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "careervr"
	}
	return errors.Join(errs...)
}
