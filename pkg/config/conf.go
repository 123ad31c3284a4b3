package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	fileMode = 0600

	// ContractEncoded means JSON records carry the encoded feature columns.
	ContractEncoded = "encoded"
	// ContractRaw means JSON records carry raw input fields.
	ContractRaw = "raw"

	defaultModelPath = "model/credit_default.json"
	defaultAddress   = "0.0.0.0"
	defaultPort      = 8080
)

// Config represents the service config.
type Config struct {
	ModelPath  string `yaml:"model" validate:"required"`
	ModelToken string `yaml:"model_token,omitempty"`
	Validation string `yaml:"validation" validate:"oneof=strict lenient"`
	Contract   string `yaml:"contract" validate:"oneof=encoded raw"`
	Address    string `yaml:"address" validate:"required"`
	Port       int    `yaml:"port" validate:"min=1,max=65535"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat  string `yaml:"log_format" validate:"oneof=text json"`
}

// Default returns the config used when no file is provided.
func Default() *Config {
	return &Config{
		ModelPath:  defaultModelPath,
		Validation: "strict",
		Contract:   ContractEncoded,
		Address:    defaultAddress,
		Port:       defaultPort,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Read loads the config from path on top of the defaults. An empty path
// returns the defaults.
func Read(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	c.normalize()
	return c, nil
}

// Save writes the config to path.
func Save(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the config values.
func (c *Config) Validate() error {
	c.normalize()
	if err := validator.New().Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Listen returns the address the server listens on.
func (c *Config) Listen() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

func (c *Config) normalize() {
	c.ModelPath = strings.TrimSpace(c.ModelPath)
	c.Validation = strings.ToLower(strings.TrimSpace(c.Validation))
	c.Contract = strings.ToLower(strings.TrimSpace(c.Contract))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}
