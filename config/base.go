package config

import (
	"fmt"

	"github.com/kbukum/seqkit/util"
	"github.com/kbukum/seqkit/version"
)

// BaseConfig contains the identity fields every process using the engine has.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

var validEnvironments = []string{"development", "staging", "production"}

// ApplyDefaults applies default values to base configuration.
func (c *BaseConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Version = util.Coalesce(c.Version, version.Short())
	if c.Environment == "development" {
		c.Debug = true
	}
}

// Validate validates base configuration.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("base.name is required")
	}
	for _, v := range validEnvironments {
		if c.Environment == v {
			return nil
		}
	}
	return fmt.Errorf("base.environment must be one of %v (got: %s)", validEnvironments, c.Environment)
}
