// Package config loads the tool's configuration with the usual layered
// precedence: flags > environment > config file > defaults.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the recognized configuration surface.
type Config struct {
	MigrationRoot            string `mapstructure:"migration_root"`
	InitFilename             string `mapstructure:"init_filename"`
	BootstrapFilename        string `mapstructure:"bootstrap_filename"`
	ContactPoints            string `mapstructure:"contact_points"`
	MigrationClientTimeoutMS int    `mapstructure:"migration_client_timeout_ms"`
	Debug                    bool   `mapstructure:"debug"`
}

// ContactPointList splits the space-separated contact points string.
func (c Config) ContactPointList() []string {
	return strings.Fields(c.ContactPoints)
}

// MigrationClientTimeout is MigrationClientTimeoutMS as a time.Duration.
func (c Config) MigrationClientTimeout() time.Duration {
	return time.Duration(c.MigrationClientTimeoutMS) * time.Millisecond
}

// Load discovers and loads configuration. explicitConfigPath, if non-empty,
// points at a config file to load in addition to environment and defaults;
// it is not an error for it to be empty, or for no config file to exist.
func Load(explicitConfigPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CQLMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitConfigPath != "" {
		v.SetConfigFile(explicitConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("migration_root", "/schema")
	v.SetDefault("init_filename", "cqlmigrate.cql")
	v.SetDefault("bootstrap_filename", "bootstrap.cql")
	v.SetDefault("contact_points", "localhost")
	v.SetDefault("migration_client_timeout_ms", 30000)
	v.SetDefault("debug", false)
}
