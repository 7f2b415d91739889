/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"time"

	"github.com/acronis/go-ratelimit/config"
)

const cfgDefaultKeyPrefix = "rateLimit"

const (
	cfgKeyCleanupInterval      = "cleanup.interval"
	cfgKeyCleanupIdleThreshold = "cleanup.idleThreshold"
)

// Config represents a set of configuration parameters for SlidingWindowLimiter.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader or viper.
type Config struct {
	Cleanup CleanupConfig `mapstructure:"cleanup" yaml:"cleanup" json:"cleanup"`

	keyPrefix string
}

// CleanupConfig is a configuration for the idle keys cleanup.
type CleanupConfig struct {
	// Interval is the period of the cleanup worker.
	Interval time.Duration `mapstructure:"interval" yaml:"interval" json:"interval"`

	// IdleThreshold determines for how long all attempts of a key must be stale
	// before the cleanup removes the key's state.
	IdleThreshold time.Duration `mapstructure:"idleThreshold" yaml:"idleThreshold" json:"idleThreshold"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix: opts.keyPrefix,
		Cleanup: CleanupConfig{
			Interval:      DefaultCleanupInterval,
			IdleThreshold: DefaultIdleThreshold,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyCleanupInterval, DefaultCleanupInterval)
	dp.SetDefault(cfgKeyCleanupIdleThreshold, DefaultIdleThreshold)
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Cleanup.Interval, err = dp.GetDuration(cfgKeyCleanupInterval); err != nil {
		return err
	}
	if c.Cleanup.Interval <= 0 {
		return dp.WrapKeyErr(cfgKeyCleanupInterval, fmt.Errorf("must be positive"))
	}

	if c.Cleanup.IdleThreshold, err = dp.GetDuration(cfgKeyCleanupIdleThreshold); err != nil {
		return err
	}
	if c.Cleanup.IdleThreshold <= 0 {
		return dp.WrapKeyErr(cfgKeyCleanupIdleThreshold, fmt.Errorf("must be positive"))
	}

	return nil
}
