/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"io"
)

// Loader fills Config objects from a DataProvider: first it lets every config
// seed its defaults in the provider, then it lets every config read its values back.
type Loader struct {
	DataProvider DataProvider
}

// NewLoader creates a new Loader on top of the passed data provider.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// NewDefaultLoader creates a new Loader backed by viper,
// with values overridable by environment variables carrying the passed prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// LoadFromFile reads configuration data from the file and fills the passed configs.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

// LoadFromReader reads configuration data from the reader and fills the passed configs.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

func (l *Loader) load(cfgs []Config) error {
	// Defaults of all configs are seeded before any config reads its values,
	// so one config may rely on another's keys being present.
	for _, cfg := range cfgs {
		cfg.SetProviderDefaults(l.providerFor(cfg))
	}
	for _, cfg := range cfgs {
		if err := cfg.Set(l.providerFor(cfg)); err != nil {
			return err
		}
	}
	return nil
}

// providerFor scopes the data provider to the config's key prefix when it declares one.
func (l *Loader) providerFor(cfg Config) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(l.DataProvider, kp.KeyPrefix())
	}
	return l.DataProvider
}
