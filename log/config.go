/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"github.com/acronis/go-ratelimit/config"
)

const cfgDefaultKeyPrefix = "log"

const (
	cfgKeyLevel                        = "level"
	cfgKeyFormat                       = "format"
	cfgKeyOutput                       = "output"
	cfgKeyNoColor                      = "nocolor"
	cfgKeyFilePath                     = "file.path"
	cfgKeyFileRotationCompress         = "file.rotation.compress"
	cfgKeyFileRotationMaxSizeMB        = "file.rotation.maxSizeMB"
	cfgKeyFileRotationMaxBackups       = "file.rotation.maxBackups"
	cfgKeyFileRotationMaxAgeDays       = "file.rotation.maxAgeDays"
	cfgKeyFileRotationLocalTimeInNames = "file.rotation.localTimeInNames"
	cfgKeyAddCaller                    = "addCaller"
)

// Default and restriction values.
const (
	DefaultFileRotationMaxSizeMB = 250
	MinFileRotationMaxSizeMB     = 1

	DefaultFileRotationMaxBackups = 10
	MinFileRotationMaxBackups     = 1
)

// Config represents a set of configuration parameters for logging.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Level     Level            `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format           `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output           `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool             `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	File      FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`
	AddCaller bool             `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Level defines possible values for log levels.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format defines possible values for log formats.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output defines possible values for log outputs.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// FileOutputConfig is a configuration for file log output.
type FileOutputConfig struct {
	Path     string             `mapstructure:"path" yaml:"path" json:"path"`
	Rotation FileRotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// FileRotationConfig is a configuration for file log rotation.
type FileRotationConfig struct {
	Compress         bool `mapstructure:"compress" yaml:"compress" json:"compress"`
	MaxSizeMB        int  `mapstructure:"maxSizeMB" yaml:"maxSizeMB" json:"maxSizeMB"`
	MaxBackups       int  `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays       int  `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	LocalTimeInNames bool `mapstructure:"localTimeInNames" yaml:"localTimeInNames" json:"localTimeInNames"`
}

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
		Level:     LevelInfo,
		Format:    FormatJSON,
		Output:    OutputStdout,
		File: FileOutputConfig{
			Rotation: FileRotationConfig{
				MaxSizeMB:  DefaultFileRotationMaxSizeMB,
				MaxBackups: DefaultFileRotationMaxBackups,
			},
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

// SetProviderDefaults sets default configuration values for logger in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(LevelInfo))
	dp.SetDefault(cfgKeyFormat, string(FormatJSON))
	dp.SetDefault(cfgKeyOutput, string(OutputStdout))
	dp.SetDefault(cfgKeyFileRotationMaxSizeMB, DefaultFileRotationMaxSizeMB)
	dp.SetDefault(cfgKeyFileRotationMaxBackups, DefaultFileRotationMaxBackups)
}

var (
	availableLevels  = []string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}
	availableFormats = []string{string(FormatJSON), string(FormatText)}
	availableOutputs = []string{string(OutputStdout), string(OutputStderr), string(OutputFile)}
)

// Set sets logger configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	var levelStr string
	if levelStr, err = dp.GetStringFromSet(cfgKeyLevel, availableLevels, true); err != nil {
		return err
	}
	c.Level = Level(strings.ToLower(levelStr))

	var formatStr string
	if formatStr, err = dp.GetStringFromSet(cfgKeyFormat, availableFormats, true); err != nil {
		return err
	}
	c.Format = Format(strings.ToLower(formatStr))

	var outputStr string
	if outputStr, err = dp.GetStringFromSet(cfgKeyOutput, availableOutputs, true); err != nil {
		return err
	}
	c.Output = Output(strings.ToLower(outputStr))

	if err = c.setFileOutputConfig(dp); err != nil {
		return err
	}

	if c.AddCaller, err = dp.GetBool(cfgKeyAddCaller); err != nil {
		return err
	}

	if c.NoColor, err = dp.GetBool(cfgKeyNoColor); err != nil {
		return err
	}

	return nil
}

func (c *Config) setFileOutputConfig(dp config.DataProvider) error {
	var err error

	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.File.Path == "" && c.Output == OutputFile {
		return dp.WrapKeyErr(
			cfgKeyFilePath, fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}

	if c.File.Rotation.Compress, err = dp.GetBool(cfgKeyFileRotationCompress); err != nil {
		return err
	}

	if c.File.Rotation.MaxSizeMB, err = dp.GetInt(cfgKeyFileRotationMaxSizeMB); err != nil {
		return err
	}
	if c.File.Rotation.MaxSizeMB < MinFileRotationMaxSizeMB {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxSizeMB, fmt.Errorf("should be >= %d", MinFileRotationMaxSizeMB))
	}

	if c.File.Rotation.MaxBackups, err = dp.GetInt(cfgKeyFileRotationMaxBackups); err != nil {
		return err
	}
	if c.File.Rotation.MaxBackups < MinFileRotationMaxBackups {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxBackups, fmt.Errorf("should be >= %d", MinFileRotationMaxBackups))
	}

	if c.File.Rotation.MaxAgeDays, err = dp.GetInt(cfgKeyFileRotationMaxAgeDays); err != nil {
		return err
	}

	if c.File.Rotation.LocalTimeInNames, err = dp.GetBool(cfgKeyFileRotationLocalTimeInNames); err != nil {
		return err
	}

	return nil
}
