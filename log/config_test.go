/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-ratelimit/config"
)

func TestConfigLoad(t *testing.T) {
	yamlData := `
log:
  level: warn
  format: text
  output: file
  file:
    path: /var/log/svc.log
    rotation:
      maxSizeMB: 100
      maxBackups: 5
      compress: true
`
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, LevelWarn, cfg.Level)
	require.Equal(t, FormatText, cfg.Format)
	require.Equal(t, OutputFile, cfg.Output)
	require.Equal(t, "/var/log/svc.log", cfg.File.Path)
	require.Equal(t, 100, cfg.File.Rotation.MaxSizeMB)
	require.Equal(t, 5, cfg.File.Rotation.MaxBackups)
	require.True(t, cfg.File.Rotation.Compress)
}

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, NewDefaultConfig(), cfg)
}

func TestConfigFileOutputRequiresPath(t *testing.T) {
	yamlData := `
log:
  output: file
`
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg)
	require.ErrorContains(t, err, "file.path")
}

func TestConfigYAMLUnmarshal(t *testing.T) {
	yamlData := `
level: debug
format: json
output: stderr
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(yamlData), &cfg))
	require.Equal(t, LevelDebug, cfg.Level)
	require.Equal(t, FormatJSON, cfg.Format)
	require.Equal(t, OutputStderr, cfg.Output)
}
