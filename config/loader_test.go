/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testServiceConfig struct {
	Name     string
	Interval time.Duration
	Enabled  bool
	Mode     string
}

func (c *testServiceConfig) KeyPrefix() string {
	return "service"
}

func (c *testServiceConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("name", "unnamed")
	dp.SetDefault("interval", time.Minute)
	dp.SetDefault("mode", "active")
}

func (c *testServiceConfig) Set(dp DataProvider) error {
	var err error
	if c.Name, err = dp.GetString("name"); err != nil {
		return err
	}
	if c.Interval, err = dp.GetDuration("interval"); err != nil {
		return err
	}
	if c.Enabled, err = dp.GetBool("enabled"); err != nil {
		return err
	}
	if c.Mode, err = dp.GetStringFromSet("mode", []string{"active", "passive"}, true); err != nil {
		return err
	}
	return nil
}

func TestLoaderLoadFromReader(t *testing.T) {
	yamlData := `
service:
  name: checker
  interval: 5m
  enabled: true
`
	cfg := &testServiceConfig{}
	err := NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, "checker", cfg.Name)
	require.Equal(t, 5*time.Minute, cfg.Interval)
	require.True(t, cfg.Enabled)
	require.Equal(t, "active", cfg.Mode) // default

	jsonData := `{"service": {"name": "checker2", "mode": "passive"}}`
	cfg = &testServiceConfig{}
	err = NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(jsonData), DataTypeJSON, cfg)
	require.NoError(t, err)
	require.Equal(t, "checker2", cfg.Name)
	require.Equal(t, time.Minute, cfg.Interval) // default
	require.Equal(t, "passive", cfg.Mode)
}

func TestLoaderLoadDefaults(t *testing.T) {
	cfg := &testServiceConfig{}
	err := NewDefaultLoader("").LoadFromReader(strings.NewReader(""), DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, "unnamed", cfg.Name)
	require.Equal(t, time.Minute, cfg.Interval)
	require.False(t, cfg.Enabled)
}

func TestLoaderInvalidValue(t *testing.T) {
	yamlData := `
service:
  mode: unknown
`
	cfg := &testServiceConfig{}
	err := NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), DataTypeYAML, cfg)
	require.ErrorContains(t, err, "service.mode")
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := NewViperAdapter()
	va.Set("outer.inner.value", 42)
	dp := NewKeyPrefixedDataProvider(va, "outer.inner")
	got, err := dp.GetInt("value")
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.True(t, dp.IsSet("value"))
	require.False(t, dp.IsSet("missing"))
}
