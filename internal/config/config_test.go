package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	conf := NewDefaultConfig()

	assert.False(t, conf.Debug)
	assert.Equal(t, 30*time.Second, conf.RequestTimeout)
	assert.Equal(t, 100, conf.MaxIdleConns)
	assert.NotNil(t, conf.Viper)
	assert.NotNil(t, conf.InReader)
	assert.NotNil(t, conf.OutWriter)
	assert.NotNil(t, conf.ErrWriter)
}

func TestGetConfigFilePath(t *testing.T) {
	conf := NewDefaultConfig()
	path, err := GetConfigFilePath(conf)
	require.NoError(t, err)
	assert.Contains(t, path, ".config/loadgun")
	assert.Contains(t, path, "config.yml")
}

func TestGetConfigDirPath(t *testing.T) {
	conf := NewDefaultConfig()
	dir, err := GetConfigDirPath(conf)
	require.NoError(t, err)
	assert.Contains(t, dir, ".config/loadgun")
}

func TestSetupStore_NoConfigFile(t *testing.T) {
	conf := Config{
		ConfigDirPath:  "/nonexistent/path",
		ConfigFilePath: "config.yml",
	}
	v := setupStore(conf)
	assert.NotNil(t, v)
}
