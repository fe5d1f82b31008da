package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "learnsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Act
	conf, err := Load("")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StorageFile, conf.Storage.Driver)
	assert.NotEmpty(t, conf.Storage.Path)
	assert.Equal(t, CacheMemory, conf.Cache.Driver)
	assert.Equal(t, 5*time.Minute, conf.Cache.TTL)
	assert.Equal(t, 500, conf.Cache.MaxSize)
	assert.Equal(t, ":8080", conf.Server.Addr)
	assert.Equal(t, "/login", conf.Server.LoginPath)
	assert.Equal(t, "info", conf.Log.Level)
	assert.Zero(t, conf.API.Timeout)
}

func TestLoadYAML(t *testing.T) {
	// Arrange
	path := writeYAML(t, `
api:
  base_url: https://learn.example.com/api
  timeout: 10s
storage:
  driver: memory
cache:
  driver: redis
  ttl: 1m
  redis:
    host: cache.internal
    port: 6380
server:
  addr: 127.0.0.1:9000
log:
  level: debug
  format: json
`)

	// Act
	conf, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://learn.example.com/api", conf.API.BaseURL)
	assert.Equal(t, 10*time.Second, conf.API.Timeout)
	assert.Equal(t, StorageMemory, conf.Storage.Driver)
	assert.Equal(t, CacheRedis, conf.Cache.Driver)
	assert.Equal(t, time.Minute, conf.Cache.TTL)
	assert.Equal(t, "cache.internal", conf.Cache.Redis.Host)
	assert.Equal(t, 6380, conf.Cache.Redis.Port)
	assert.Equal(t, "learnsync:", conf.Cache.Redis.Prefix)
	assert.Equal(t, "127.0.0.1:9000", conf.Server.Addr)
	assert.Equal(t, "json", conf.Log.Format)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	// Requirement: environment variables win over the config file
	path := writeYAML(t, "api:\n  base_url: https://from-file.example.com\n")
	t.Setenv("LEARNSYNC_API__BASE_URL", "https://from-env.example.com")
	t.Setenv("LEARNSYNC_CACHE__REDIS__PORT", "7000")

	conf, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", conf.API.BaseURL)
	assert.Equal(t, 7000, conf.Cache.Redis.Port)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, CacheMemory, conf.Cache.Driver)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeYAML(t, "api: [unclosed")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr error
	}{
		{name: "defaults are valid", mutate: func(*AppConfig) {}},
		{name: "unknown storage", mutate: func(c *AppConfig) { c.Storage.Driver = "s3" }, wantErr: ErrUnknownStorageDriver},
		{name: "postgres needs dsn", mutate: func(c *AppConfig) { c.Storage.Driver = StoragePostgres }, wantErr: ErrDSNRequired},
		{name: "postgres with dsn", mutate: func(c *AppConfig) {
			c.Storage.Driver = StoragePostgres
			c.Storage.DSN = "postgres://localhost/learnsync"
		}},
		{name: "unknown cache", mutate: func(c *AppConfig) { c.Cache.Driver = "memcached" }, wantErr: ErrUnknownCacheDriver},
		{name: "cache disabled", mutate: func(c *AppConfig) { c.Cache.Driver = CacheNone }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			conf := &AppConfig{}
			conf.applyDefaults()
			test.mutate(conf)

			// Act
			err := conf.Validate()

			// Assert
			if test.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, test.wantErr)
			}
		})
	}
}
