// Package config loads the companion server's settings from an optional
// YAML file, a .env file and LEARNSYNC_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "LEARNSYNC_"

// Storage drivers
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Cache drivers
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

var (
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
	ErrUnknownCacheDriver   = errors.New("unknown cache driver")
	ErrDSNRequired          = errors.New("storage.dsn is required for the postgres driver")
)

type AppConfig struct {
	API     APIConfig     `koanf:"api"`
	Storage StorageConfig `koanf:"storage"`
	Cache   CacheConfig   `koanf:"cache"`
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
}

type APIConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"` // 0 means no timeout
	UserAgent string        `koanf:"user_agent"`
}

type StorageConfig struct {
	Driver     string `koanf:"driver"` // memory, file, postgres
	Path       string `koanf:"path"`
	Passphrase string `koanf:"passphrase"` // seals the file driver's values when set
	DSN        string `koanf:"dsn"`
	Namespace  string `koanf:"namespace"`
}

type CacheConfig struct {
	Driver  string        `koanf:"driver"` // memory, redis, none
	TTL     time.Duration `koanf:"ttl"`
	MaxSize int           `koanf:"max_size"`
	Redis   RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type ServerConfig struct {
	Addr      string `koanf:"addr"`
	LoginPath string `koanf:"login_path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// Load reads .env from the working directory if present, then the YAML file
// at path (skipped when path is empty or missing), then the environment.
// Later sources win. LEARNSYNC_API__BASE_URL sets api.base_url.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	conf := &AppConfig{}
	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	conf.applyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *AppConfig) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStatePath()
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = "default"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheMemory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 500
	}
	if c.Cache.Redis.Host == "" {
		c.Cache.Redis.Host = "localhost"
	}
	if c.Cache.Redis.Port == 0 {
		c.Cache.Redis.Port = 6379
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "learnsync:"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.LoginPath == "" {
		c.Server.LoginPath = "/login"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "learnsync.json"
	}
	return filepath.Join(dir, "learnsync", "state.json")
}

// Validate checks driver names and the fields each driver needs. The API
// base URL is checked by learnsync.New.
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageFile:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return ErrDSNRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, c.Storage.Driver)
	}

	switch c.Cache.Driver {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCacheDriver, c.Cache.Driver)
	}
	return nil
}
