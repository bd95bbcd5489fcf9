package config

import (
	"fmt"
	"strings"
)

// StorageDriver selects the backend for persisted console state.
type StorageDriver string

const (
	// StorageDriverFile keeps each blob as a file under StorageConfig.Dir.
	StorageDriverFile StorageDriver = "file"
	// StorageDriverRedis keeps each blob as a redis string key.
	StorageDriverRedis StorageDriver = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageDriver.
func (d *StorageDriver) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis":
		*d = StorageDriver(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageDriver: %q (valid options: file, redis)", v)
	}
}

// StorageConfig controls where the session, preferences and dashboard
// selection are persisted between runs.
type StorageConfig struct {
	Driver StorageDriver `env:"STORAGE_DRIVER" envDefault:"file"`

	// Dir is the directory used by the file driver.
	Dir string `env:"STORAGE_DIR" envDefault:".mmk-console"`

	// RedisPrefix namespaces keys written by the redis driver.
	RedisPrefix string `env:"STORAGE_REDIS_PREFIX" envDefault:"mmk:console:"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	if s.Driver == "" {
		s.Driver = StorageDriverFile
	}
	if strings.TrimSpace(s.Dir) == "" {
		s.Dir = ".mmk-console"
	}
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
