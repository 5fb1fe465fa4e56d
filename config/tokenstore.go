package config

import (
	"fmt"
	"strings"
)

// TokenStoreBackend represents the persistence backend for the bearer token.
type TokenStoreBackend string

const (
	// TokenStoreFile persists the token in a file under the user config dir.
	TokenStoreFile TokenStoreBackend = "file"
	// TokenStoreRedis persists the token in Redis (shared-workstation setups).
	TokenStoreRedis TokenStoreBackend = "redis"
	// TokenStoreMemory keeps the token in process memory (tests, ephemeral runs).
	TokenStoreMemory TokenStoreBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for TokenStoreBackend.
func (b *TokenStoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "file", "redis", "memory":
		*b = TokenStoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid TokenStoreBackend: %q (valid options: file, redis, memory)", v)
	}
}

// RedisConfig contains Redis connection configuration for the token store.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// TokenStoreConfig groups token persistence configuration.
type TokenStoreConfig struct {
	// Backend selects the persistence mechanism.
	Backend TokenStoreBackend `env:"BACKEND" envDefault:"file"`

	// Path overrides the token file location (file backend only).
	Path string `env:"PATH"`

	// Key overrides the Redis key (redis backend only).
	Key string `env:"KEY"`

	// Redis connection settings (redis backend only).
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to token store configuration values.
func (c *TokenStoreConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = TokenStoreFile
	}
	c.Path = strings.TrimSpace(c.Path)
	c.Key = strings.TrimSpace(c.Key)
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
}
