package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	responsetransformer "github.com/vary-cache/vary-cache/pkg/response-transformer"
)

type Config struct {
	// Backend is the cache backend to use: memory, sqlite or redis.
	Backend string `yaml:"backend"`
	// SQLite database file name, for the sqlite backend.
	DBFile string `yaml:"dbFile"`
	// Redis server address, for the redis backend.
	RedisAddr string `yaml:"redisAddr"`
	// Max entries held by the memory backend.
	MemorySize int `yaml:"memorySize"`
	// Default TTL in seconds for responses without max-age.
	TTLSeconds int `yaml:"ttlSeconds"`
	// Key prefix for this deployment.
	KeyPrefix string `yaml:"keyPrefix"`
	// Only cache requests not attributable to a logged-in identity.
	AnonymousOnly bool `yaml:"anonymousOnly"`
	// Timezone name to partition cache keys by, if any.
	Timezone string `yaml:"timezone"`
	// Partition cache keys by the Accept-Language request header.
	LocaleAware bool `yaml:"localeAware"`
	// Per-path Cache-Control rules applied before the store decision.
	Rules responsetransformer.Rules `yaml:"rules"`
}

func getConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}

func (c Config) ttl() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
