package config

// This file defines a Redis client constructor for the application.  Redis is
// used for distributed rate limiting and HTTP response caching.  If connection
// fails during startup, the function returns nil and callers degrade
// gracefully by disabling caching and rate limiting.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/kelseyhightower/envconfig"
    "github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for Redis.  Addr takes precedence
// unless both Host and Port are set.
type RedisConfig struct {
    Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
    Host     string `envconfig:"REDIS_HOST"`
    Port     string `envconfig:"REDIS_PORT"`
    Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
    Password string `envconfig:"REDIS_PASSWORD"`
    DB       int    `envconfig:"REDIS_DB" default:"0"`
    TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
}

// LoadRedisConfig reads the REDIS_* variables.
func LoadRedisConfig() (RedisConfig, error) {
    var cfg RedisConfig
    err := envconfig.Process("", &cfg)
    return cfg, err
}

// Address resolves the effective host:port.
func (c RedisConfig) Address() string {
    if c.Host != "" && c.Port != "" {
        return c.Host + ":" + c.Port
    }
    if c.Addr == "" {
        return "localhost:6379"
    }
    return c.Addr
}

// NewRedisClient instantiates a Redis client from cfg.
// The returned client is nil if Redis is disabled or unreachable.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    if !cfg.Enabled {
        return nil
    }
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Address(),
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    // Ping the server with a short timeout.  Return nil on failure.
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
