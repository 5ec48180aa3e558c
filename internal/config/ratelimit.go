package config

import (
    "strings"
    "time"

    "github.com/kelseyhightower/envconfig"
)

// Rate limit key strategies.  "caller" is the bearer token's subject
// (member:12, admin:3) or the client IP for anonymous requests.
const (
    RateKeyIP          = "ip"
    RateKeyIPRoute     = "ip_route"
    RateKeyCaller      = "caller"
    RateKeyCallerRoute = "caller_route"
)

type RateLimitConfig struct {
    Enabled        bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
    Capacity       int           `envconfig:"RATE_LIMIT_CAPACITY" default:"60"`
    RefillTokens   int           `envconfig:"RATE_LIMIT_REFILL_TOKENS" default:"1"`
    RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
    TTL            time.Duration `envconfig:"RATE_LIMIT_TTL" default:"10m"`
    KeyStrategy    string        `envconfig:"RATE_LIMIT_KEY_STRATEGY" default:"caller_route"`
    Prefix         string        `envconfig:"RATE_LIMIT_PREFIX" default:"rl"`
    Debug          bool          `envconfig:"RATE_LIMIT_DEBUG" default:"false"`
    Burst          int           `envconfig:"RATE_LIMIT_BURST" default:"-1"`
    RefillEvery    time.Duration `envconfig:"RATE_LIMIT_REFILL_EVERY" default:"0"`
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.  Malformed values
// fall back to the defaults instead of failing startup.
func LoadRateLimitConfig() RateLimitConfig {
    var def RateLimitConfig
    if err := envconfig.Process("", &def); err != nil {
        def = RateLimitConfig{Enabled: true, Capacity: 60, RefillTokens: 1, RefillInterval: time.Second, TTL: 10 * time.Minute, KeyStrategy: RateKeyCallerRoute, Prefix: "rl"}
    }
    return def.normalize()
}

func (def RateLimitConfig) normalize() RateLimitConfig {
    if def.Burst > 0 { def.Capacity = def.Burst }
    if def.RefillEvery > 0 {
        def.RefillTokens = 1
        def.RefillInterval = def.RefillEvery
    }
    if def.Capacity < 1 { def.Capacity = 1 }
    if def.RefillTokens < 1 { def.RefillTokens = 1 }
    if def.RefillInterval <= 0 { def.RefillInterval = time.Second }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL { def.TTL = minTTL }

    def.KeyStrategy = strings.ToLower(strings.TrimSpace(def.KeyStrategy))
    switch def.KeyStrategy {
    case RateKeyIP, RateKeyIPRoute, RateKeyCaller, RateKeyCallerRoute:
    default:
        def.KeyStrategy = RateKeyCallerRoute
    }
    return def
}
