// Package caching keeps query results in memory so that repeated searches
// do not hit the server again.
package caching

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultExpiry is how long cached objects live when Config.Expiry is zero.
const DefaultExpiry = 10 * time.Minute

// DefaultMaxQueries bounds the number of remembered query responses.
const DefaultMaxQueries = 1024

// Config holds cache configuration
type Config struct {
	Expiry     time.Duration // Time after which cached objects expire (default: 10m, negative: never)
	MaxQueries int           // Number of query responses kept by a QueryCache (default: 1024)
	Clock      clock.Clock   // Time source for expiry (default: wall clock)
	Logger     *slog.Logger  // Logger for cache activity (default: slog.Default())
}

func (c Config) withDefaults() Config {
	if c.Expiry == 0 {
		c.Expiry = DefaultExpiry
	}
	if c.MaxQueries <= 0 {
		c.MaxQueries = DefaultMaxQueries
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
