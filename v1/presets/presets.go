// Package presets wires common coordinator configurations together so a
// scheduler can get a working setup in one call.
package presets

import (
	"github.com/testforge/reslock/v1/coord"
	"github.com/testforge/reslock/v1/coordinator"
)

// RedisOptions configures the connection to the Redis coordination service.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a Coordinator backed by a Redis coordination service.
// This is the standard multi-process setup: Redis arbitrates leases across
// every cooperating orchestrator process.
func NewRedis(opts RedisOptions, cfg coordinator.Config) *coordinator.Coordinator {
	client := coord.NewRedis(coord.RedisOptions{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return coordinator.New(client, cfg)
}

// NewStandalone creates a Coordinator that runs entirely in-process, with
// full lease semantics but no external dependencies. Useful for local
// development and single-process runs.
func NewStandalone(cfg coordinator.Config) *coordinator.Coordinator {
	return coordinator.New(coord.NewMemory(), cfg)
}
