// Package cache stores solver results keyed by geometry and inputs.
//
// Solving is cheap but sweeps over a whole actuator range and compiled
// specs are worth keeping between CLI runs and across server replicas.
// Backends implement [Cache]; [Keyer] derives stable keys so every backend
// agrees on what a key means.
//
// Backends:
//
//   - [FileCache] for the CLI (one JSON file per entry under the XDG cache dir)
//   - [RedisCache] for servers sharing results
//   - [NullCache] when caching is disabled
package cache

import (
	"context"
	"time"
)

// Entry lifetimes.
const (
	TTLSolve = 24 * time.Hour
	TTLSweep = 7 * 24 * time.Hour
	TTLSpec  = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A zero ttl keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys. Geometry is a hash of everything that shapes
// the solve: leg geometry, leg names and hip spacing.
type Keyer interface {
	SolveKey(geometry string, opts SolveKeyOpts) string
	SweepKey(geometry string, opts SweepKeyOpts) string
	SpecKey(geometry string, opts SpecKeyOpts) string
}

// SolveKeyOpts identifies one solve of every leg.
type SolveKeyOpts struct {
	Angles map[string][2]float64 `json:"angles"`
	Clamp  bool                  `json:"clamp"`
}

// SweepKeyOpts identifies one actuator sweep.
type SweepKeyOpts struct {
	Leg   string  `json:"leg"`
	Axis  string  `json:"axis"`
	Other float64 `json:"other"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Step  float64 `json:"step"`
}

// SpecKeyOpts identifies a compiled spec. Body hashes the torso, ground
// and mass parameters written into it.
type SpecKeyOpts struct {
	Angles map[string][2]float64 `json:"angles"`
	Body   string                `json:"body"`
}

// DefaultKeyer hashes options into "<kind>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SolveKey(geometry string, opts SolveKeyOpts) string {
	return hashKey("solve", geometry, opts)
}

func (DefaultKeyer) SweepKey(geometry string, opts SweepKeyOpts) string {
	return hashKey("sweep", geometry, opts)
}

func (DefaultKeyer) SpecKey(geometry string, opts SpecKeyOpts) string {
	return hashKey("spec", geometry, opts)
}
