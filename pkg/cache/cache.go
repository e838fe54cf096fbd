// Package cache stores measurement graphs and rendered artifacts between
// runs.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entry files under a directory, used by the CLI
//   - [RedisCache]: a shared Redis instance, for several machines sweeping
//     the same testbed data
//   - [NullCache]: stores nothing, for --no-cache
//
// Keys come from a [Keyer] so that backends never interpret them.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// GraphKey identifies the measurement graph of a testbed site and
	// experiment name.
	GraphKey(site, name string) string

	// RenderKey identifies a rendered topology of a sweep table.
	RenderKey(tableID string, rank int, format string) string
}

// DefaultKeyer produces plain keys, optionally under a prefix.
type DefaultKeyer struct {
	prefix string
}

// NewDefaultKeyer creates a keyer without prefix.
func NewDefaultKeyer() *DefaultKeyer { return &DefaultKeyer{} }

// NewScopedKeyer creates a keyer whose keys all start with prefix. Shared
// backends such as Redis use it to keep a namespace per application.
func NewScopedKeyer(prefix string) *DefaultKeyer { return &DefaultKeyer{prefix: prefix} }

// GraphKey returns "graph:<site>:<name>".
func (k *DefaultKeyer) GraphKey(site, name string) string {
	return fmt.Sprintf("%sgraph:%s:%s", k.prefix, site, name)
}

// RenderKey returns "render:<hash>" over the table ID, rank and format.
func (k *DefaultKeyer) RenderKey(tableID string, rank int, format string) string {
	return k.prefix + hashKey("render", tableID, rank, format)
}

var _ Keyer = (*DefaultKeyer)(nil)
