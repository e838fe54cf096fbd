// Package observability lets a binary watch sweeps, cache lookups and
// server requests without the libraries depending on a metrics stack.
//
// Each concern has a hook interface and a process-wide slot holding the
// current implementation. Slots start out as no-ops; the command line swaps
// in a progress spinner during sweeps, tests swap in recorders:
//
//	prev := observability.Sweep()
//	observability.SetSweepHooks(spinner)
//	defer observability.SetSweepHooks(prev)
package observability

import (
	"context"
	"sync"
	"time"
)

// SweepHooks receives events from bound sweeps. OnRunComplete is called
// from worker goroutines and must be safe for concurrent use.
type SweepHooks interface {
	OnSweepStart(ctx context.Context, sweepID string, tasks int)
	OnRunComplete(ctx context.Context, bound string, root int, duration time.Duration, err error)
	OnSweepComplete(ctx context.Context, sweepID string, rows, failures int, duration time.Duration)
}

// CacheHooks receives lookup outcomes per key type ("graph", "render").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// ServerHooks receives one event per served request, keyed by route
// pattern rather than raw path.
type ServerHooks interface {
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

type NoopSweepHooks struct{}

func (NoopSweepHooks) OnSweepStart(context.Context, string, int)                        {}
func (NoopSweepHooks) OnRunComplete(context.Context, string, int, time.Duration, error) {}
func (NoopSweepHooks) OnSweepComplete(context.Context, string, int, int, time.Duration) {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

type registry struct {
	mu     sync.RWMutex
	sweep  SweepHooks
	cache  CacheHooks
	server ServerHooks
}

var hooks = newRegistry()

func newRegistry() *registry {
	return &registry{sweep: NoopSweepHooks{}, cache: NoopCacheHooks{}, server: NoopServerHooks{}}
}

// SetSweepHooks installs h. A nil h leaves the current hooks in place.
func SetSweepHooks(h SweepHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.sweep = h
	hooks.mu.Unlock()
}

// SetCacheHooks installs h. A nil h leaves the current hooks in place.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.cache = h
	hooks.mu.Unlock()
}

// SetServerHooks installs h. A nil h leaves the current hooks in place.
func SetServerHooks(h ServerHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.server = h
	hooks.mu.Unlock()
}

func Sweep() SweepHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.sweep
}

func Cache() CacheHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.cache
}

func Server() ServerHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.server
}

// Reset puts the no-op hooks back in every slot.
func Reset() {
	fresh := newRegistry()
	hooks.mu.Lock()
	hooks.sweep, hooks.cache, hooks.server = fresh.sweep, fresh.cache, fresh.server
	hooks.mu.Unlock()
}
