// Package risk gates and sizes trade signals per user: it validates a
// proposal against the user's risk profile and exposure limits, computes
// the position size, and scores the residual risk.
package risk

import (
	"context"
	"fmt"
	"sync"

	"signal-systemv1/internal/model"
)

// Risk levels understood by the default profiles.
const (
	LevelConservative = "conservative"
	LevelBalanced     = "balanced"
	LevelAggressive   = "aggressive"
)

// ProfileCache caches risk profiles per user after first load. Entries are
// passive snapshots: they are never invalidated automatically, and callers
// needing freshness must bypass the cache. Staleness costs at most one
// mis-sized trade, never corruption.
type ProfileCache struct {
	provider model.RiskProfileProvider

	mu       sync.RWMutex
	profiles map[string]model.RiskProfileSnapshot
}

// NewProfileCache wraps a provider with a per-user cache.
func NewProfileCache(provider model.RiskProfileProvider) *ProfileCache {
	return &ProfileCache{
		provider: provider,
		profiles: make(map[string]model.RiskProfileSnapshot),
	}
}

// Get returns the cached profile for userID, loading it on first use.
func (c *ProfileCache) Get(ctx context.Context, userID string) (model.RiskProfileSnapshot, error) {
	c.mu.RLock()
	p, ok := c.profiles[userID]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}
	return c.Refresh(ctx, userID)
}

// Refresh bypasses the cache, reloads the profile, and stores the result.
func (c *ProfileCache) Refresh(ctx context.Context, userID string) (model.RiskProfileSnapshot, error) {
	p, err := c.provider.GetRiskProfile(ctx, userID)
	if err != nil {
		return model.RiskProfileSnapshot{}, fmt.Errorf("risk profile load: %w", err)
	}
	c.mu.Lock()
	c.profiles[userID] = p
	c.mu.Unlock()
	return p, nil
}

// Invalidate drops a user's cached profile.
func (c *ProfileCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.profiles, userID)
	c.mu.Unlock()
}
