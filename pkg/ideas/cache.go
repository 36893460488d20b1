package ideas

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// WorkspaceCache keeps one Workspace per page view between requests and
// disposes workspaces that have been idle longer than the configured timeout.
// Views are identified by a client-chosen id, scoped to the user.
type WorkspaceCache struct {
	mu      sync.Mutex
	entries map[viewKey]*cacheEntry
	idle    time.Duration
	factory func(userID string) *Workspace
	now     func() time.Time
}

type viewKey struct {
	userID string
	viewID string
}

type cacheEntry struct {
	workspace *Workspace
	lastUsed  time.Time
}

// NewWorkspaceCache builds workspaces with factory on first use.
func NewWorkspaceCache(idle time.Duration, factory func(userID string) *Workspace) *WorkspaceCache {
	return &WorkspaceCache{
		entries: map[viewKey]*cacheEntry{},
		idle:    idle,
		factory: factory,
		now:     time.Now,
	}
}

// Get returns the workspace of the user's view, creating it if needed. An
// expired workspace is disposed and replaced. Without a view id the
// workspace lives for one request only and is not cached.
func (c *WorkspaceCache) Get(userID, viewID string) *Workspace {
	if viewID == "" {
		return c.factory(userID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := viewKey{userID: userID, viewID: viewID}
	now := c.now()
	if e, ok := c.entries[key]; ok {
		if !c.expired(e, now) {
			e.lastUsed = now
			return e.workspace
		}
		e.workspace.Dispose()
	}

	ws := c.factory(userID)
	c.entries[key] = &cacheEntry{workspace: ws, lastUsed: now}
	return ws
}

// Evict disposes and forgets every workspace of the user (on logout).
func (c *WorkspaceCache) Evict(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if key.userID == userID {
			e.workspace.Dispose()
			delete(c.entries, key)
		}
	}
}

// Sweep disposes idle workspaces and returns how many were removed.
func (c *WorkspaceCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		// a workspace with a call in flight is kept until the call returns
		if c.expired(e, now) && !e.workspace.Busy() {
			e.workspace.Dispose()
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (c *WorkspaceCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				zerolog.Ctx(ctx).Debug().Int("removed", n).Msg("swept idle workspaces")
			}
		}
	}
}

// Len returns the number of cached workspaces.
func (c *WorkspaceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close disposes every workspace.
func (c *WorkspaceCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.workspace.Dispose()
		delete(c.entries, key)
	}
}

func (c *WorkspaceCache) expired(e *cacheEntry, now time.Time) bool {
	return c.idle > 0 && now.Sub(e.lastUsed) > c.idle
}
