package ideas

import (
	"sync"

	"content-planner-backend/pkg/models"
)

// Collection is the in-memory, newest-first list of one user's ideas. The
// remote store is the source of truth; the collection only changes after the
// store has confirmed a mutation (or, under the Optimistic strategy, before
// the call with a snapshot to restore on failure).
//
// Once disposed, every mutation is ignored so late results cannot touch a
// torn-down view.
type Collection struct {
	mu       sync.Mutex
	ideas    []models.Idea
	disposed bool
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{ideas: []models.Idea{}}
}

// ReplaceAll swaps in the result of a full fetch. Nothing is merged.
func (c *Collection) ReplaceAll(ideas []models.Idea) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.ideas = cloneIdeas(ideas)
}

// ApplyInsert prepends idea.
func (c *Collection) ApplyInsert(idea models.Idea) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	next := make([]models.Idea, 0, len(c.ideas)+1)
	next = append(next, idea.Clone())
	c.ideas = append(next, c.ideas...)
}

// ApplyUpdate merges patch into the idea with the given id. An absent id is
// a silent no-op; it may have been deleted from another tab.
func (c *Collection) ApplyUpdate(id string, patch models.IdeaPatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false
	}
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.ideas[i] = patch.Apply(c.ideas[i])
	return true
}

// Replace swaps in the store's confirmed row for idea.ID. An absent id is a
// silent no-op.
func (c *Collection) Replace(idea models.Idea) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false
	}
	i := c.index(idea.ID)
	if i < 0 {
		return false
	}
	c.ideas[i] = idea.Clone()
	return true
}

// ApplyRemove drops the idea with the given id.
func (c *Collection) ApplyRemove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false
	}
	i := c.index(id)
	if i < 0 {
		return false
	}
	next := make([]models.Idea, 0, len(c.ideas)-1)
	next = append(next, c.ideas[:i]...)
	c.ideas = append(next, c.ideas[i+1:]...)
	return true
}

// Get returns a copy of the idea with the given id.
func (c *Collection) Get(id string) (models.Idea, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return models.Idea{}, false
	}
	return c.ideas[i].Clone(), true
}

// Snapshot returns a deep copy of the current ideas.
func (c *Collection) Snapshot() []models.Idea {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneIdeas(c.ideas)
}

// Restore puts back a snapshot taken before an optimistic mutation.
func (c *Collection) Restore(snapshot []models.Idea) {
	c.ReplaceAll(snapshot)
}

// Len returns the number of ideas held.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ideas)
}

// Dispose tears the collection down.
func (c *Collection) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.ideas = nil
}

// Disposed reports whether Dispose has been called.
func (c *Collection) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func (c *Collection) index(id string) int {
	for i := range c.ideas {
		if c.ideas[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneIdeas(ideas []models.Idea) []models.Idea {
	out := make([]models.Idea, len(ideas))
	for i := range ideas {
		out[i] = ideas[i].Clone()
	}
	return out
}
