package ideas

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/models"

	"github.com/rs/zerolog"
)

// Strategy decides when the collection reflects a mutation.
type Strategy int

const (
	// ApplyAfterConfirm changes the collection only after the store confirms.
	// A failed call leaves it untouched.
	ApplyAfterConfirm Strategy = iota
	// Optimistic changes the collection first and restores a snapshot if the
	// store rejects the call. Inserts always wait for the store-assigned id.
	Optimistic
)

// User-facing messages for intents rejected before dispatch.
const (
	MsgBusy          = "Another change is still being saved. Please wait."
	MsgConfirmDelete = "Please confirm that you want to delete this idea."
	MsgClosed        = "This view has been closed. Please reload."
)

// Workspace binds one page view's Collection to the Repository and handles
// the intents raised in that view. At most one mutating call is outstanding
// per workspace; a second intent arriving meanwhile is rejected, never
// queued. Separate views of the same user have separate workspaces, so their
// writes race and the last one wins.
type Workspace struct {
	userID     string
	repo       *Repository
	collection *Collection
	strategy   Strategy

	busy   atomic.Bool
	loaded atomic.Bool

	mu        sync.Mutex
	lastError string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithStrategy selects how mutations reach the collection.
func WithStrategy(s Strategy) Option {
	return func(w *Workspace) { w.strategy = s }
}

// NewWorkspace returns a workspace for userID.
func NewWorkspace(userID string, repo *Repository, opts ...Option) *Workspace {
	w := &Workspace{
		userID:     userID,
		repo:       repo,
		collection: NewCollection(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// UserID returns the owner of the workspace.
func (w *Workspace) UserID() string { return w.userID }

// Collection exposes the workspace's collection.
func (w *Workspace) Collection() *Collection { return w.collection }

// Busy reports whether a remote call is outstanding.
func (w *Workspace) Busy() bool { return w.busy.Load() }

// Loaded reports whether the collection holds a completed fetch.
func (w *Workspace) Loaded() bool { return w.loaded.Load() }

// LastError is the message produced by the most recent intent, or "" if it
// succeeded.
func (w *Workspace) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// Dispose tears the workspace down. Results of calls still in flight are
// discarded.
func (w *Workspace) Dispose() {
	w.collection.Dispose()
}

// begin claims the workspace for one remote call.
func (w *Workspace) begin() error {
	if w.collection.Disposed() {
		return apperr.Validation(MsgClosed)
	}
	if !w.busy.CompareAndSwap(false, true) {
		return apperr.Validation(MsgBusy)
	}
	return nil
}

func (w *Workspace) reject(ctx context.Context, intent string, err error) error {
	return w.record(ctx, intent, err)
}

func (w *Workspace) record(ctx context.Context, intent string, err error) error {
	w.mu.Lock()
	w.lastError = apperr.Message(err)
	w.mu.Unlock()

	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("intent", intent).
			Str("kind", apperr.KindOf(err).String()).
			Str("user_id", w.userID).
			Msg("idea intent failed")
	}
	return err
}

// run executes one mutating intent under the single-call guard. A rejected
// intent leaves the busy flag to the call that holds it.
func (w *Workspace) run(ctx context.Context, intent string, call func() error) error {
	if err := w.begin(); err != nil {
		return w.reject(ctx, intent, err)
	}
	defer w.busy.Store(false)
	return w.record(ctx, intent, recovered(ctx, intent, call))
}

// recovered converts a panic in call into a RemoteError so nothing escapes
// the intent handler.
func recovered(ctx context.Context, intent string, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Remote(errors.New("unexpected failure while saving"))
			zerolog.Ctx(ctx).Error().Interface("panic", r).Str("intent", intent).Msg("recovered in idea intent")
		}
	}()
	return call()
}

// Load fetches the user's ideas and replaces the collection. Loading changes
// nothing remotely, so it does not wait for or block a save in flight.
func (w *Workspace) Load(ctx context.Context) ([]models.Idea, error) {
	if w.collection.Disposed() {
		return nil, w.reject(ctx, "load", apperr.Validation(MsgClosed))
	}

	var ideas []models.Idea
	err := recovered(ctx, "load", func() error {
		fetched, err := w.repo.List(ctx, w.userID)
		if err != nil {
			return err
		}
		w.collection.ReplaceAll(fetched)
		w.loaded.Store(true)
		ideas = fetched
		return nil
	})
	if err != nil {
		return nil, w.record(ctx, "load", err)
	}
	return ideas, w.record(ctx, "load", nil)
}

// Ideas returns the visible subset of the collection.
func (w *Workspace) Ideas(f Filter) []models.Idea {
	return Visible(w.collection.Snapshot(), f)
}

// Create inserts an idea and prepends the confirmed row.
func (w *Workspace) Create(ctx context.Context, in models.NewIdea) (models.Idea, error) {
	in.UserID = w.userID
	var created models.Idea
	err := w.run(ctx, "create", func() error {
		idea, err := w.repo.Insert(ctx, in)
		if err != nil {
			return err
		}
		w.collection.ApplyInsert(idea)
		created = idea
		return nil
	})
	return created, err
}

// Update applies a partial update.
func (w *Workspace) Update(ctx context.Context, id string, patch models.IdeaPatch) (models.Idea, error) {
	var updated models.Idea
	err := w.run(ctx, "update", func() error {
		idea, err := w.update(ctx, id, patch)
		updated = idea
		return err
	})
	return updated, err
}

func (w *Workspace) update(ctx context.Context, id string, patch models.IdeaPatch) (models.Idea, error) {
	var snapshot []models.Idea
	if w.strategy == Optimistic {
		if _, err := ValidatePatch(patch); err != nil {
			return models.Idea{}, err
		}
		snapshot = w.collection.Snapshot()
		w.collection.ApplyUpdate(id, patch)
	}

	idea, err := w.repo.Update(ctx, w.userID, id, patch)
	if err != nil {
		if snapshot != nil {
			w.collection.Restore(snapshot)
		}
		return models.Idea{}, err
	}
	w.collection.Replace(idea)
	return idea, nil
}

// ToggleFavorite flips is_favorite on one idea.
func (w *Workspace) ToggleFavorite(ctx context.Context, id string) (models.Idea, error) {
	var updated models.Idea
	err := w.run(ctx, "toggle_favorite", func() error {
		current, err := w.current(ctx, id)
		if err != nil {
			return err
		}
		fav := !current.IsFavorite
		updated, err = w.update(ctx, id, models.IdeaPatch{IsFavorite: &fav})
		return err
	})
	return updated, err
}

// AddTag adds tag to an idea and saves the new tag list. A blank or duplicate
// tag changes nothing and dispatches no call.
func (w *Workspace) AddTag(ctx context.Context, id, tag string) (models.Idea, error) {
	return w.editTags(ctx, "add_tag", id, func(idea models.Idea) models.Idea {
		return AddTag(idea, tag)
	})
}

// RemoveTag removes tag from an idea and saves the new tag list.
func (w *Workspace) RemoveTag(ctx context.Context, id, tag string) (models.Idea, error) {
	return w.editTags(ctx, "remove_tag", id, func(idea models.Idea) models.Idea {
		return RemoveTag(idea, tag)
	})
}

func (w *Workspace) editTags(ctx context.Context, intent, id string, edit func(models.Idea) models.Idea) (models.Idea, error) {
	var result models.Idea
	err := w.run(ctx, intent, func() error {
		current, err := w.current(ctx, id)
		if err != nil {
			return err
		}
		edited := edit(current)
		if equalTags(current.Tags, edited.Tags) {
			result = current
			return nil
		}
		result, err = w.update(ctx, id, models.IdeaPatch{Tags: edited.Tags})
		return err
	})
	return result, err
}

// Delete removes an idea. Without confirmation nothing is dispatched.
func (w *Workspace) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return w.reject(ctx, "delete", apperr.Validation(MsgConfirmDelete))
	}
	return w.run(ctx, "delete", func() error {
		var snapshot []models.Idea
		if w.strategy == Optimistic {
			snapshot = w.collection.Snapshot()
			w.collection.ApplyRemove(id)
		}
		if err := w.repo.Remove(ctx, w.userID, id); err != nil {
			if snapshot != nil {
				w.collection.Restore(snapshot)
			}
			return err
		}
		w.collection.ApplyRemove(id)
		return nil
	})
}

// current returns the idea from the collection, fetching it when the
// collection does not hold it.
func (w *Workspace) current(ctx context.Context, id string) (models.Idea, error) {
	if idea, ok := w.collection.Get(id); ok {
		return idea, nil
	}
	return w.repo.Get(ctx, w.userID, id)
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
