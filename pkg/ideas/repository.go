// Package ideas holds the planner's idea workflow: the repository adapter over
// the remote store, the in-memory collection mirroring a user's ideas, the
// filter engine and tag editor, and the per-user workspace that turns intents
// into exactly one remote call each.
package ideas

import (
	"context"
	"errors"
	"strings"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/models"
)

// RecentLimit is the number of ideas shown on the dashboard.
const RecentLimit = 5

// Repository adapts the remote store's ideas table. Every failure it returns
// is an *apperr.Error. Nothing is retried.
type Repository struct {
	store database.DatabaseInterface
}

// NewRepository wraps store.
func NewRepository(store database.DatabaseInterface) *Repository {
	return &Repository{store: store}
}

// List returns the user's ideas, newest created first.
func (r *Repository) List(ctx context.Context, userID string) ([]models.Idea, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ideas, err := r.store.ListIdeas(ctx, userID, database.ListOptions{})
	if err != nil {
		return nil, normalize(err)
	}
	return ideas, nil
}

// Recent returns at most n of the user's newest ideas.
func (r *Repository) Recent(ctx context.Context, userID string, n int) ([]models.Idea, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ideas, err := r.store.ListIdeas(ctx, userID, database.ListOptions{Limit: n})
	if err != nil {
		return nil, normalize(err)
	}
	return ideas, nil
}

// Count returns how many ideas the user has.
func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	n, err := r.store.CountIdeas(ctx, userID)
	return n, normalize(err)
}

// Get returns one idea. An absent or foreign id is a NotFoundError.
func (r *Repository) Get(ctx context.Context, userID, id string) (models.Idea, error) {
	if err := requireUser(userID); err != nil {
		return models.Idea{}, err
	}
	idea, err := r.store.GetIdea(ctx, userID, id)
	if err != nil {
		return models.Idea{}, normalize(err)
	}
	return *idea, nil
}

// Insert validates and creates an idea. The store assigns id and created_at.
func (r *Repository) Insert(ctx context.Context, in models.NewIdea) (models.Idea, error) {
	in, err := ValidateNew(in)
	if err != nil {
		return models.Idea{}, err
	}
	idea, err := r.store.InsertIdea(ctx, in)
	if err != nil {
		return models.Idea{}, normalize(err)
	}
	return *idea, nil
}

// Update applies a partial update and returns the confirmed row.
func (r *Repository) Update(ctx context.Context, userID, id string, patch models.IdeaPatch) (models.Idea, error) {
	if err := requireUser(userID); err != nil {
		return models.Idea{}, err
	}
	patch, err := ValidatePatch(patch)
	if err != nil {
		return models.Idea{}, err
	}
	idea, err := r.store.UpdateIdea(ctx, userID, id, patch)
	if err != nil {
		return models.Idea{}, normalize(err)
	}
	return *idea, nil
}

// Remove deletes an idea.
func (r *Repository) Remove(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return normalize(r.store.DeleteIdea(ctx, userID, id))
}

// ValidateNew checks the required fields and fills defaults.
func ValidateNew(in models.NewIdea) (models.NewIdea, error) {
	if err := requireUser(in.UserID); err != nil {
		return in, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, apperr.Validation("title is required")
	}
	if in.ContentType == "" {
		return in, apperr.Validation("content type is required")
	}
	if !in.ContentType.Valid() {
		return in, apperr.Validation("unknown content type %q", in.ContentType)
	}
	in = in.WithDefaults()
	if !in.Status.Valid() {
		return in, apperr.Validation("invalid status")
	}
	if !in.Priority.Valid() {
		return in, apperr.Validation("invalid priority")
	}
	in.Tags = NormalizeTags(in.Tags)
	return in, nil
}

// ValidatePatch rejects empty patches and malformed fields.
func ValidatePatch(p models.IdeaPatch) (models.IdeaPatch, error) {
	if p.Empty() {
		return p, apperr.Validation("nothing to update")
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return p, apperr.Validation("title is required")
		}
		p.Title = &title
	}
	if p.Status != nil && !p.Status.Valid() {
		return p, apperr.Validation("invalid status")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return p, apperr.Validation("invalid priority")
	}
	if p.ContentType != nil && !p.ContentType.Valid() {
		return p, apperr.Validation("unknown content type %q", *p.ContentType)
	}
	if p.Tags != nil {
		p.Tags = NormalizeTags(p.Tags)
	}
	return p, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return apperr.Auth(errors.New("no user id"))
	}
	return nil
}

// normalize maps store errors onto the user-facing kinds.
func normalize(err error) error {
	return database.AppError(err)
}
