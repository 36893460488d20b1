package ideas

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNew(title string) models.NewIdea {
	return models.NewIdea{UserID: "u1", Title: title, ContentType: models.ContentBlog}
}

func TestRepositoryInsertValidation(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store)
	ctx := context.Background()

	tests := []struct {
		name string
		in   models.NewIdea
		kind apperr.Kind
	}{
		{"missing title", models.NewIdea{UserID: "u1", Title: "  ", ContentType: models.ContentBlog}, apperr.KindValidation},
		{"missing content type", models.NewIdea{UserID: "u1", Title: "t"}, apperr.KindValidation},
		{"unknown content type", models.NewIdea{UserID: "u1", Title: "t", ContentType: "fax"}, apperr.KindValidation},
		{"missing user", models.NewIdea{Title: "t", ContentType: models.ContentBlog}, apperr.KindAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Insert(ctx, tt.in)
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}
	assert.Zero(t, store.Calls(), "invalid input must not reach the store")
}

func TestRepositoryInsertFillsDefaults(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store)

	in := validNew("  Spaced title ")
	in.Tags = []string{"a", " a", ""}
	idea, err := repo.Insert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Spaced title", idea.Title)
	assert.Equal(t, models.StatusDraft, idea.Status)
	assert.Equal(t, models.PriorityMedium, idea.Priority)
	assert.False(t, idea.IsFavorite)
	assert.Equal(t, []string{"a"}, idea.Tags)
	assert.NotEmpty(t, idea.ID)
}

func TestRepositoryNormalizesStoreErrors(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		kind  apperr.Kind
	}{
		{"not found", database.ErrNotFound, apperr.KindNotFound},
		{"unauthorized", &database.PostgrestError{Status: 401, Message: "JWT expired"}, apperr.KindAuth},
		{"transport", errors.New("dial tcp: connection refused"), apperr.KindRemote},
		{"deadline", context.DeadlineExceeded, apperr.KindRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{failWith: tt.cause}
			repo := NewRepository(store)

			_, err := repo.List(context.Background(), "u1")
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
			assert.ErrorIs(t, err, tt.cause)
			assert.NotEmpty(t, apperr.Message(err))
		})
	}
}

func TestRepositoryRemoteMessageIsVerbatim(t *testing.T) {
	store := &fakeStore{failWith: errors.New("duplicate key value violates unique constraint")}
	_, err := NewRepository(store).Insert(context.Background(), validNew("t"))
	assert.Equal(t, "duplicate key value violates unique constraint", apperr.Message(err))
}

func TestRepositoryUpdateAndRemove(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store)
	ctx := context.Background()

	idea, err := repo.Insert(ctx, validNew("t"))
	require.NoError(t, err)

	_, err = repo.Update(ctx, "u1", idea.ID, models.IdeaPatch{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	blank := " "
	_, err = repo.Update(ctx, "u1", idea.ID, models.IdeaPatch{Title: &blank})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	high := models.PriorityHigh
	updated, err := repo.Update(ctx, "u1", idea.ID, models.IdeaPatch{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = repo.Update(ctx, "someone-else", idea.ID, models.IdeaPatch{Priority: &high})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, repo.Remove(ctx, "u1", idea.ID))
	assert.True(t, apperr.Is(repo.Remove(ctx, "u1", idea.ID), apperr.KindNotFound))

	_, err = repo.Get(ctx, "u1", idea.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRepositoryAgainstLocalStore(t *testing.T) {
	store, err := database.NewLocalDatabase(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	defer store.Close()

	repo := NewRepository(store)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three", "four", "five", "six"} {
		_, err := repo.Insert(ctx, validNew(title))
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "six", all[0].Title)

	recent, err := repo.Recent(ctx, "u1", RecentLimit)
	require.NoError(t, err)
	assert.Len(t, recent, RecentLimit)

	n, err := repo.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = repo.List(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}
