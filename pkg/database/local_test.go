package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"content-planner-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *LocalDatabase {
	t.Helper()
	db, err := NewLocalDatabase(filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertIdea(t *testing.T, db DatabaseInterface, userID, title string, tags ...string) *models.Idea {
	t.Helper()
	idea, err := db.InsertIdea(context.Background(), models.NewIdea{
		UserID:      userID,
		Title:       title,
		ContentType: models.ContentBlog,
		Tags:        tags,
	}.WithDefaults())
	require.NoError(t, err)
	return idea
}

func TestLocalIdeaLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestLocal(t)

	idea := insertIdea(t, db, "u1", "First", "go", "writing")
	assert.NotEmpty(t, idea.ID)
	assert.Equal(t, "u1", idea.UserID)
	assert.Equal(t, models.StatusDraft, idea.Status)
	assert.Equal(t, models.PriorityMedium, idea.Priority)
	assert.Equal(t, []string{"go", "writing"}, idea.Tags)
	assert.Equal(t, models.ContentBlog, idea.ContentType)
	assert.False(t, idea.CreatedAt.IsZero())
	assert.Nil(t, idea.UpdatedAt)

	status := models.StatusCompleted
	fav := true
	updated, err := db.UpdateIdea(ctx, "u1", idea.ID, models.IdeaPatch{Status: &status, IsFavorite: &fav})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.True(t, updated.IsFavorite)
	assert.Equal(t, "First", updated.Title)
	assert.NotNil(t, updated.UpdatedAt)

	got, err := db.GetIdea(ctx, "u1", idea.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Status, got.Status)

	require.NoError(t, db.DeleteIdea(ctx, "u1", idea.ID))
	_, err = db.GetIdea(ctx, "u1", idea.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteIdea(ctx, "u1", idea.ID), ErrNotFound)
}

func TestLocalIdeasAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestLocal(t)

	mine := insertIdea(t, db, "u1", "Mine")
	insertIdea(t, db, "u2", "Theirs")

	ideas, err := db.ListIdeas(ctx, "u1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, mine.ID, ideas[0].ID)

	title := "stolen"
	_, err = db.UpdateIdea(ctx, "u2", mine.ID, models.IdeaPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteIdea(ctx, "u2", mine.ID), ErrNotFound)

	n, err := db.CountIdeas(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLocalListIdeasOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	db := newTestLocal(t)

	for _, title := range []string{"a", "b", "c"} {
		insertIdea(t, db, "u1", title)
	}

	ideas, err := db.ListIdeas(ctx, "u1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, ideas, 3)
	assert.Equal(t, "c", ideas[0].Title)
	assert.Equal(t, "a", ideas[2].Title)

	oldest, err := db.ListIdeas(ctx, "u1", ListOptions{OldestFirst: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, "a", oldest[0].Title)

	empty, err := db.ListIdeas(ctx, "nobody", ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLocalRejectsEmptyTitle(t *testing.T) {
	db := newTestLocal(t)
	_, err := db.InsertIdea(context.Background(), models.NewIdea{UserID: "u1"}.WithDefaults())
	assert.Error(t, err)
}

func TestLocalContentItems(t *testing.T) {
	ctx := context.Background()
	db := newTestLocal(t)

	idea := insertIdea(t, db, "u1", "Source", "x")
	when := time.Now().Add(48 * time.Hour)
	item, err := db.InsertContentItem(ctx, models.ContentItemFromIdea(*idea, &when))
	require.NoError(t, err)
	require.NotNil(t, item.IdeaID)
	assert.Equal(t, idea.ID, *item.IdeaID)
	assert.Equal(t, models.ContentStatusScheduled, item.Status)
	assert.Equal(t, []string{"x"}, item.Tags)

	_, err = db.InsertContentItem(ctx, models.NewContentItem{UserID: "u1", Title: "Loose", ContentType: models.ContentTweet})
	require.NoError(t, err)

	byIdea, err := db.ListContentItems(ctx, "u1", ContentFilter{IdeaID: idea.ID})
	require.NoError(t, err)
	assert.Len(t, byIdea, 1)

	n, err := db.CountScheduledBetween(ctx, "u1", time.Now(), time.Now().Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	archived := true
	_, err = db.UpdateContentItem(ctx, "u1", item.ID, models.ContentItemPatch{Archived: &archived})
	require.NoError(t, err)

	active, err := db.ListContentItems(ctx, "u1", ContentFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := db.ListContentItems(ctx, "u1", ContentFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	total, err := db.CountContentItems(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	require.NoError(t, db.DeleteContentItem(ctx, "u1", item.ID))
}

func TestLocalSwipeFiles(t *testing.T) {
	ctx := context.Background()
	db := newTestLocal(t)

	file, err := db.InsertSwipeFile(ctx, models.NewSwipeFile{UserID: "u1", Title: "Hook", URL: "https://example.com"})
	require.NoError(t, err)
	require.NotNil(t, file.URL)
	assert.Equal(t, "https://example.com", *file.URL)
	assert.Nil(t, file.Source)
	assert.Equal(t, []string{}, file.Tags)

	fav := true
	updated, err := db.UpdateSwipeFile(ctx, "u1", file.ID, models.SwipeFilePatch{Favorite: &fav, Tags: []string{"hooks"}})
	require.NoError(t, err)
	assert.True(t, updated.Favorite)
	assert.Equal(t, []string{"hooks"}, updated.Tags)

	files, err := db.ListSwipeFiles(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, db.DeleteSwipeFile(ctx, "u1", file.ID))
	assert.ErrorIs(t, db.DeleteSwipeFile(ctx, "u1", file.ID), ErrNotFound)
}

func TestLocalProfilesAndUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestLocal(t)

	_, err := db.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := db.UpsertProfile(ctx, models.Profile{ID: "u1", Email: "a@b.c", FullName: "Ada"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.UpsertProfile(ctx, models.Profile{ID: "u1", Email: "a@b.c", FullName: "Ada L."})
	require.NoError(t, err)
	assert.False(t, created)

	profile, err := db.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", profile.FullName)
	assert.NotNil(t, profile.UpdatedAt)

	user := &models.User{Email: "a@b.c", Password: "hash"}
	require.NoError(t, db.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Error(t, db.CreateUser(ctx, &models.User{Email: "a@b.c", Password: "x"}))

	got, err := db.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.Password)

	_, err = db.GetUserByEmail(ctx, "missing@b.c")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, db.HealthCheck(ctx))
}

func TestNewDatabaseSelectsLocal(t *testing.T) {
	db, err := NewDatabase(context.Background(), DatabaseConfig{
		UseLocalDB:  true,
		LocalDBPath: filepath.Join(t.TempDir(), "x.db"),
	})
	require.NoError(t, err)
	defer db.Close()
	assert.IsType(t, &LocalDatabase{}, db)

	_, err = NewDatabase(context.Background(), DatabaseConfig{})
	assert.Error(t, err)
}
