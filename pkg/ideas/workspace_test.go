package ideas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T, opts ...Option) (*Workspace, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	store.seed(
		models.Idea{ID: "A", UserID: "u1", Title: "Launch blog", Status: models.StatusDraft, Priority: models.PriorityHigh, Tags: []string{"go"}},
		models.Idea{ID: "B", UserID: "u1", Title: "Tweet thread", Status: models.StatusCompleted, Priority: models.PriorityLow, IsFavorite: true},
		models.Idea{ID: "Z", UserID: "u2", Title: "Not mine"},
	)
	ws := NewWorkspace("u1", NewRepository(store), opts...)
	_, err := ws.Load(context.Background())
	require.NoError(t, err)
	return ws, store
}

func TestWorkspaceLoadIsScopedAndNewestFirst(t *testing.T) {
	ws, _ := newWorkspace(t)
	assert.True(t, ws.Loaded())
	assert.Equal(t, []string{"B", "A"}, ids(ws.Ideas(Filter{})))
	assert.Equal(t, []string{"A"}, ids(ws.Ideas(Filter{Query: "blog"})))
	assert.Empty(t, ws.LastError())
}

func TestWorkspaceCreatePrepends(t *testing.T) {
	ws, _ := newWorkspace(t)

	idea, err := ws.Create(context.Background(), validNew("Fresh"))
	require.NoError(t, err)
	assert.Equal(t, "u1", idea.UserID)
	assert.Equal(t, []string{idea.ID, "B", "A"}, ids(ws.Ideas(Filter{})))
}

func TestWorkspaceFailedInsertLeavesStateUnchanged(t *testing.T) {
	for _, strategy := range []Strategy{ApplyAfterConfirm, Optimistic} {
		ws, store := newWorkspace(t, WithStrategy(strategy))
		before := ws.Collection().Snapshot()

		store.failWith = errors.New("insert failed: network unreachable")
		_, err := ws.Create(context.Background(), validNew("Fresh"))
		require.Error(t, err)

		if diff := cmp.Diff(before, ws.Collection().Snapshot()); diff != "" {
			t.Errorf("strategy %d changed the collection (-before +after):\n%s", strategy, diff)
		}
		assert.NotEmpty(t, ws.LastError())
		assert.False(t, ws.Busy())
	}
}

func TestWorkspaceValidationFailureRecordsMessage(t *testing.T) {
	ws, store := newWorkspace(t)
	calls := store.Calls()

	_, err := ws.Create(context.Background(), models.NewIdea{Title: ""})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "title is required", ws.LastError())
	assert.Equal(t, calls, store.Calls())

	_, err = ws.Create(context.Background(), validNew("ok"))
	require.NoError(t, err)
	assert.Empty(t, ws.LastError(), "success clears the previous message")
}

func TestWorkspaceUpdateAppliesConfirmedRow(t *testing.T) {
	ws, _ := newWorkspace(t)
	done := models.StatusCompleted

	idea, err := ws.Update(context.Background(), "A", models.IdeaPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, idea.Status)

	got, ok := ws.Collection().Get("A")
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.NotNil(t, got.UpdatedAt)
}

func TestWorkspaceUpdateFailure(t *testing.T) {
	for _, strategy := range []Strategy{ApplyAfterConfirm, Optimistic} {
		ws, store := newWorkspace(t, WithStrategy(strategy))
		before := ws.Collection().Snapshot()
		store.failWith = errors.New("boom")

		title := "changed"
		_, err := ws.Update(context.Background(), "A", models.IdeaPatch{Title: &title})
		assert.True(t, apperr.Is(err, apperr.KindRemote))
		assert.Equal(t, "boom", ws.LastError())

		if diff := cmp.Diff(before, ws.Collection().Snapshot()); diff != "" {
			t.Errorf("strategy %d left a failed update applied (-before +after):\n%s", strategy, diff)
		}
	}
}

func TestWorkspaceOptimisticAppliesBeforeConfirmation(t *testing.T) {
	ws, store := newWorkspace(t, WithStrategy(Optimistic))
	store.block = make(chan struct{})

	title := "optimistic"
	done := make(chan error, 1)
	go func() {
		_, err := ws.Update(context.Background(), "A", models.IdeaPatch{Title: &title})
		done <- err
	}()

	require.Eventually(t, func() bool {
		got, _ := ws.Collection().Get("A")
		return got.Title == "optimistic"
	}, time.Second, 5*time.Millisecond)

	close(store.block)
	require.NoError(t, <-done)
}

func TestWorkspaceRejectsConcurrentIntentInSameView(t *testing.T) {
	ws, store := newWorkspace(t)
	store.blockWrites = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = ws.ToggleFavorite(context.Background(), "A")
	}()

	require.Eventually(t, ws.Busy, time.Second, 5*time.Millisecond)

	_, err := ws.Create(context.Background(), validNew("second"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, MsgBusy, ws.LastError())
	assert.True(t, ws.Busy(), "a rejected intent must not release the first call")

	list, err := ws.Load(context.Background())
	require.NoError(t, err, "reloading does not wait for the save in flight")
	assert.Len(t, list, 2)
	assert.True(t, ws.Busy())

	close(store.blockWrites)
	wg.Wait()
	assert.False(t, ws.Busy())

	got, _ := ws.Collection().Get("A")
	assert.True(t, got.IsFavorite)
}

func TestWorkspaceSeparateViewsRace(t *testing.T) {
	first, store := newWorkspace(t)
	second := NewWorkspace("u1", first.repo)
	_, err := second.Load(context.Background())
	require.NoError(t, err)
	store.blockWrites = make(chan struct{})

	titles := []string{"from first tab", "from second tab"}
	var wg sync.WaitGroup
	for i, ws := range []*Workspace{first, second} {
		wg.Add(1)
		go func(ws *Workspace, title string) {
			defer wg.Done()
			_, err := ws.Update(context.Background(), "A", models.IdeaPatch{Title: &title})
			assert.NoError(t, err)
		}(ws, titles[i])
	}

	require.Eventually(t, func() bool { return first.Busy() && second.Busy() }, time.Second, 5*time.Millisecond,
		"a save in one view must not block another view of the same user")
	assert.Empty(t, first.LastError())
	assert.Empty(t, second.LastError())

	close(store.blockWrites)
	wg.Wait()

	stored, err := first.repo.Get(context.Background(), "u1", "A")
	require.NoError(t, err)
	assert.Contains(t, titles, stored.Title, "the last write wins")
}

func TestWorkspaceToggleFavorite(t *testing.T) {
	ws, _ := newWorkspace(t)

	idea, err := ws.ToggleFavorite(context.Background(), "B")
	require.NoError(t, err)
	assert.False(t, idea.IsFavorite)
	assert.Empty(t, ws.Ideas(Filter{FavoritesOnly: true}))

	_, err = ws.ToggleFavorite(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, apperr.MsgNotFound, ws.LastError())
}

func TestWorkspaceTags(t *testing.T) {
	ws, store := newWorkspace(t)

	idea, err := ws.AddTag(context.Background(), "A", " writing ")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "writing"}, idea.Tags)

	calls := store.Calls()
	idea, err = ws.AddTag(context.Background(), "A", "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "writing"}, idea.Tags)
	assert.Equal(t, calls, store.Calls(), "duplicate tag must not dispatch")

	idea, err = ws.RemoveTag(context.Background(), "A", "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"writing"}, idea.Tags)

	got, _ := ws.Collection().Get("A")
	assert.Equal(t, []string{"writing"}, got.Tags)
}

func TestWorkspaceDeleteNeedsConfirmation(t *testing.T) {
	ws, store := newWorkspace(t)
	calls := store.Calls()

	err := ws.Delete(context.Background(), "A", false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, MsgConfirmDelete, ws.LastError())
	assert.Equal(t, calls, store.Calls())
	assert.Equal(t, 2, ws.Collection().Len())

	require.NoError(t, ws.Delete(context.Background(), "A", true))
	assert.Equal(t, []string{"B"}, ids(ws.Ideas(Filter{})))
}

func TestWorkspaceOptimisticDeleteRollsBack(t *testing.T) {
	ws, store := newWorkspace(t, WithStrategy(Optimistic))
	store.failWith = errors.New("gone away")

	err := ws.Delete(context.Background(), "A", true)
	assert.Error(t, err)
	assert.Equal(t, []string{"B", "A"}, ids(ws.Ideas(Filter{})))
}

func TestWorkspaceDisposedDiscardsLateResults(t *testing.T) {
	ws, store := newWorkspace(t)
	store.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := ws.Create(context.Background(), validNew("late"))
		done <- err
	}()
	require.Eventually(t, ws.Busy, time.Second, 5*time.Millisecond)

	ws.Dispose()
	close(store.block)
	require.NoError(t, <-done)
	assert.Equal(t, 0, ws.Collection().Len())

	_, err := ws.Load(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, MsgClosed, ws.LastError())
}
