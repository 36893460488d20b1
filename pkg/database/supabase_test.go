package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"content-planner-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// newTestSupabase starts a PostgREST stand-in that records every request and
// replies with the handler's status and body.
func newTestSupabase(t *testing.T, reply func(r *http.Request) (int, string, http.Header)) (*SupabaseDatabase, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		status, payload, header := reply(r)
		for k, v := range header {
			w.Header()[k] = v
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)

	db := NewSupabaseDatabase(srv.URL, "anon-key", "")
	db.SetHTTPClient(srv.Client())
	return db, &seen
}

const ideaRow = `{"id":"i1","user_id":"u1","title":"Hello","description":null,"content":null,
	"status":"draft","priority":"high","is_favorite":false,"content_type":"tweet",
	"tags":["a"],"notes":null,"created_at":"2024-01-02T03:04:05Z","updated_at":null}`

func TestSupabaseListIdeasScopesToUser(t *testing.T) {
	db, seen := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusOK, "[" + ideaRow + "]", nil
	})

	ctx := WithAccessToken(context.Background(), "user-token")
	ideas, err := db.ListIdeas(ctx, "u1", ListOptions{Limit: 5})
	require.NoError(t, err)
	require.Len(t, ideas, 1)

	assert.Equal(t, "Hello", ideas[0].Title)
	assert.Equal(t, models.StatusDraft, ideas[0].Status)
	assert.Equal(t, models.PriorityHigh, ideas[0].Priority)
	assert.Equal(t, models.ContentType("tweet"), ideas[0].ContentType)

	req := (*seen)[0]
	assert.Equal(t, "/rest/v1/ideas", req.Path)
	assert.Contains(t, req.Query, "user_id=eq.u1")
	assert.Contains(t, req.Query, "order=created_at.desc")
	assert.Contains(t, req.Query, "limit=5")
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
}

func TestSupabaseListIdeasEmpty(t *testing.T) {
	db, _ := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusOK, "[]", nil
	})

	ideas, err := db.ListIdeas(context.Background(), "u1", ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, ideas)
	assert.Empty(t, ideas)
}

func TestSupabaseInsertIdeaSendsRow(t *testing.T) {
	db, seen := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusCreated, "[" + ideaRow + "]", nil
	})

	in := models.NewIdea{UserID: "u1", Title: "Hello", Tags: []string{"a"}}.WithDefaults()
	idea, err := db.InsertIdea(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "i1", idea.ID)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "return=representation", req.Header.Get("Prefer"))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0]["user_id"])
	assert.Equal(t, "draft", rows[0]["status"])
	assert.Equal(t, "medium", rows[0]["priority"])
}

func TestSupabaseUpdateMissingRowIsNotFound(t *testing.T) {
	db, seen := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusOK, "[]", nil
	})

	fav := true
	_, err := db.UpdateIdea(context.Background(), "u1", "missing", models.IdeaPatch{IsFavorite: &fav})
	assert.ErrorIs(t, err, ErrNotFound)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Contains(t, req.Query, "id=eq.missing")
	assert.Contains(t, req.Query, "user_id=eq.u1")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, true, body["is_favorite"])
	assert.Contains(t, body, "updated_at")
	assert.NotContains(t, body, "title")
}

func TestSupabaseDeleteMissingRowIsNotFound(t *testing.T) {
	db, _ := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusOK, "[]", nil
	})
	assert.ErrorIs(t, db.DeleteIdea(context.Background(), "u1", "missing"), ErrNotFound)
}

func TestSupabaseErrorsAreDecoded(t *testing.T) {
	db, _ := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusBadRequest, `{"code":"23502","message":"null value in column \"title\""}`, nil
	})

	_, err := db.InsertIdea(context.Background(), models.NewIdea{UserID: "u1"})
	require.Error(t, err)

	var pgErr *PostgrestError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "23502", pgErr.Code)
	assert.Equal(t, http.StatusBadRequest, pgErr.Status)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestSupabaseRejectedSessionIsUnauthorized(t *testing.T) {
	db, _ := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusUnauthorized, `{"code":"PGRST301","message":"JWT expired"}`, nil
	})

	_, err := db.ListIdeas(context.Background(), "u1", ListOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// HealthCheck treats an RLS rejection as a reachable service.
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestSupabaseCountReadsContentRange(t *testing.T) {
	db, seen := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		return http.StatusPartialContent, "[]", http.Header{"Content-Range": []string{"0-0/24"}}
	})

	n, err := db.CountIdeas(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 24, n)
	assert.Equal(t, "count=exact", (*seen)[0].Header.Get("Prefer"))
}

func TestSupabaseUpsertProfileCreatesWhenMissing(t *testing.T) {
	db, seen := newTestSupabase(t, func(r *http.Request) (int, string, http.Header) {
		if r.Method == http.MethodGet {
			return http.StatusOK, "[]", nil
		}
		return http.StatusCreated, `[{"id":"u1","email":"a@b.c","full_name":"A","avatar_url":""}]`, nil
	})

	created, err := db.UpsertProfile(context.Background(), models.Profile{ID: "u1", Email: "a@b.c", FullName: "A"})
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, *seen, 2)
	assert.Equal(t, http.MethodPost, (*seen)[1].Method)
}

func TestSupabaseUsersAreUnsupported(t *testing.T) {
	db := NewSupabaseDatabase("example.supabase.co", "anon", "")
	assert.Equal(t, "https://example.supabase.co", db.baseURL)

	_, err := db.GetUserByEmail(context.Background(), "a@b.c")
	assert.Error(t, err)
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "0-0/24", want: 24},
		{in: "*/0", want: 0},
		{in: "0-9/*", wantErr: true},
		{in: "", wantErr: true},
		{in: "0-0/abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseContentRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
