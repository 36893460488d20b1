package ideas

import (
	"context"
	"fmt"
	"sync"
	"time"

	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/models"
)

// fakeStore implements the idea half of database.DatabaseInterface in memory
// and counts calls. Setting failWith makes the next calls fail.
type fakeStore struct {
	database.DatabaseInterface

	mu       sync.Mutex
	rows     []models.Idea
	nextID   int
	calls    int
	failWith error
	// block, when set, is waited on inside every call.
	block chan struct{}
	// blockWrites, when set, is waited on inside insert, update and delete.
	blockWrites chan struct{}
}

func (s *fakeStore) enter() error {
	s.mu.Lock()
	s.calls++
	block := s.block
	err := s.failWith
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (s *fakeStore) enterWrite() error {
	s.mu.Lock()
	block := s.blockWrites
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.enter()
}

func (s *fakeStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeStore) ListIdeas(ctx context.Context, userID string, opts database.ListOptions) ([]models.Idea, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Idea{}
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].UserID == userID {
			out = append(out, s.rows[i].Clone())
		}
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) GetIdea(ctx context.Context, userID, id string) (*models.Idea, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id && row.UserID == userID {
			idea := row.Clone()
			return &idea, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) InsertIdea(ctx context.Context, in models.NewIdea) (*models.Idea, error) {
	if err := s.enterWrite(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	idea := models.Idea{
		ID:          fmt.Sprintf("idea-%d", s.nextID),
		UserID:      in.UserID,
		Title:       in.Title,
		Status:      in.Status,
		Priority:    in.Priority,
		IsFavorite:  in.IsFavorite,
		ContentType: in.ContentType,
		Tags:        append([]string{}, in.Tags...),
		CreatedAt:   time.Now(),
	}
	if in.Description != "" {
		idea.Description = models.StringPtr(in.Description)
	}
	s.rows = append(s.rows, idea)
	return &idea, nil
}

func (s *fakeStore) UpdateIdea(ctx context.Context, userID, id string, patch models.IdeaPatch) (*models.Idea, error) {
	if err := s.enterWrite(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id && row.UserID == userID {
			updated := patch.Apply(row)
			now := time.Now()
			updated.UpdatedAt = &now
			s.rows[i] = updated
			out := updated.Clone()
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) DeleteIdea(ctx context.Context, userID, id string) error {
	if err := s.enterWrite(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id && row.UserID == userID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (s *fakeStore) CountIdeas(ctx context.Context, userID string) (int, error) {
	ideas, err := s.ListIdeas(ctx, userID, database.ListOptions{})
	return len(ideas), err
}

// seed adds rows directly, oldest first.
func (s *fakeStore) seed(rows ...models.Idea) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}
