package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// IdeaStatus is the workflow state of an idea.
type IdeaStatus int

const (
	StatusUnknown IdeaStatus = iota
	StatusDraft
	StatusInProgress
	StatusCompleted
)

var ideaStatusNames = map[IdeaStatus]string{
	StatusDraft:      "draft",
	StatusInProgress: "in-progress",
	StatusCompleted:  "completed",
}

// ParseIdeaStatus maps the stored representation to an IdeaStatus.
func ParseIdeaStatus(s string) (IdeaStatus, error) {
	for status, name := range ideaStatusNames {
		if name == s {
			return status, nil
		}
	}
	return StatusUnknown, fmt.Errorf("invalid status %q", s)
}

func (s IdeaStatus) String() string {
	if name, ok := ideaStatusNames[s]; ok {
		return name
	}
	return ""
}

// Valid reports whether s is one of the enumerated statuses.
func (s IdeaStatus) Valid() bool {
	_, ok := ideaStatusNames[s]
	return ok
}

func (s IdeaStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts unknown values and decodes them to StatusUnknown;
// rows written outside this service are not rejected on read.
func (s *IdeaStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s, _ = ParseIdeaStatus(raw)
	return nil
}

// Priority of an idea.
type Priority int

const (
	PriorityUnknown Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
}

// ParsePriority maps the stored representation to a Priority.
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return PriorityUnknown, fmt.Errorf("invalid priority %q", s)
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return ""
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p, _ = ParsePriority(raw)
	return nil
}

// Idea represents a captured content concept owned by a single user.
type Idea struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Content     *string     `json:"content"`
	Status      IdeaStatus  `json:"status"`
	Priority    Priority    `json:"priority"`
	IsFavorite  bool        `json:"is_favorite"`
	ContentType ContentType `json:"content_type"`
	Tags        []string    `json:"tags"`
	Notes       *string     `json:"notes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at"`
}

// DescriptionText returns the description, treating an absent one as empty.
func (i Idea) DescriptionText() string {
	if i.Description == nil {
		return ""
	}
	return *i.Description
}

// Clone returns a deep copy; the tag slice and optional fields are not shared.
func (i Idea) Clone() Idea {
	out := i
	if i.Tags != nil {
		out.Tags = append([]string(nil), i.Tags...)
	}
	out.Description = cloneString(i.Description)
	out.Content = cloneString(i.Content)
	out.Notes = cloneString(i.Notes)
	if i.UpdatedAt != nil {
		t := *i.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// NewIdea is the insert payload. The store assigns id and created_at.
type NewIdea struct {
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ContentType ContentType `json:"content_type"`
	Status      IdeaStatus  `json:"status"`
	Priority    Priority    `json:"priority"`
	IsFavorite  bool        `json:"is_favorite"`
	Tags        []string    `json:"tags"`
}

// WithDefaults fills status and priority when the caller left them unset.
func (n NewIdea) WithDefaults() NewIdea {
	if n.Status == StatusUnknown {
		n.Status = StatusDraft
	}
	if n.Priority == PriorityUnknown {
		n.Priority = PriorityMedium
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n
}

// IdeaPatch is a partial update. Nil fields are left untouched.
type IdeaPatch struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Content     *string      `json:"content,omitempty"`
	Status      *IdeaStatus  `json:"status,omitempty"`
	Priority    *Priority    `json:"priority,omitempty"`
	IsFavorite  *bool        `json:"is_favorite,omitempty"`
	ContentType *ContentType `json:"content_type,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p IdeaPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Content == nil &&
		p.Status == nil && p.Priority == nil && p.IsFavorite == nil &&
		p.ContentType == nil && p.Tags == nil && p.Notes == nil
}

// Apply returns a copy of idea with the patch merged in.
func (p IdeaPatch) Apply(idea Idea) Idea {
	out := idea.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = cloneString(p.Description)
	}
	if p.Content != nil {
		out.Content = cloneString(p.Content)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.IsFavorite != nil {
		out.IsFavorite = *p.IsFavorite
	}
	if p.ContentType != nil {
		out.ContentType = *p.ContentType
	}
	if p.Tags != nil {
		out.Tags = append([]string{}, p.Tags...)
	}
	if p.Notes != nil {
		out.Notes = cloneString(p.Notes)
	}
	return out
}

// Columns renders the patch in the stored column representation.
func (p IdeaPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Content != nil {
		cols["content"] = *p.Content
	}
	if p.Status != nil {
		cols["status"] = p.Status.String()
	}
	if p.Priority != nil {
		cols["priority"] = p.Priority.String()
	}
	if p.IsFavorite != nil {
		cols["is_favorite"] = *p.IsFavorite
	}
	if p.ContentType != nil {
		cols["content_type"] = p.ContentType.String()
	}
	if p.Tags != nil {
		cols["tags"] = p.Tags
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	return cols
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr is a small helper for optional text fields.
func StringPtr(s string) *string {
	return &s
}
