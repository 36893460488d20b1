package models

import "time"

// ContentItemStatus values used by the content calendar.
const (
	ContentStatusDraft      = "draft"
	ContentStatusInProgress = "in-progress"
	ContentStatusScheduled  = "scheduled"
	ContentStatusPublished  = "published"
)

// ContentItem is a piece of scheduled content, optionally derived from an idea.
type ContentItem struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	IdeaID        *string     `json:"idea_id"`
	Title         string      `json:"title"`
	Description   *string     `json:"description"`
	Content       *string     `json:"content"`
	ContentType   ContentType `json:"content_type"`
	Status        string      `json:"status"`
	Tags          []string    `json:"tags"`
	ScheduledDate *time.Time  `json:"scheduled_date"`
	PublishedDate *time.Time  `json:"published_date"`
	Archived      bool        `json:"archived"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     *time.Time  `json:"updated_at"`
}

// NewContentItem is the insert payload for a content item.
type NewContentItem struct {
	UserID        string      `json:"user_id"`
	IdeaID        *string     `json:"idea_id,omitempty"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Content       string      `json:"content"`
	ContentType   ContentType `json:"content_type"`
	Status        string      `json:"status"`
	Tags          []string    `json:"tags"`
	ScheduledDate *time.Time  `json:"scheduled_date,omitempty"`
}

// ContentItemPatch is a partial update of a content item.
type ContentItemPatch struct {
	Title         *string      `json:"title,omitempty"`
	Description   *string      `json:"description,omitempty"`
	Content       *string      `json:"content,omitempty"`
	ContentType   *ContentType `json:"content_type,omitempty"`
	Status        *string      `json:"status,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	ScheduledDate *time.Time   `json:"scheduled_date,omitempty"`
	PublishedDate *time.Time   `json:"published_date,omitempty"`
	Archived      *bool        `json:"archived,omitempty"`
}

// Columns renders the patch in the stored column representation.
func (p ContentItemPatch) Columns() map[string]interface{} {
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
	if p.ContentType != nil {
		cols["content_type"] = p.ContentType.String()
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Tags != nil {
		cols["tags"] = p.Tags
	}
	if p.ScheduledDate != nil {
		cols["scheduled_date"] = p.ScheduledDate.UTC()
	}
	if p.PublishedDate != nil {
		cols["published_date"] = p.PublishedDate.UTC()
	}
	if p.Archived != nil {
		cols["archived"] = *p.Archived
	}
	return cols
}

// ContentItemFromIdea derives a draft content item from an idea.
func ContentItemFromIdea(idea Idea, scheduled *time.Time) NewContentItem {
	ideaID := idea.ID
	tags := append([]string{}, idea.Tags...)
	status := ContentStatusDraft
	if scheduled != nil {
		status = ContentStatusScheduled
	}
	return NewContentItem{
		UserID:        idea.UserID,
		IdeaID:        &ideaID,
		Title:         idea.Title,
		Description:   idea.DescriptionText(),
		ContentType:   idea.ContentType,
		Status:        status,
		Tags:          tags,
		ScheduledDate: scheduled,
	}
}
