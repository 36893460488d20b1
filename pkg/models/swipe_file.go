package models

import "time"

// SwipeFile is a saved piece of inspiration.
type SwipeFile struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	URL         *string    `json:"url"`
	Content     *string    `json:"content"`
	ImageURL    *string    `json:"image_url"`
	Source      *string    `json:"source"`
	Tags        []string   `json:"tags"`
	Favorite    bool       `json:"favorite"`
	Archived    bool       `json:"archived"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// NewSwipeFile is the insert payload for a swipe file.
type NewSwipeFile struct {
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Content     string   `json:"content"`
	ImageURL    string   `json:"image_url"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
}

// SwipeFilePatch is a partial update of a swipe file.
type SwipeFilePatch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	URL         *string  `json:"url,omitempty"`
	Content     *string  `json:"content,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Source      *string  `json:"source,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Favorite    *bool    `json:"favorite,omitempty"`
	Archived    *bool    `json:"archived,omitempty"`
}

// Columns renders the patch in the stored column representation.
func (p SwipeFilePatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("title", p.Title)
	set("description", p.Description)
	set("url", p.URL)
	set("content", p.Content)
	set("image_url", p.ImageURL)
	set("source", p.Source)
	if p.Tags != nil {
		cols["tags"] = p.Tags
	}
	if p.Favorite != nil {
		cols["favorite"] = *p.Favorite
	}
	if p.Archived != nil {
		cols["archived"] = *p.Archived
	}
	return cols
}
