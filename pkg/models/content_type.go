package models

import (
	"encoding/json"
	"fmt"
)

// ContentType identifies the output format an idea or content item targets.
type ContentType string

const (
	ContentTweet      ContentType = "tweet"
	ContentLinkedIn   ContentType = "linkedin"
	ContentNewsletter ContentType = "newsletter"
	ContentBlog       ContentType = "blog"
	ContentVideo      ContentType = "video"
	ContentPodcast    ContentType = "podcast"
	ContentInstagram  ContentType = "instagram"
	ContentThread     ContentType = "thread"
)

// ContentTypeInfo is the display metadata for a content type.
type ContentTypeInfo struct {
	ID          ContentType `json:"id"`
	Name        string      `json:"name"`
	Color       string      `json:"color"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
}

// ContentTypes is the fixed catalogue, in display order.
var ContentTypes = []ContentTypeInfo{
	{ID: ContentTweet, Name: "Tweet", Color: "#1DA1F2", Description: "Short-form social media post", Icon: "🐦"},
	{ID: ContentLinkedIn, Name: "LinkedIn Post", Color: "#0A66C2", Description: "Professional social media post", Icon: "💼"},
	{ID: ContentNewsletter, Name: "Newsletter", Color: "#FF6B6B", Description: "Email newsletter content", Icon: "📧"},
	{ID: ContentBlog, Name: "Blog Post", Color: "#4CAF50", Description: "Long-form written content", Icon: "✍️"},
	{ID: ContentVideo, Name: "Video", Color: "#FF4081", Description: "Video content", Icon: "🎥"},
	{ID: ContentPodcast, Name: "Podcast", Color: "#9C27B0", Description: "Audio content", Icon: "🎙️"},
	{ID: ContentInstagram, Name: "Instagram", Color: "#E4405F", Description: "Visual social media content", Icon: "📸"},
	{ID: ContentThread, Name: "Thread", Color: "#1DA1F2", Description: "Long-form social media thread", Icon: "🧵"},
}

// LookupContentType returns the catalogue entry for id.
func LookupContentType(id ContentType) (ContentTypeInfo, bool) {
	for _, info := range ContentTypes {
		if info.ID == id {
			return info, true
		}
	}
	return ContentTypeInfo{}, false
}

// ParseContentType validates s against the catalogue.
func ParseContentType(s string) (ContentType, error) {
	if _, ok := LookupContentType(ContentType(s)); !ok {
		return "", fmt.Errorf("invalid content type %q", s)
	}
	return ContentType(s), nil
}

func (c ContentType) String() string { return string(c) }

func (c ContentType) Valid() bool {
	_, ok := LookupContentType(c)
	return ok
}

// UnmarshalJSON tolerates null, which older rows carry.
func (c *ContentType) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*c = ""
		return nil
	}
	*c = ContentType(*raw)
	return nil
}
