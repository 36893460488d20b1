package ideas

import (
	"strings"

	"content-planner-backend/pkg/models"
)

// AddTag returns a copy of idea with candidate appended to its tags.
// Blank candidates and exact duplicates leave the tags unchanged.
func AddTag(idea models.Idea, candidate string) models.Idea {
	out := idea.Clone()
	out.Tags = AppendTag(idea.Tags, candidate)
	return out
}

// RemoveTag returns a copy of idea without any tag equal to target.
func RemoveTag(idea models.Idea, target string) models.Idea {
	out := idea.Clone()
	out.Tags = DropTag(idea.Tags, target)
	return out
}

// AppendTag is AddTag for a bare tag list. The input slice is not modified.
func AppendTag(tags []string, candidate string) []string {
	out := make([]string, len(tags), len(tags)+1)
	copy(out, tags)

	candidate = strings.TrimSpace(candidate)
	if candidate == "" || hasTag(tags, candidate) {
		return out
	}
	return append(out, candidate)
}

// DropTag is RemoveTag for a bare tag list. The input slice is not modified.
func DropTag(tags []string, target string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag != target {
			out = append(out, tag)
		}
	}
	return out
}

// NormalizeTags trims each tag and drops blanks and repeats, keeping the
// first occurrence's position.
func NormalizeTags(tags []string) []string {
	out := []string{}
	for _, tag := range tags {
		out = AppendTag(out, tag)
	}
	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
