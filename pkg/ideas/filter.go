package ideas

import (
	"net/url"
	"strconv"
	"strings"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/models"
)

// Filter selects the visible subset of a user's ideas. The zero Filter shows
// everything. Filters are values: the toggle methods return a new Filter and
// leave the receiver untouched.
type Filter struct {
	Query         string
	Statuses      map[models.IdeaStatus]struct{}
	Priorities    map[models.Priority]struct{}
	FavoritesOnly bool
}

// Matches reports whether idea passes every part of the filter. The query is
// matched as typed; surrounding whitespace is part of it.
func (f Filter) Matches(idea models.Idea) bool {
	if q := strings.ToLower(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(idea.Title), q) &&
			!strings.Contains(strings.ToLower(idea.DescriptionText()), q) {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		if _, ok := f.Statuses[idea.Status]; !ok {
			return false
		}
	}
	if len(f.Priorities) > 0 {
		if _, ok := f.Priorities[idea.Priority]; !ok {
			return false
		}
	}
	return !f.FavoritesOnly || idea.IsFavorite
}

// Visible returns the ideas that match f, in their original order.
func Visible(ideas []models.Idea, f Filter) []models.Idea {
	out := make([]models.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if f.Matches(idea) {
			out = append(out, idea)
		}
	}
	return out
}

// ToggleStatus adds s to the status set if absent and removes it otherwise.
func (f Filter) ToggleStatus(s models.IdeaStatus) Filter {
	f.Statuses = toggle(f.Statuses, s)
	return f
}

// TogglePriority adds p to the priority set if absent and removes it otherwise.
func (f Filter) TogglePriority(p models.Priority) Filter {
	f.Priorities = toggle(f.Priorities, p)
	return f
}

// ToggleFavorites flips the favourites-only flag.
func (f Filter) ToggleFavorites() Filter {
	f.FavoritesOnly = !f.FavoritesOnly
	return f
}

// Reset clears the query and every filter.
func (f Filter) Reset() Filter {
	return Filter{}
}

// Active reports whether anything is filtered out.
func (f Filter) Active() bool {
	return f.Query != "" || len(f.Statuses) > 0 ||
		len(f.Priorities) > 0 || f.FavoritesOnly
}

func toggle[K comparable](set map[K]struct{}, k K) map[K]struct{} {
	out := make(map[K]struct{}, len(set)+1)
	for v := range set {
		out[v] = struct{}{}
	}
	if _, ok := out[k]; ok {
		delete(out, k)
	} else {
		out[k] = struct{}{}
	}
	return out
}

// ParseFilter reads q, status, priority and favorites from query parameters.
// status and priority may repeat or hold comma-separated values.
func ParseFilter(values url.Values) (Filter, error) {
	f := Filter{Query: values.Get("q")}

	for _, raw := range splitValues(values["status"]) {
		s, err := models.ParseIdeaStatus(raw)
		if err != nil {
			return Filter{}, apperr.Validation("invalid status filter %q", raw)
		}
		if _, ok := f.Statuses[s]; !ok {
			f = f.ToggleStatus(s)
		}
	}

	for _, raw := range splitValues(values["priority"]) {
		p, err := models.ParsePriority(raw)
		if err != nil {
			return Filter{}, apperr.Validation("invalid priority filter %q", raw)
		}
		if _, ok := f.Priorities[p]; !ok {
			f = f.TogglePriority(p)
		}
	}

	if raw := values.Get("favorites"); raw != "" {
		fav, err := strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, apperr.Validation("invalid favorites filter %q", raw)
		}
		f.FavoritesOnly = fav
	}

	return f, nil
}

func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
