package logbook

import (
	"sort"
	"strings"
	"time"

	"autoflightlog/internal/models"
)

// DefaultSuggestionLimit caps Suggestions when the caller passes no limit.
const DefaultSuggestionLimit = 8

// Suggestions returns the distinct text values used for key, most used
// first and, among equals, most recently touched first.
func Suggestions(entries []*models.LogbookEntry, key string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	type stats struct {
		count    int
		lastSeen time.Time
	}
	seen := make(map[string]*stats)
	for _, e := range entries {
		s, ok := e.Values[key].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		at := e.UpdatedAt
		if at.IsZero() {
			at = e.CreatedAt
		}
		st, ok := seen[s]
		if !ok {
			seen[s] = &stats{count: 1, lastSeen: at}
			continue
		}
		st.count++
		if at.After(st.lastSeen) {
			st.lastSeen = at
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		a, b := seen[values[i]], seen[values[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		if !a.lastSeen.Equal(b.lastSeen) {
			return a.lastSeen.After(b.lastSeen)
		}
		return values[i] < values[j]
	})
	if len(values) > limit {
		values = values[:limit]
	}
	return values
}
