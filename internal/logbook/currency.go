package logbook

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"autoflightlog/internal/models"
)

// Requirement is a "N events within D days" rule evaluated at one instant.
type Requirement struct {
	Label         string     `json:"label"`
	WindowDays    int        `json:"window_days"`
	RequiredCount int        `json:"required_count"`
	ActualCount   int        `json:"actual_count"`
	MissingCount  int        `json:"missing_count"`
	Met           bool       `json:"met"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// CurrencySummary is a simplified EASA recency check without type or class
// filtering.
type CurrencySummary struct {
	Landings90      Requirement `json:"landings_90"`
	NightLandings90 Requirement `json:"night_landings_90"`
	IFRTime90       float64     `json:"ifr_time_90"`
	NightTime90     float64     `json:"night_time_90"`
}

const currencyWindowDays = 90

// Currency evaluates recency against entries at now.
func Currency(entries []*models.LogbookEntry, now time.Time) CurrencySummary {
	var all, night []time.Time
	for _, e := range entries {
		d, ok := EntryDate(e)
		if !ok {
			continue
		}
		dayCount := int(number(e.Values["landingsDay"]))
		nightCount := int(number(e.Values["landingsNight"]))
		for i := 0; i < dayCount+nightCount; i++ {
			all = append(all, d)
		}
		for i := 0; i < nightCount; i++ {
			night = append(night, d)
		}
	}

	return CurrencySummary{
		Landings90:      requirement(all, currencyWindowDays, 3, now),
		NightLandings90: requirement(night, currencyWindowDays, 1, now),
		IFRTime90:       sumInWindow(entries, "ifrTime", currencyWindowDays, now),
		NightTime90:     sumInWindow(entries, "nightTime", currencyWindowDays, now),
	}
}

// EntryDate is the flight date, falling back to the creation time.
func EntryDate(e *models.LogbookEntry) (time.Time, bool) {
	if s, ok := e.Values["date"].(string); ok && s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
	}
	if !e.CreatedAt.IsZero() {
		return e.CreatedAt, true
	}
	return time.Time{}, false
}

func windowStart(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -days)
}

func requirement(events []time.Time, windowDays, required int, now time.Time) Requirement {
	cutoff := windowStart(now, windowDays)
	in := make([]time.Time, 0, len(events))
	for _, t := range events {
		if !t.Before(cutoff) {
			in = append(in, t)
		}
	}
	sort.Slice(in, func(i, j int) bool { return in[i].After(in[j]) })

	r := Requirement{
		Label:         fmt.Sprintf("%d in %d days", required, windowDays),
		WindowDays:    windowDays,
		RequiredCount: required,
		ActualCount:   len(in),
		Met:           len(in) >= required,
	}
	if !r.Met {
		r.MissingCount = required - len(in)
		return r
	}
	expires := in[required-1].AddDate(0, 0, windowDays)
	r.ExpiresAt = &expires
	return r
}

func sumInWindow(entries []*models.LogbookEntry, key string, windowDays int, now time.Time) float64 {
	cutoff := windowStart(now, windowDays)
	var sum float64
	for _, e := range entries {
		d, ok := EntryDate(e)
		if !ok || d.Before(cutoff) {
			continue
		}
		sum += number(e.Values[key])
	}
	return sum
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
