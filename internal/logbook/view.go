package logbook

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"autoflightlog/internal/models"
)

const defaultColumnWidth = 150

// DefaultView is the layout a fresh installation starts with.
func DefaultView(now time.Time) *models.View {
	fields := append([]string(nil), DefaultViewFields...)
	cols := make([]models.ViewColumn, len(fields))
	for i, key := range fields {
		cols[i] = models.ViewColumn{FieldID: key, Width: defaultColumnWidth, Order: i + 1}
	}
	return &models.View{
		ID:            models.DefaultViewID,
		Name:          "Default View",
		TemplateID:    models.DefaultTemplateID,
		VisibleFields: fields,
		Columns:       cols,
		SortBy:        "date",
		SortOrder:     models.SortDesc,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ValidateView checks that a view only names catalog fields.
func ValidateView(v *models.View) error {
	if v == nil {
		return errors.New("view is required")
	}
	if strings.TrimSpace(v.Name) == "" {
		return errors.New("view name is required")
	}
	keys := v.FieldKeys()
	if len(keys) == 0 {
		return errors.New("view has no fields")
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := Lookup(k); !ok {
			return fmt.Errorf("unknown field %q", k)
		}
		if seen[k] {
			return fmt.Errorf("field %q listed twice", k)
		}
		seen[k] = true
	}
	for _, c := range v.Columns {
		if c.Width < 0 {
			return fmt.Errorf("column %q has negative width", c.FieldID)
		}
	}
	if v.SortBy != "" {
		if _, ok := Lookup(v.SortBy); !ok {
			return fmt.Errorf("unknown sort field %q", v.SortBy)
		}
	}
	switch v.SortOrder {
	case "", models.SortAsc, models.SortDesc:
	default:
		return fmt.Errorf("sort order must be %q or %q", models.SortAsc, models.SortDesc)
	}
	return nil
}

// OrderedFields returns catalog fields for keys in the order given.
// Unknown and repeated keys are skipped.
func OrderedFields(keys []string) []Field {
	out := make([]Field, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		f, ok := Lookup(k)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// SortEntries orders entries in place by one field. Date fields compare as
// dates, number fields numerically, the rest as text. Entries without a
// value go last in either direction; ties fall back to creation time.
func SortEntries(entries []*models.LogbookEntry, sortBy, order string) {
	if sortBy == "" {
		sortBy = "date"
	}
	desc := order != models.SortAsc
	field, _ := Lookup(sortBy)

	type sortKey struct {
		ok   bool
		at   time.Time
		num  float64
		text string
	}
	keys := make(map[string]sortKey, len(entries))
	for _, e := range entries {
		var k sortKey
		switch {
		case sortBy == "date":
			k.at, k.ok = EntryDate(e)
		case field.Type == TypeNumber:
			if v, has := e.Values[sortBy]; has && v != nil && v != "" {
				k.num, k.ok = number(v), true
			}
		default:
			k.text = strings.TrimSpace(FormatValue(e.Values[sortBy]))
			k.ok = k.text != ""
		}
		keys[e.ID] = k
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := keys[entries[i].ID], keys[entries[j].ID]
		if a.ok != b.ok {
			return a.ok
		}
		cmp := 0
		switch {
		case !a.ok:
		case sortBy == "date":
			cmp = a.at.Compare(b.at)
		case field.Type == TypeNumber:
			switch {
			case a.num < b.num:
				cmp = -1
			case a.num > b.num:
				cmp = 1
			}
		default:
			cmp = strings.Compare(a.text, b.text)
		}
		if cmp == 0 {
			cmp = entries[i].CreatedAt.Compare(entries[j].CreatedAt)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}
