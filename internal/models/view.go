package models

import (
	"sort"
	"time"
)

const (
	// DefaultViewID is the view seeded on first start.
	DefaultViewID = "view_default"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ViewColumn places one field in a view.
type ViewColumn struct {
	FieldID string `json:"field_id"`
	Width   int    `json:"width"`
	Order   int    `json:"order"`
}

// View is a saved column layout and sort order for the logbook table and
// its exports.
type View struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	TemplateID    string       `json:"template_id"`
	VisibleFields []string     `json:"visible_fields"`
	Columns       []ViewColumn `json:"columns,omitempty"`
	SortBy        string       `json:"sort_by,omitempty"`
	SortOrder     string       `json:"sort_order,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// FieldKeys returns the shown fields in display order. Columns win over
// VisibleFields when both are set.
func (v *View) FieldKeys() []string {
	if v == nil {
		return nil
	}
	if len(v.Columns) == 0 {
		return append([]string(nil), v.VisibleFields...)
	}
	cols := append([]ViewColumn(nil), v.Columns...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Order < cols[j].Order })
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.FieldID
	}
	return keys
}

// Clone returns a copy with its own slices.
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	out := *v
	out.VisibleFields = append([]string(nil), v.VisibleFields...)
	out.Columns = append([]ViewColumn(nil), v.Columns...)
	return &out
}
