package models

import "time"

const (
	SourceManual     = "manual"
	SourceCSVImport  = "csv_import"
	SourceGenericAPI = "generic_api"
)

// EntrySource records where an entry came from.
type EntrySource struct {
	System      string `json:"system"`
	ConnectorID string `json:"connector_id,omitempty"`
	ExternalKey string `json:"external_key,omitempty"`
}

// LogbookEntry is one flight row in the pilot's logbook.
type LogbookEntry struct {
	ID              string          `json:"id"`
	TemplateID      string          `json:"template_id"`
	Values          map[string]any  `json:"values"`
	Source          EntrySource     `json:"source"`
	ManualOverrides map[string]bool `json:"manual_overrides,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsExternal reports whether the entry is owned by a connector.
func (e *LogbookEntry) IsExternal() bool {
	return e.Source.System == SourceGenericAPI
}

// Overridden reports whether key was edited by hand and must survive a sync.
func (e *LogbookEntry) Overridden(key string) bool {
	return e.ManualOverrides != nil && e.ManualOverrides[key]
}

// Clone returns a copy with its own maps.
func (e *LogbookEntry) Clone() *LogbookEntry {
	if e == nil {
		return nil
	}
	out := *e
	out.Values = make(map[string]any, len(e.Values))
	for k, v := range e.Values {
		out.Values[k] = v
	}
	if e.ManualOverrides != nil {
		out.ManualOverrides = make(map[string]bool, len(e.ManualOverrides))
		for k, v := range e.ManualOverrides {
			out.ManualOverrides[k] = v
		}
	}
	return &out
}
