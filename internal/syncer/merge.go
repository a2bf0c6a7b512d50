package syncer

import (
	"fmt"

	"autoflightlog/internal/models"
)

// ExternalKey identifies a synced flight across runs of the same connector.
func ExternalKey(connectorID string, position int) string {
	return fmt.Sprintf("mock-%s-%d", connectorID, position)
}

// MergeValues copies incoming values into e, skipping fields the user pinned
// through ManualOverrides. It returns the keys that were written.
func MergeValues(e *models.LogbookEntry, incoming map[string]any) []string {
	if e.Values == nil {
		e.Values = make(map[string]any, len(incoming))
	}
	written := make([]string, 0, len(incoming))
	for k, v := range incoming {
		if e.Overridden(k) {
			continue
		}
		e.Values[k] = v
		written = append(written, k)
	}
	return written
}
