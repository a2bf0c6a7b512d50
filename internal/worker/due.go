package worker

import (
	"time"

	"autoflightlog/internal/models"
)

// EffectiveInterval is the connector's sync period.
func EffectiveInterval(c *models.Connector) time.Duration {
	return time.Duration(c.IntervalMinutes()) * time.Minute
}

// IsDue decides whether c should be synced at now.
//
// A scheduled NextSyncAt is authoritative (reaching it exactly counts as due).
// Records written before NextSyncAt existed fall back to LastSyncAt plus the
// interval; both paths must stay.
func IsDue(c *models.Connector, now time.Time) bool {
	if !c.SyncEligible() {
		return false
	}

	if c.NextSyncAt != nil {
		return !now.Before(*c.NextSyncAt)
	}

	if c.LastSyncAt == nil {
		return true
	}
	return now.Sub(*c.LastSyncAt) >= EffectiveInterval(c)
}

// DueConnectors filters connectors keeping list order.
func DueConnectors(connectors []*models.Connector, now time.Time) []*models.Connector {
	due := make([]*models.Connector, 0, len(connectors))
	for _, c := range connectors {
		if c != nil && IsDue(c, now) {
			due = append(due, c)
		}
	}
	return due
}
