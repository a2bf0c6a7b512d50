package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnector_SyncEligible(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		var c *Connector
		assert.False(t, c.SyncEligible())
	})

	t.Run("InactiveStatus", func(t *testing.T) {
		c := &Connector{Status: ConnectorStatusInactive}
		assert.False(t, c.SyncEligible())
	})

	t.Run("ActiveUnsetFlag", func(t *testing.T) {
		c := &Connector{Status: ConnectorStatusActive}
		assert.True(t, c.SyncEligible())
	})

	t.Run("ActiveDisabled", func(t *testing.T) {
		c := &Connector{Status: ConnectorStatusActive, AutoSyncEnabled: Ptr(false)}
		assert.False(t, c.SyncEligible())
	})
}

func TestConnector_IntervalMinutes(t *testing.T) {
	assert.Equal(t, DefaultSyncIntervalMinutes, (&Connector{}).IntervalMinutes())
	assert.Equal(t, DefaultSyncIntervalMinutes, (&Connector{SyncIntervalMinutes: Ptr(0)}).IntervalMinutes())
	assert.Equal(t, DefaultSyncIntervalMinutes, (&Connector{SyncIntervalMinutes: Ptr(-10)}).IntervalMinutes())
	assert.Equal(t, 30, (&Connector{SyncIntervalMinutes: Ptr(30)}).IntervalMinutes())
}

func TestConnectorPatch_Apply(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Connector{
		ID:                  "c1",
		Status:              ConnectorStatusActive,
		LastSyncError:       Ptr("boom"),
		ConsecutiveFailures: 3,
		APIBaseURL:          "https://crew.example.com",
	}

	ConnectorPatch{
		LastSyncAt:          &now,
		LastSyncStatus:      Ptr(SyncStatusOK),
		ClearLastSyncError:  true,
		ConsecutiveFailures: Ptr(0),
	}.Apply(c)

	assert.Equal(t, now, *c.LastSyncAt)
	assert.Equal(t, SyncStatusOK, *c.LastSyncStatus)
	assert.Nil(t, c.LastSyncError)
	assert.Equal(t, 0, c.ConsecutiveFailures)
	// untouched fields survive
	assert.Equal(t, ConnectorStatusActive, c.Status)
	assert.Equal(t, "https://crew.example.com", c.APIBaseURL)
	assert.Nil(t, c.NextSyncAt)
}

func TestLogbookEntry_Helpers(t *testing.T) {
	e := &LogbookEntry{
		Values:          map[string]any{"registration": "LN-ABC"},
		Source:          EntrySource{System: SourceGenericAPI, ConnectorID: "c1", ExternalKey: "mock-c1-0"},
		ManualOverrides: map[string]bool{"registration": true},
	}

	assert.True(t, e.IsExternal())
	assert.True(t, e.Overridden("registration"))
	assert.False(t, e.Overridden("departure"))

	clone := e.Clone()
	clone.Values["registration"] = "LN-XYZ"
	clone.ManualOverrides["departure"] = true
	assert.Equal(t, "LN-ABC", e.Values["registration"])
	assert.False(t, e.Overridden("departure"))

	var nilEntry *LogbookEntry
	assert.Nil(t, nilEntry.Clone())
	assert.False(t, (&LogbookEntry{}).Overridden("x"))
}

func TestNewSyncSummary(t *testing.T) {
	s := NewSyncSummary(ReasonTimer, nil)
	assert.Equal(t, 0, s.Attempted)
	assert.NotNil(t, s.Results)

	s = NewSyncSummary(ReasonFocus, []SyncOutcome{
		{ConnectorID: "a", OK: true, Inserted: 2},
		{ConnectorID: "b", OK: false, Error: "Connector is not active"},
		{ConnectorID: "c", OK: true, Updated: 1},
	})
	assert.Equal(t, ReasonFocus, s.Reason)
	assert.Equal(t, 3, s.Attempted)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
}

func TestParseSyncReason(t *testing.T) {
	r, ok := ParseSyncReason("visibility")
	assert.True(t, ok)
	assert.Equal(t, ReasonVisibility, r)

	_, ok = ParseSyncReason("bogus")
	assert.False(t, ok)
}

func TestView_FieldKeys(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		var v *View
		assert.Nil(t, v.FieldKeys())
	})

	t.Run("VisibleFieldsOnly", func(t *testing.T) {
		v := &View{VisibleFields: []string{"date", "arrival"}}
		assert.Equal(t, []string{"date", "arrival"}, v.FieldKeys())
	})

	t.Run("ColumnsByOrder", func(t *testing.T) {
		v := &View{
			VisibleFields: []string{"date"},
			Columns: []ViewColumn{
				{FieldID: "remarks", Order: 3},
				{FieldID: "date", Order: 1},
				{FieldID: "registration", Order: 2},
			},
		}
		assert.Equal(t, []string{"date", "registration", "remarks"}, v.FieldKeys())
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		v := &View{VisibleFields: []string{"date"}, Columns: []ViewColumn{{FieldID: "date", Order: 1}}}
		c := v.Clone()
		c.VisibleFields[0] = "arrival"
		c.Columns[0].Width = 90
		assert.Equal(t, "date", v.VisibleFields[0])
		assert.Zero(t, v.Columns[0].Width)
	})
}
