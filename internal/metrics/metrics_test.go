package metrics

import (
	"testing"

	"autoflightlog/internal/events"
	"autoflightlog/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
	})
}

func TestSubscribe(t *testing.T) {
	bus := events.NewEventBus()
	Subscribe(bus)

	ticksBefore := testutil.ToFloat64(syncTicks.WithLabelValues(string(models.ReasonFocus)))
	okBefore := testutil.ToFloat64(syncAttempts.WithLabelValues(models.SyncStatusOK))
	errBefore := testutil.ToFloat64(syncAttempts.WithLabelValues(models.SyncStatusError))
	insertedBefore := testutil.ToFloat64(syncEntries.WithLabelValues("inserted"))
	importedBefore := testutil.ToFloat64(syncEntries.WithLabelValues("imported"))

	require.NoError(t, bus.PublishJSON(events.EventSyncTickCompleted, models.NewSyncSummary(models.ReasonFocus, nil)))
	require.NoError(t, bus.PublishJSON(events.EventConnectorSynced, events.ConnectorSyncPayload{ConnectorID: "c1", Inserted: 3}))
	require.NoError(t, bus.PublishJSON(events.EventConnectorSyncFailed, events.ConnectorSyncPayload{ConnectorID: "c2", Error: "boom"}))
	require.NoError(t, bus.PublishJSON(events.EventEntriesImported, events.ImportPayload{Imported: 4}))

	assert.Equal(t, ticksBefore+1, testutil.ToFloat64(syncTicks.WithLabelValues(string(models.ReasonFocus))))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(syncAttempts.WithLabelValues(models.SyncStatusOK)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(syncAttempts.WithLabelValues(models.SyncStatusError)))
	assert.Equal(t, insertedBefore+3, testutil.ToFloat64(syncEntries.WithLabelValues("inserted")))
	assert.Equal(t, importedBefore+4, testutil.ToFloat64(syncEntries.WithLabelValues("imported")))
}
