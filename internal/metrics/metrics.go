package metrics

import (
	"sync"

	"autoflightlog/internal/events"
	"autoflightlog/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autoflightlog"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	syncTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_ticks_total",
			Help:      "Completed scheduler ticks by trigger reason.",
		},
		[]string{"reason"},
	)

	syncAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_attempts_total",
			Help:      "Connector sync attempts by status.",
		},
		[]string{"status"},
	)

	syncEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_entries_total",
			Help:      "Logbook entries written by sync, by operation.",
		},
		[]string{"op"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, syncTicks, syncAttempts, syncEntries)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// ObserveTick records a scheduler tick.
func ObserveTick(summary models.SyncSummary) {
	syncTicks.WithLabelValues(string(summary.Reason)).Inc()
}

// ObserveSync records one connector run.
func ObserveSync(ok bool, inserted, updated int) {
	status := models.SyncStatusOK
	if !ok {
		status = models.SyncStatusError
	}
	syncAttempts.WithLabelValues(status).Inc()
	syncEntries.WithLabelValues("inserted").Add(float64(inserted))
	syncEntries.WithLabelValues("updated").Add(float64(updated))
}

// Subscribe feeds sync events from the bus into the counters.
func Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventSyncTickCompleted, func(e *events.Event) error {
		var summary models.SyncSummary
		if err := e.Decode(&summary); err != nil {
			return err
		}
		ObserveTick(summary)
		return nil
	})
	bus.Subscribe(events.EventConnectorSynced, func(e *events.Event) error {
		var p events.ConnectorSyncPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		ObserveSync(true, p.Inserted, p.Updated)
		return nil
	})
	bus.Subscribe(events.EventConnectorSyncFailed, func(e *events.Event) error {
		ObserveSync(false, 0, 0)
		return nil
	})
	bus.Subscribe(events.EventEntriesImported, func(e *events.Event) error {
		var p events.ImportPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		syncEntries.WithLabelValues("imported").Add(float64(p.Imported))
		return nil
	})
}
