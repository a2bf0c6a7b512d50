package domain

import (
	"context"
	"errors"
	"time"

	"autoflightlog/internal/models"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

type ConnectorStore interface {
	ListConnectors(ctx context.Context) ([]*models.Connector, error)
	GetConnector(ctx context.Context, id string) (*models.Connector, error)
	GetConnectorByRequestID(ctx context.Context, requestID string) (*models.Connector, error)
	UpsertConnector(ctx context.Context, c *models.Connector) error
	PatchConnector(ctx context.Context, id string, patch models.ConnectorPatch) error
}

type EntryStore interface {
	ListEntries(ctx context.Context) ([]*models.LogbookEntry, error)
	GetEntry(ctx context.Context, id string) (*models.LogbookEntry, error)
	GetEntryByExternalKey(ctx context.Context, externalKey string) (*models.LogbookEntry, error)
	InsertEntry(ctx context.Context, e *models.LogbookEntry) error
	UpdateEntry(ctx context.Context, e *models.LogbookEntry) error
	DeleteEntry(ctx context.Context, id string) error
}

type IntegrationRequestStore interface {
	ListIntegrationRequests(ctx context.Context) ([]*models.IntegrationRequest, error)
	GetIntegrationRequest(ctx context.Context, id string) (*models.IntegrationRequest, error)
	AddIntegrationRequest(ctx context.Context, req *models.IntegrationRequest) error
}

// ViewStore keeps saved logbook views.
type ViewStore interface {
	ListViews(ctx context.Context) ([]*models.View, error)
	GetView(ctx context.Context, id string) (*models.View, error)
	UpsertView(ctx context.Context, v *models.View) error
	DeleteView(ctx context.Context, id string) error
}

// Store is everything the application persists.
type Store interface {
	ConnectorStore
	EntryStore
	IntegrationRequestStore
	ViewStore
}

// Locker is a best-effort mutual exclusion token shared between processes.
type Locker interface {
	Acquire(ctx context.Context, ownerID string) (bool, error)
	Release(ctx context.Context, ownerID string) error
}

// Clock abstracts wall time for scheduling math.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// FlightRecord is one flight as delivered by an employer system.
type FlightRecord struct {
	Position int
	Values   map[string]any
}

// FlightSource fetches the current batch of flights for a connector.
type FlightSource interface {
	Fetch(ctx context.Context, c *models.Connector) ([]FlightRecord, error)
}

type SyncExecutor interface {
	Run(ctx context.Context, connectorID string) (models.SyncResult, error)
}

type SyncScheduler interface {
	Tick(ctx context.Context, reason models.SyncReason) models.SyncSummary
	Request(reason models.SyncReason) bool
	SetOnline(online bool)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
