package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventConnectorSynced     = "connector_synced"
	EventConnectorSyncFailed = "connector_sync_failed"
	EventSyncTickCompleted   = "sync_tick_completed"
	EventEntryEdited         = "entry_edited"
	EventEntriesImported     = "entries_imported"
)

// ConnectorSyncPayload describes one executor run for event consumers.
type ConnectorSyncPayload struct {
	ConnectorID         string     `json:"connector_id"`
	Inserted            int        `json:"inserted,omitempty"`
	Updated             int        `json:"updated,omitempty"`
	Error               string     `json:"error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures,omitempty"`
	NextSyncAt          *time.Time `json:"next_sync_at,omitempty"`
}

// EntryEditPayload reports a manual edit and the fields it pinned.
type EntryEditPayload struct {
	EntryID    string   `json:"entry_id"`
	Overridden []string `json:"overridden,omitempty"`
}

// ImportPayload summarizes a CSV import.
type ImportPayload struct {
	Imported int `json:"imported"`
	Warnings int `json:"warnings,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns the first handler error.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var firstErr error
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
