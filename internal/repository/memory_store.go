package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"
)

// MemoryStore keeps connectors, entries, integration requests and views in process.
// Values handed out are copies; writes are last-writer-wins.
type MemoryStore struct {
	mu         sync.RWMutex
	connectors map[string]*models.Connector
	entries    map[string]*models.LogbookEntry
	byKey      map[string]string
	requests   map[string]*models.IntegrationRequest
	views      map[string]*models.View
}

var _ domain.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		connectors: make(map[string]*models.Connector),
		entries:    make(map[string]*models.LogbookEntry),
		byKey:      make(map[string]string),
		requests:   make(map[string]*models.IntegrationRequest),
		views:      make(map[string]*models.View),
	}
}

func copyConnector(c *models.Connector) *models.Connector {
	out := *c
	if c.AutoSyncEnabled != nil {
		out.AutoSyncEnabled = models.Ptr(*c.AutoSyncEnabled)
	}
	if c.SyncIntervalMinutes != nil {
		out.SyncIntervalMinutes = models.Ptr(*c.SyncIntervalMinutes)
	}
	if c.LastTestAt != nil {
		out.LastTestAt = models.Ptr(*c.LastTestAt)
	}
	if c.LastError != nil {
		out.LastError = models.Ptr(*c.LastError)
	}
	if c.LastSyncAt != nil {
		out.LastSyncAt = models.Ptr(*c.LastSyncAt)
	}
	if c.LastSyncAttemptAt != nil {
		out.LastSyncAttemptAt = models.Ptr(*c.LastSyncAttemptAt)
	}
	if c.LastSyncStatus != nil {
		out.LastSyncStatus = models.Ptr(*c.LastSyncStatus)
	}
	if c.LastSyncError != nil {
		out.LastSyncError = models.Ptr(*c.LastSyncError)
	}
	if c.NextSyncAt != nil {
		out.NextSyncAt = models.Ptr(*c.NextSyncAt)
	}
	return &out
}

func (s *MemoryStore) ListConnectors(ctx context.Context) ([]*models.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Connector, 0, len(s.connectors))
	for _, c := range s.connectors {
		out = append(out, copyConnector(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetConnector(ctx context.Context, id string) (*models.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.connectors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyConnector(c), nil
}

func (s *MemoryStore) GetConnectorByRequestID(ctx context.Context, requestID string) (*models.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.connectors {
		if c.RequestID == requestID {
			return copyConnector(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryStore) UpsertConnector(ctx context.Context, c *models.Connector) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("connector id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connectors[c.ID] = copyConnector(c)
	return nil
}

func (s *MemoryStore) PatchConnector(ctx context.Context, id string, patch models.ConnectorPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.connectors[id]
	if !ok {
		return domain.ErrNotFound
	}
	patch.Apply(c)
	return nil
}

func (s *MemoryStore) ListEntries(ctx context.Context) ([]*models.LogbookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.LogbookEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetEntry(ctx context.Context, id string) (*models.LogbookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryStore) GetEntryByExternalKey(ctx context.Context, externalKey string) (*models.LogbookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[externalKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.entries[id].Clone(), nil
}

func (s *MemoryStore) InsertEntry(ctx context.Context, e *models.LogbookEntry) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.ID]; exists {
		return fmt.Errorf("entry %s already exists", e.ID)
	}
	if key := e.Source.ExternalKey; key != "" {
		if _, taken := s.byKey[key]; taken {
			return fmt.Errorf("external key %s already exists", key)
		}
		s.byKey[key] = e.ID
	}
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *MemoryStore) UpdateEntry(ctx context.Context, e *models.LogbookEntry) error {
	if e == nil {
		return fmt.Errorf("entry is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if old.Source.ExternalKey != e.Source.ExternalKey {
		if key := e.Source.ExternalKey; key != "" {
			if owner, taken := s.byKey[key]; taken && owner != e.ID {
				return fmt.Errorf("external key %s already exists", key)
			}
			s.byKey[key] = e.ID
		}
		delete(s.byKey, old.Source.ExternalKey)
	}
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *MemoryStore) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Source.ExternalKey != "" {
		delete(s.byKey, e.Source.ExternalKey)
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) ListIntegrationRequests(ctx context.Context) ([]*models.IntegrationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.IntegrationRequest, 0, len(s.requests))
	for _, r := range s.requests {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetIntegrationRequest(ctx context.Context, id string) (*models.IntegrationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) AddIntegrationRequest(ctx context.Context, req *models.IntegrationRequest) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("request id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) ListViews(ctx context.Context) ([]*models.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.View, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetView(ctx context.Context, id string) (*models.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.views[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v.Clone(), nil
}

func (s *MemoryStore) UpsertView(ctx context.Context, v *models.View) error {
	if v == nil || v.ID == "" {
		return fmt.Errorf("view id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := v.Clone()
	if old, ok := s.views[v.ID]; ok && !old.CreatedAt.IsZero() {
		cp.CreatedAt = old.CreatedAt
	}
	s.views[v.ID] = cp
	return nil
}

func (s *MemoryStore) DeleteView(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.views, id)
	return nil
}
