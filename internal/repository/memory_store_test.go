package repository

import (
	"context"
	"testing"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreConnectors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	c := &models.Connector{
		ID:        "c1",
		RequestID: "r1",
		Status:    models.ConnectorStatusInactive,
		CreatedAt: now,
	}
	require.NoError(t, store.UpsertConnector(ctx, c))
	require.NoError(t, store.UpsertConnector(ctx, &models.Connector{ID: "c0", CreatedAt: now.Add(-time.Hour)}))

	t.Run("GetReturnsCopy", func(t *testing.T) {
		got, err := store.GetConnector(ctx, "c1")
		require.NoError(t, err)
		got.Status = models.ConnectorStatusActive

		again, _ := store.GetConnector(ctx, "c1")
		assert.Equal(t, models.ConnectorStatusInactive, again.Status)
	})

	t.Run("ListOrderedByCreation", func(t *testing.T) {
		list, err := store.ListConnectors(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "c0", list[0].ID)
		assert.Equal(t, "c1", list[1].ID)
	})

	t.Run("ByRequestID", func(t *testing.T) {
		got, err := store.GetConnectorByRequestID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)

		_, err = store.GetConnectorByRequestID(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("PatchMerges", func(t *testing.T) {
		next := now.Add(time.Hour)
		err := store.PatchConnector(ctx, "c1", models.ConnectorPatch{
			Status:              models.Ptr(models.ConnectorStatusActive),
			ConsecutiveFailures: models.Ptr(2),
			NextSyncAt:          &next,
		})
		require.NoError(t, err)

		got, _ := store.GetConnector(ctx, "c1")
		assert.Equal(t, models.ConnectorStatusActive, got.Status)
		assert.Equal(t, 2, got.ConsecutiveFailures)
		assert.Equal(t, "r1", got.RequestID)
		require.NotNil(t, got.NextSyncAt)
		assert.True(t, next.Equal(*got.NextSyncAt))

		next = next.Add(time.Hour)
		again, _ := store.GetConnector(ctx, "c1")
		assert.False(t, next.Equal(*again.NextSyncAt), "stored pointer must not alias caller's")
	})

	t.Run("PatchMissing", func(t *testing.T) {
		err := store.PatchConnector(ctx, "missing", models.ConnectorPatch{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("UpsertRequiresID", func(t *testing.T) {
		assert.Error(t, store.UpsertConnector(ctx, &models.Connector{}))
	})
}

func TestMemoryStoreEntries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	e := &models.LogbookEntry{
		ID:         "e1",
		TemplateID: models.DefaultTemplateID,
		Values:     map[string]any{"registration": "LN-ABC"},
		Source:     models.EntrySource{System: models.SourceGenericAPI, ConnectorID: "c1", ExternalKey: "mock-c1-0"},
		CreatedAt:  now,
	}
	require.NoError(t, store.InsertEntry(ctx, e))

	t.Run("DuplicateExternalKey", func(t *testing.T) {
		dup := e.Clone()
		dup.ID = "e2"
		assert.Error(t, store.InsertEntry(ctx, dup))
	})

	t.Run("DuplicateID", func(t *testing.T) {
		assert.Error(t, store.InsertEntry(ctx, e))
	})

	t.Run("ByExternalKey", func(t *testing.T) {
		got, err := store.GetEntryByExternalKey(ctx, "mock-c1-0")
		require.NoError(t, err)
		assert.Equal(t, "e1", got.ID)

		got.Values["registration"] = "LN-XYZ"
		again, _ := store.GetEntry(ctx, "e1")
		assert.Equal(t, "LN-ABC", again.Values["registration"])
	})

	t.Run("Update", func(t *testing.T) {
		got, _ := store.GetEntry(ctx, "e1")
		got.Values["registration"] = "LN-DEF"
		got.ManualOverrides = map[string]bool{"registration": true}
		require.NoError(t, store.UpdateEntry(ctx, got))

		again, _ := store.GetEntry(ctx, "e1")
		assert.Equal(t, "LN-DEF", again.Values["registration"])
		assert.True(t, again.Overridden("registration"))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := store.UpdateEntry(ctx, &models.LogbookEntry{ID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DeleteFreesKey", func(t *testing.T) {
		require.NoError(t, store.DeleteEntry(ctx, "e1"))
		_, err := store.GetEntryByExternalKey(ctx, "mock-c1-0")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, store.DeleteEntry(ctx, "e1"), domain.ErrNotFound)

		list, err := store.ListEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestMemoryStoreIntegrationRequests(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.AddIntegrationRequest(ctx, &models.IntegrationRequest{ID: "r1", CreatedAt: now}))
	require.NoError(t, store.AddIntegrationRequest(ctx, &models.IntegrationRequest{ID: "r2", CreatedAt: now.Add(time.Minute)}))
	assert.Error(t, store.AddIntegrationRequest(ctx, &models.IntegrationRequest{}))

	list, err := store.ListIntegrationRequests(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID, "newest first")

	got, err := store.GetIntegrationRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	_, err = store.GetIntegrationRequest(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStoreViews(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	v := &models.View{
		ID:            models.DefaultViewID,
		Name:          "Default View",
		VisibleFields: []string{"date", "arrival"},
		Columns:       []models.ViewColumn{{FieldID: "date", Width: 150, Order: 1}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, store.UpsertView(ctx, v))
	require.NoError(t, store.UpsertView(ctx, &models.View{ID: "v0", Name: "Older", CreatedAt: now.Add(-time.Hour)}))

	got, err := store.GetView(ctx, models.DefaultViewID)
	require.NoError(t, err)
	got.Columns[0].Width = 10
	again, _ := store.GetView(ctx, models.DefaultViewID)
	assert.Equal(t, 150, again.Columns[0].Width, "stored view is not aliased")

	update := v.Clone()
	update.Name = "Renamed"
	update.CreatedAt = now.Add(time.Hour)
	require.NoError(t, store.UpsertView(ctx, update))
	again, _ = store.GetView(ctx, models.DefaultViewID)
	assert.Equal(t, "Renamed", again.Name)
	assert.True(t, now.Equal(again.CreatedAt), "created_at survives updates")

	list, err := store.ListViews(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "v0", list[0].ID)

	require.NoError(t, store.DeleteView(ctx, "v0"))
	assert.ErrorIs(t, store.DeleteView(ctx, "v0"), domain.ErrNotFound)
	_, err = store.GetView(ctx, "v0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Error(t, store.UpsertView(ctx, &models.View{}))
}
