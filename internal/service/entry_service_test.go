package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/events"
	"autoflightlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEntryService_ManualEntry(t *testing.T) {
	store := newStore()
	bus := new(mockEventBus)
	svc := NewEntryService(store, bus, fixedClock(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, nil)
	assert.ErrorIs(t, err, ErrValidation)

	e, err := svc.Create(ctx, map[string]any{"date": "2024-04-20", "registration": "LN-ABC"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceManual, e.Source.System)
	assert.Equal(t, models.DefaultTemplateID, e.TemplateID)
	assert.True(t, strings.HasPrefix(e.ID, "e_"))

	bus.On("PublishJSON", events.EventEntryEdited, events.EntryEditPayload{EntryID: e.ID}).Return(nil).Once()
	updated, err := svc.Update(ctx, e.ID, map[string]any{"registration": "LN-XYZ"})
	require.NoError(t, err)
	assert.Equal(t, "LN-XYZ", updated.Values["registration"])
	assert.Nil(t, updated.ManualOverrides, "manual entries are never pinned")
	bus.AssertExpectations(t)

	// unchanged values are not an edit
	_, err = svc.Update(ctx, e.ID, map[string]any{"registration": "LN-XYZ"})
	require.NoError(t, err)
	bus.AssertNumberOfCalls(t, "PublishJSON", 1)

	require.NoError(t, svc.Delete(ctx, e.ID))
	_, err = svc.Get(ctx, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntryService_OverridesOnSyncedEntry(t *testing.T) {
	store := newStore()
	bus := new(mockEventBus)
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
	svc := NewEntryService(store, bus, fixedClock(), testLogger())
	ctx := context.Background()

	synced := &models.LogbookEntry{
		ID:         "e_sync",
		TemplateID: models.DefaultTemplateID,
		Values:     map[string]any{"departure": "ENGM", "registration": "LN-ABC", "remarks": "x"},
		Source:     models.EntrySource{System: models.SourceGenericAPI, ConnectorID: "c1", ExternalKey: "c1:0"},
		CreatedAt:  testNow,
	}
	require.NoError(t, store.InsertEntry(ctx, synced))

	e, err := svc.Update(ctx, "e_sync", map[string]any{
		"registration": "LN-DEF",
		"departure":    "ENGM",
		"remarks":      nil,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"registration": true, "remarks": true}, e.ManualOverrides)
	assert.NotContains(t, e.Values, "remarks")
	bus.AssertCalled(t, "PublishJSON", events.EventEntryEdited,
		events.EntryEditPayload{EntryID: "e_sync", Overridden: []string{"registration", "remarks"}})

	e, err = svc.ClearOverride(ctx, "e_sync", "remarks")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"registration": true}, e.ManualOverrides)

	e, err = svc.ClearOverride(ctx, "e_sync", "registration")
	require.NoError(t, err)
	assert.Nil(t, e.ManualOverrides)

	stored, err := store.GetEntry(ctx, "e_sync")
	require.NoError(t, err)
	assert.Nil(t, stored.ManualOverrides)

	_, err = svc.ClearOverride(ctx, "nope", "registration")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntryService_ListSortedByDate(t *testing.T) {
	store := newStore()
	svc := NewEntryService(store, nil, fixedClock(), testLogger())
	ctx := context.Background()

	for _, d := range []string{"2024-01-10", "2024-03-05", "2023-12-31"} {
		_, err := svc.Create(ctx, map[string]any{"date": d})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2024-03-05", list[0].Values["date"])
	assert.Equal(t, "2024-01-10", list[1].Values["date"])
	assert.Equal(t, "2023-12-31", list[2].Values["date"])
}

func TestEntryService_ImportExport(t *testing.T) {
	store := newStore()
	bus := new(mockEventBus)
	bus.On("PublishJSON", events.EventEntriesImported, events.ImportPayload{Imported: 2, Warnings: 1}).Return(nil).Once()
	svc := NewEntryService(store, bus, fixedClock(), testLogger())
	ctx := context.Background()

	csvData := "Date,From,To,Total,Landings Day\n" +
		"2024-04-20,ENGM,ENBR,1.5,1\n" +
		"2024-04-21,ENBR,ENGM,oops,2\n" +
		",,,,\n"

	res, err := svc.Import(ctx, strings.NewReader(csvData), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Mappings, 5)
	assert.Equal(t, "totalTime", res.Mappings[3].FieldKey)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"Invalid Total Time: oops"}, res.Rows[1].Warnings)
	bus.AssertExpectations(t)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, e := range list {
		assert.Equal(t, models.SourceCSVImport, e.Source.System)
	}

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf, []string{"date", "departure", "totalTime"}, ""))
	assert.Equal(t,
		"Date,Departure (place),Total Time\n2024-04-21,ENBR,\n2024-04-20,ENGM,1.5\n",
		buf.String())

	buf.Reset()
	svc.WithExportFields([]string{"date", "arrival"})
	require.NoError(t, svc.ExportCSV(ctx, &buf, nil, ""))
	assert.Equal(t, "Date,Arrival (place)\n2024-04-21,ENGM\n2024-04-20,ENBR\n", buf.String())

	buf.Reset()
	require.NoError(t, svc.ExportXLSX(ctx, &buf, nil, ""))
	assert.NotZero(t, buf.Len())

	assert.Equal(t, "AutoFlightLog-export-2024-05-01.xlsx", svc.ExportFilename("xlsx"))

	cur, err := svc.Currency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cur.Landings90.ActualCount)
	assert.True(t, cur.Landings90.Met)
	assert.False(t, cur.NightLandings90.Met)
}

func TestEntryService_FollowsViews(t *testing.T) {
	store := newStore()
	views := NewViewService(store, fixedClock(), testLogger())
	svc := NewEntryService(store, nil, fixedClock(), testLogger()).WithViews(views)
	ctx := context.Background()

	for _, values := range []map[string]any{
		{"date": "2024-01-10", "registration": "LN-B", "totalTime": 1.5},
		{"date": "2024-03-05", "registration": "LN-C", "totalTime": 0.5},
		{"date": "2023-12-31", "registration": "LN-A", "totalTime": 2.0},
	} {
		_, err := svc.Create(ctx, values)
		require.NoError(t, err)
	}

	t.Run("DefaultViewBeforeSeeding", func(t *testing.T) {
		list, view, err := svc.ListInView(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, models.DefaultViewID, view.ID)
		assert.Equal(t, "2024-03-05", list[0].Values["date"])
	})

	t.Run("SeededDefaultDrivesExport", func(t *testing.T) {
		def, err := views.EnsureDefault(ctx)
		require.NoError(t, err)
		def.Columns = []models.ViewColumn{
			{FieldID: "registration", Width: 100, Order: 1},
			{FieldID: "date", Width: 100, Order: 2},
		}
		def.SortBy = "registration"
		def.SortOrder = models.SortAsc
		_, err = views.Save(ctx, def)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, svc.ExportCSV(ctx, &buf, nil, ""))
		assert.Equal(t,
			"Registration,Date\nLN-A,2023-12-31\nLN-B,2024-01-10\nLN-C,2024-03-05\n",
			buf.String())

		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, "LN-A", list[0].Values["registration"])
	})

	t.Run("NamedView", func(t *testing.T) {
		v, err := views.Save(ctx, &models.View{
			Name:          "Hours",
			VisibleFields: []string{"totalTime", "registration"},
			SortBy:        "totalTime",
		})
		require.NoError(t, err)
		assert.Equal(t, models.SortDesc, v.SortOrder)

		var buf bytes.Buffer
		require.NoError(t, svc.ExportCSV(ctx, &buf, nil, v.ID))
		assert.Equal(t,
			"Total Time,Registration\n2,LN-A\n1.5,LN-B\n0.5,LN-C\n",
			buf.String())
	})

	t.Run("ConfiguredFieldsWinOverView", func(t *testing.T) {
		svc.WithExportFields([]string{"date"})
		defer svc.WithExportFields(nil)

		var buf bytes.Buffer
		require.NoError(t, svc.ExportCSV(ctx, &buf, nil, ""))
		assert.True(t, strings.HasPrefix(buf.String(), "Date\n"))
	})

	t.Run("UnknownView", func(t *testing.T) {
		_, _, err := svc.ListInView(ctx, "view_missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		var buf bytes.Buffer
		assert.ErrorIs(t, svc.ExportXLSX(ctx, &buf, nil, "view_missing"), domain.ErrNotFound)
	})
}

func TestEntryService_Suggestions(t *testing.T) {
	store := newStore()
	svc := NewEntryService(store, nil, fixedClock(), testLogger())
	ctx := context.Background()

	for _, reg := range []string{"LN-ABC", "LN-XYZ", "LN-ABC"} {
		_, err := svc.Create(ctx, map[string]any{"registration": reg})
		require.NoError(t, err)
	}

	got, err := svc.Suggestions(ctx, "registration", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"LN-ABC", "LN-XYZ"}, got)

	_, err = svc.Suggestions(ctx, "bogus", 5)
	assert.ErrorIs(t, err, ErrValidation)
}
