package service

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/events"
	"autoflightlog/internal/logbook"
	"autoflightlog/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImportResult reports what a CSV import did.
type ImportResult struct {
	Imported int                     `json:"imported"`
	Mappings []logbook.ColumnMapping `json:"mappings"`
	Rows     []logbook.MappedRow     `json:"rows,omitempty"`
}

type EntryService struct {
	entries      domain.EntryStore
	eventBus     domain.EventPublisher
	clock        domain.Clock
	logger       *zerolog.Logger
	exportFields []string
	views        *ViewService
}

func NewEntryService(entries domain.EntryStore, eventBus domain.EventPublisher, clock domain.Clock, logger *zerolog.Logger) *EntryService {
	if clock == nil {
		clock = domain.SystemClock
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EntryService{
		entries:  entries,
		eventBus: eventBus,
		clock:    clock,
		logger:   logger,
	}
}

func (s *EntryService) Create(ctx context.Context, values map[string]any) (*models.LogbookEntry, error) {
	return s.insert(ctx, values, models.SourceManual)
}

func (s *EntryService) insert(ctx context.Context, values map[string]any, source string) (*models.LogbookEntry, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: entry has no values", ErrValidation)
	}
	now := s.clock.Now()
	e := &models.LogbookEntry{
		ID:         "e_" + uuid.NewString(),
		TemplateID: models.DefaultTemplateID,
		Values:     values,
		Source:     models.EntrySource{System: source},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.entries.InsertEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

func (s *EntryService) Get(ctx context.Context, id string) (*models.LogbookEntry, error) {
	return s.entries.GetEntry(ctx, id)
}

// List returns every entry in the order of the default view.
func (s *EntryService) List(ctx context.Context) ([]*models.LogbookEntry, error) {
	list, _, err := s.ListInView(ctx, "")
	return list, err
}

// ListInView returns every entry sorted the way the view asks, along with
// the view itself. An empty viewID means the default view.
func (s *EntryService) ListInView(ctx context.Context, viewID string) ([]*models.LogbookEntry, *models.View, error) {
	view, err := s.view(ctx, viewID)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.entries.ListEntries(ctx)
	if err != nil {
		return nil, nil, err
	}
	logbook.SortEntries(list, view.SortBy, view.SortOrder)
	return list, view, nil
}

func (s *EntryService) view(ctx context.Context, viewID string) (*models.View, error) {
	if s.views == nil {
		if viewID != "" && viewID != models.DefaultViewID {
			return nil, fmt.Errorf("view %s: %w", viewID, domain.ErrNotFound)
		}
		return logbook.DefaultView(s.clock.Now()), nil
	}
	return s.views.Resolve(ctx, viewID)
}

// Update merges values into the entry; a nil value removes the key. On
// entries owned by a connector every changed key is pinned so later syncs
// leave it alone.
func (s *EntryService) Update(ctx context.Context, id string, values map[string]any) (*models.LogbookEntry, error) {
	e, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}

	if e.Values == nil {
		e.Values = make(map[string]any, len(values))
	}
	var changed []string
	for k, v := range values {
		old, had := e.Values[k]
		if v == nil {
			if !had {
				continue
			}
			delete(e.Values, k)
		} else {
			if had && reflect.DeepEqual(old, v) {
				continue
			}
			e.Values[k] = v
		}
		changed = append(changed, k)
	}
	if len(changed) == 0 {
		return e, nil
	}
	sort.Strings(changed)

	var pinned []string
	if e.IsExternal() {
		if e.ManualOverrides == nil {
			e.ManualOverrides = make(map[string]bool, len(changed))
		}
		for _, k := range changed {
			e.ManualOverrides[k] = true
		}
		pinned = changed
	}
	e.UpdatedAt = s.clock.Now()

	if err := s.entries.UpdateEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("update entry %s: %w", id, err)
	}

	s.publish(events.EventEntryEdited, events.EntryEditPayload{EntryID: id, Overridden: pinned})
	return e, nil
}

func (s *EntryService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// ClearOverride lets sync own the field again.
func (s *EntryService) ClearOverride(ctx context.Context, id, key string) (*models.LogbookEntry, error) {
	e, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	if !e.Overridden(key) {
		return e, nil
	}
	delete(e.ManualOverrides, key)
	if len(e.ManualOverrides) == 0 {
		e.ManualOverrides = nil
	}
	e.UpdatedAt = s.clock.Now()
	if err := s.entries.UpdateEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("update entry %s: %w", id, err)
	}
	return e, nil
}

func (s *EntryService) Delete(ctx context.Context, id string) error {
	return s.entries.DeleteEntry(ctx, id)
}

// Import reads a CSV logbook. With no mappings the columns are guessed from
// the headers. Rows that only produced warnings are reported but not stored.
func (s *EntryService) Import(ctx context.Context, r io.Reader, mappings []logbook.ColumnMapping) (*ImportResult, error) {
	parsed, err := logbook.ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(mappings) == 0 {
		mappings = logbook.MapColumns(parsed.Headers)
	}

	res := &ImportResult{Mappings: mappings, Rows: logbook.MapRows(parsed, mappings)}
	warnings := 0
	for _, row := range res.Rows {
		warnings += len(row.Warnings)
		if len(row.Values) == 0 {
			continue
		}
		if _, err := s.insert(ctx, row.Values, models.SourceCSVImport); err != nil {
			return res, fmt.Errorf("import line %d: %w", row.Line, err)
		}
		res.Imported++
	}

	s.logger.Info().Int("imported", res.Imported).Int("warnings", warnings).Msg("CSV import finished")
	s.publish(events.EventEntriesImported, events.ImportPayload{Imported: res.Imported, Warnings: warnings})
	return res, nil
}

// WithExportFields sets the columns exported when a call selects none.
// They take precedence over the view's columns.
func (s *EntryService) WithExportFields(keys []string) *EntryService {
	s.exportFields = keys
	return s
}

// WithViews makes List and exports follow saved views.
func (s *EntryService) WithViews(views *ViewService) *EntryService {
	s.views = views
	return s
}

// exportRows picks the entries and columns for an export: explicit fields
// first, then the configured export fields, then the view's columns.
func (s *EntryService) exportRows(ctx context.Context, fieldKeys []string, viewID string) ([]*models.LogbookEntry, []logbook.Field, error) {
	list, view, err := s.ListInView(ctx, viewID)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case len(fieldKeys) > 0:
		return list, logbook.SelectFields(fieldKeys), nil
	case len(s.exportFields) > 0:
		return list, logbook.SelectFields(s.exportFields), nil
	}
	if fields := logbook.OrderedFields(view.FieldKeys()); len(fields) > 0 {
		return list, fields, nil
	}
	return list, logbook.Catalog, nil
}

// ExportCSV writes the chosen fields of all entries in view order.
func (s *EntryService) ExportCSV(ctx context.Context, w io.Writer, fieldKeys []string, viewID string) error {
	list, fields, err := s.exportRows(ctx, fieldKeys, viewID)
	if err != nil {
		return err
	}
	return logbook.WriteCSV(w, list, fields)
}

func (s *EntryService) ExportXLSX(ctx context.Context, w io.Writer, fieldKeys []string, viewID string) error {
	list, fields, err := s.exportRows(ctx, fieldKeys, viewID)
	if err != nil {
		return err
	}
	return logbook.WriteXLSX(w, list, fields)
}

// Suggestions returns past values of a field for autocomplete.
func (s *EntryService) Suggestions(ctx context.Context, key string, limit int) ([]string, error) {
	if _, ok := logbook.Lookup(key); !ok {
		return nil, fmt.Errorf("%w: unknown field %q", ErrValidation, key)
	}
	list, err := s.entries.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return logbook.Suggestions(list, key, limit), nil
}

// ExportFilename names an export produced now.
func (s *EntryService) ExportFilename(ext string) string {
	return logbook.ExportFilename(s.clock.Now(), ext)
}

func (s *EntryService) Currency(ctx context.Context) (logbook.CurrencySummary, error) {
	list, err := s.entries.ListEntries(ctx)
	if err != nil {
		return logbook.CurrencySummary{}, err
	}
	return logbook.Currency(list, s.clock.Now()), nil
}
