package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/logbook"
	"autoflightlog/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ViewService manages saved logbook views.
type ViewService struct {
	views  domain.ViewStore
	clock  domain.Clock
	logger *zerolog.Logger
}

func NewViewService(views domain.ViewStore, clock domain.Clock, logger *zerolog.Logger) *ViewService {
	if clock == nil {
		clock = domain.SystemClock
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ViewService{views: views, clock: clock, logger: logger}
}

// EnsureDefault seeds the default view unless it already exists.
func (s *ViewService) EnsureDefault(ctx context.Context) (*models.View, error) {
	v, err := s.views.GetView(ctx, models.DefaultViewID)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get default view: %w", err)
	}

	v = logbook.DefaultView(s.clock.Now())
	if err := s.views.UpsertView(ctx, v); err != nil {
		return nil, fmt.Errorf("seed default view: %w", err)
	}
	s.logger.Info().Str("view_id", v.ID).Msg("Default view created")
	return v, nil
}

func (s *ViewService) List(ctx context.Context) ([]*models.View, error) {
	return s.views.ListViews(ctx)
}

func (s *ViewService) Get(ctx context.Context, id string) (*models.View, error) {
	return s.views.GetView(ctx, id)
}

// Resolve returns the view with id, the default view when id is empty.
// A missing default view is built on the fly so reads never fail on a
// fresh store.
func (s *ViewService) Resolve(ctx context.Context, id string) (*models.View, error) {
	if id == "" {
		id = models.DefaultViewID
	}
	v, err := s.views.GetView(ctx, id)
	if errors.Is(err, domain.ErrNotFound) && id == models.DefaultViewID {
		return logbook.DefaultView(s.clock.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get view %s: %w", id, err)
	}
	return v, nil
}

// Save creates or replaces a view. An empty ID creates a new one.
func (s *ViewService) Save(ctx context.Context, v *models.View) (*models.View, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: view is required", ErrValidation)
	}
	v = v.Clone()
	v.Name = strings.TrimSpace(v.Name)
	if err := logbook.ValidateView(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if v.TemplateID == "" {
		v.TemplateID = models.DefaultTemplateID
	}
	if v.SortOrder == "" && v.SortBy != "" {
		v.SortOrder = models.SortDesc
	}

	now := s.clock.Now()
	if v.ID == "" {
		v.ID = "view_" + uuid.NewString()
		v.CreatedAt = now
	} else {
		existing, err := s.views.GetView(ctx, v.ID)
		switch {
		case err == nil:
			v.CreatedAt = existing.CreatedAt
		case errors.Is(err, domain.ErrNotFound):
			v.CreatedAt = now
		default:
			return nil, fmt.Errorf("get view %s: %w", v.ID, err)
		}
	}
	v.UpdatedAt = now

	if err := s.views.UpsertView(ctx, v); err != nil {
		return nil, fmt.Errorf("save view %s: %w", v.ID, err)
	}
	s.logger.Info().Str("view_id", v.ID).Int("fields", len(v.FieldKeys())).Msg("View saved")
	return v, nil
}

// Delete removes a saved view. The default view cannot be deleted.
func (s *ViewService) Delete(ctx context.Context, id string) error {
	if id == models.DefaultViewID {
		return fmt.Errorf("%w: the default view cannot be deleted", ErrValidation)
	}
	return s.views.DeleteView(ctx, id)
}
