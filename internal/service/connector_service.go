package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrValidation marks input the caller has to fix.
var ErrValidation = errors.New("validation failed")

const (
	errBaseURL    = "Base URL must start with https://"
	errShortToken = "Token too short"
)

// ConnectionTest is what an employer submits on the setup page.
type ConnectionTest struct {
	RequestID  string `json:"request_id"`
	APIBaseURL string `json:"api_base_url"`
	AuthType   string `json:"auth_type"`
	Secret     string `json:"secret"`
}

// NewRequest is a pilot's invitation to an employer.
type NewRequest struct {
	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email"`
	CrewID       string `json:"crew_id"`
}

type ConnectorService struct {
	store    domain.Store
	executor domain.SyncExecutor
	clock    domain.Clock
	logger   *zerolog.Logger
}

func NewConnectorService(store domain.Store, executor domain.SyncExecutor, clock domain.Clock, logger *zerolog.Logger) *ConnectorService {
	if clock == nil {
		clock = domain.SystemClock
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ConnectorService{
		store:    store,
		executor: executor,
		clock:    clock,
		logger:   logger,
	}
}

func (s *ConnectorService) CreateRequest(ctx context.Context, in NewRequest) (*models.IntegrationRequest, error) {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if in.CompanyName == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}

	req := &models.IntegrationRequest{
		ID:           "req_" + uuid.NewString(),
		CompanyName:  in.CompanyName,
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		CrewID:       strings.TrimSpace(in.CrewID),
		Status:       models.RequestStatusDraft,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.AddIntegrationRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("add request: %w", err)
	}
	s.logger.Info().Str("request_id", req.ID).Str("company", req.CompanyName).Msg("Integration request created")
	return req, nil
}

func (s *ConnectorService) ListRequests(ctx context.Context) ([]*models.IntegrationRequest, error) {
	return s.store.ListIntegrationRequests(ctx)
}

func (s *ConnectorService) ListConnectors(ctx context.Context) ([]*models.Connector, error) {
	return s.store.ListConnectors(ctx)
}

func (s *ConnectorService) GetConnector(ctx context.Context, id string) (*models.Connector, error) {
	return s.store.GetConnector(ctx, id)
}

// TestConnection validates the employer's settings and stores the connector
// for the request. A failed check is not an error: the connector is saved in
// status error with LastError explaining why.
func (s *ConnectorService) TestConnection(ctx context.Context, in ConnectionTest) (*models.Connector, error) {
	req, err := s.store.GetIntegrationRequest(ctx, in.RequestID)
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", in.RequestID, err)
	}

	switch in.AuthType {
	case "":
		in.AuthType = models.AuthTypeAPIKey
	case models.AuthTypeAPIKey, models.AuthTypeBearerToken:
	default:
		return nil, fmt.Errorf("%w: unknown auth type %q", ErrValidation, in.AuthType)
	}

	now := s.clock.Now()
	conn, err := s.store.GetConnectorByRequestID(ctx, req.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		conn = &models.Connector{
			ID:        "conn_" + uuid.NewString(),
			RequestID: req.ID,
			CreatedAt: now,
		}
	case err != nil:
		return nil, fmt.Errorf("get connector for request %s: %w", req.ID, err)
	}

	conn.CompanyName = req.CompanyName
	conn.CrewID = req.CrewID
	conn.APIBaseURL = strings.TrimSpace(in.APIBaseURL)
	conn.AuthType = in.AuthType
	conn.Secret = in.Secret
	conn.Status = models.ConnectorStatusInactive
	conn.LastError = nil
	conn.LastTestAt = models.Ptr(now)
	conn.UpdatedAt = now

	if problem := checkConnection(conn.APIBaseURL, conn.Secret); problem != "" {
		conn.Status = models.ConnectorStatusError
		conn.LastError = models.Ptr(problem)
	}

	if err := s.store.UpsertConnector(ctx, conn); err != nil {
		return nil, fmt.Errorf("save connector: %w", err)
	}
	s.logger.Info().
		Str("connector_id", conn.ID).
		Str("status", conn.Status).
		Msg("Connection tested")
	return conn, nil
}

func checkConnection(baseURL, secret string) string {
	if !strings.HasPrefix(baseURL, "https://") {
		return errBaseURL
	}
	if len(secret) < models.MinSecretLength {
		return errShortToken
	}
	return ""
}

// Activate turns on auto-sync for a connector whose last test passed and
// makes it due immediately.
func (s *ConnectorService) Activate(ctx context.Context, id string) (*models.Connector, error) {
	conn, err := s.store.GetConnector(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get connector %s: %w", id, err)
	}
	if conn.LastTestAt == nil || conn.LastError != nil {
		return nil, fmt.Errorf("%w: test the connection successfully first", ErrValidation)
	}

	patch := models.ConnectorPatch{
		Status:          models.Ptr(models.ConnectorStatusActive),
		AutoSyncEnabled: models.Ptr(true),
		NextSyncAt:      models.Ptr(s.clock.Now()),
	}
	if conn.SyncIntervalMinutes == nil {
		patch.SyncIntervalMinutes = models.Ptr(models.DefaultSyncIntervalMinutes)
	}
	if err := s.store.PatchConnector(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("activate connector %s: %w", id, err)
	}
	s.logger.Info().Str("connector_id", id).Msg("Connector activated")
	return s.store.GetConnector(ctx, id)
}

// SetAutoSync toggles scheduling and optionally changes the interval.
func (s *ConnectorService) SetAutoSync(ctx context.Context, id string, enabled bool, intervalMinutes *int) (*models.Connector, error) {
	if intervalMinutes != nil && *intervalMinutes <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrValidation)
	}
	patch := models.ConnectorPatch{
		AutoSyncEnabled:     models.Ptr(enabled),
		SyncIntervalMinutes: intervalMinutes,
	}
	if err := s.store.PatchConnector(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("update auto-sync for %s: %w", id, err)
	}
	return s.store.GetConnector(ctx, id)
}

// RunSync performs one sync attempt right now, independent of the schedule.
func (s *ConnectorService) RunSync(ctx context.Context, id string) (models.SyncResult, error) {
	res, err := s.executor.Run(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("connector_id", id).Msg("Manual sync failed")
		return res, err
	}
	return res, nil
}
