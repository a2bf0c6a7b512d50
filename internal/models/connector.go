package models

import "time"

const (
	ConnectorStatusInactive = "inactive"
	ConnectorStatusActive   = "active"
	ConnectorStatusError    = "error"
)

const (
	AuthTypeAPIKey      = "api_key"
	AuthTypeBearerToken = "bearer_token"
)

const (
	SyncStatusOK    = "ok"
	SyncStatusError = "error"
)

// Connector links a pilot's logbook to an employer crew-management system.
//
// Optional fields are pointers: a nil
// LastSyncAt means "never synced", which is not the same as a zero time.
type Connector struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id"`
	CompanyName string `json:"company_name,omitempty"`
	CrewID      string `json:"crew_id,omitempty"`

	APIBaseURL string `json:"api_base_url"`
	AuthType   string `json:"auth_type"`
	Secret     string `json:"-"`

	Status              string `json:"status"`
	AutoSyncEnabled     *bool  `json:"auto_sync_enabled,omitempty"`
	SyncIntervalMinutes *int   `json:"sync_interval_minutes,omitempty"`

	LastTestAt *time.Time `json:"last_test_at,omitempty"`
	LastError  *string    `json:"last_error,omitempty"`

	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	LastSyncAttemptAt   *time.Time `json:"last_sync_attempt_at,omitempty"`
	LastSyncStatus      *string    `json:"last_sync_status,omitempty"`
	LastSyncError       *string    `json:"last_sync_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	NextSyncAt          *time.Time `json:"next_sync_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncEligible reports whether the scheduler may consider the connector at all.
func (c *Connector) SyncEligible() bool {
	if c == nil || c.Status != ConnectorStatusActive {
		return false
	}
	return c.AutoSyncEnabled == nil || *c.AutoSyncEnabled
}

// IntervalMinutes returns the configured interval or the default when unset or non-positive.
func (c *Connector) IntervalMinutes() int {
	if c == nil || c.SyncIntervalMinutes == nil || *c.SyncIntervalMinutes <= 0 {
		return DefaultSyncIntervalMinutes
	}
	return *c.SyncIntervalMinutes
}

// ConnectorPatch is a merge-patch: nil fields are left untouched.
type ConnectorPatch struct {
	CompanyName *string
	CrewID      *string
	APIBaseURL  *string
	AuthType    *string
	Secret      *string

	Status              *string
	AutoSyncEnabled     *bool
	SyncIntervalMinutes *int

	LastTestAt     *time.Time
	LastError      *string
	ClearLastError bool

	LastSyncAt          *time.Time
	LastSyncAttemptAt   *time.Time
	LastSyncStatus      *string
	LastSyncError       *string
	ClearLastSyncError  bool
	ConsecutiveFailures *int
	NextSyncAt          *time.Time
}

// Apply merges the patch into c.
func (p ConnectorPatch) Apply(c *Connector) {
	if p.CompanyName != nil {
		c.CompanyName = *p.CompanyName
	}
	if p.CrewID != nil {
		c.CrewID = *p.CrewID
	}
	if p.APIBaseURL != nil {
		c.APIBaseURL = *p.APIBaseURL
	}
	if p.AuthType != nil {
		c.AuthType = *p.AuthType
	}
	if p.Secret != nil {
		c.Secret = *p.Secret
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.AutoSyncEnabled != nil {
		c.AutoSyncEnabled = Ptr(*p.AutoSyncEnabled)
	}
	if p.SyncIntervalMinutes != nil {
		c.SyncIntervalMinutes = Ptr(*p.SyncIntervalMinutes)
	}
	if p.LastTestAt != nil {
		c.LastTestAt = Ptr(*p.LastTestAt)
	}
	if p.ClearLastError {
		c.LastError = nil
	} else if p.LastError != nil {
		c.LastError = Ptr(*p.LastError)
	}
	if p.LastSyncAt != nil {
		c.LastSyncAt = Ptr(*p.LastSyncAt)
	}
	if p.LastSyncAttemptAt != nil {
		c.LastSyncAttemptAt = Ptr(*p.LastSyncAttemptAt)
	}
	if p.LastSyncStatus != nil {
		c.LastSyncStatus = Ptr(*p.LastSyncStatus)
	}
	if p.ClearLastSyncError {
		c.LastSyncError = nil
	} else if p.LastSyncError != nil {
		c.LastSyncError = Ptr(*p.LastSyncError)
	}
	if p.ConsecutiveFailures != nil {
		c.ConsecutiveFailures = *p.ConsecutiveFailures
	}
	if p.NextSyncAt != nil {
		c.NextSyncAt = Ptr(*p.NextSyncAt)
	}
}

// IntegrationRequest is the pilot-side invitation an employer answers with a connector.
type IntegrationRequest struct {
	ID           string    `json:"id"`
	CompanyName  string    `json:"company_name"`
	ContactEmail string    `json:"contact_email"`
	CrewID       string    `json:"crew_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	RequestStatusDraft = "draft"
	RequestStatusSent  = "sent"
)

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
