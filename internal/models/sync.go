package models

// SyncReason names the trigger that asked for a tick.
type SyncReason string

const (
	ReasonStartup    SyncReason = "startup"
	ReasonTimer      SyncReason = "timer"
	ReasonOnline     SyncReason = "online"
	ReasonFocus      SyncReason = "focus"
	ReasonVisibility SyncReason = "visibility"
	ReasonWake       SyncReason = "sw"
	ReasonManual     SyncReason = "manual"
)

// ParseSyncReason maps a wire value to a known reason.
func ParseSyncReason(s string) (SyncReason, bool) {
	switch r := SyncReason(s); r {
	case ReasonStartup, ReasonTimer, ReasonOnline, ReasonFocus, ReasonVisibility, ReasonWake, ReasonManual:
		return r, true
	}
	return "", false
}

// SyncOutcome is the result of one connector attempt inside a tick.
type SyncOutcome struct {
	ConnectorID string `json:"connector_id"`
	OK          bool   `json:"ok"`
	Inserted    int    `json:"inserted,omitempty"`
	Updated     int    `json:"updated,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SyncSummary aggregates the outcomes of one tick.
type SyncSummary struct {
	Reason    SyncReason    `json:"reason"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []SyncOutcome `json:"results"`
}

// NewSyncSummary folds outcomes into counts.
func NewSyncSummary(reason SyncReason, results []SyncOutcome) SyncSummary {
	if results == nil {
		results = []SyncOutcome{}
	}
	s := SyncSummary{Reason: reason, Attempted: len(results), Results: results}
	for _, r := range results {
		if r.OK {
			s.Succeeded++
		}
	}
	s.Failed = s.Attempted - s.Succeeded
	return s
}

// SyncResult is what one successful executor run changed.
type SyncResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
