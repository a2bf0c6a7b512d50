package models

const (
	// DefaultSyncIntervalMinutes is used when a connector has no positive interval (12h).
	DefaultSyncIntervalMinutes = 12 * 60

	// DefaultTemplateID is the built-in EASA template.
	DefaultTemplateID = "tmpl_easa_default"

	// DefaultTickIntervalSeconds is the scheduler polling period.
	DefaultTickIntervalSeconds = 60

	// DefaultLockTTLSeconds bounds how long a crashed holder can block others.
	DefaultLockTTLSeconds = 60

	// DefaultLockKey is shared by every process of one installation.
	DefaultLockKey = "autoflightlog:sync_lock:v1"

	// MaxJitterMinutes spreads successful syncs (0..4 minutes inclusive).
	MaxJitterMinutes = 4

	// MinSecretLength is the shortest token accepted by the connection test.
	MinSecretLength = 8
)
