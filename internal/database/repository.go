package database

import (
	"context"
	"time"
)

// SessionReader provides read-only access to visitor sessions
type SessionReader interface {
	// GetByBatch returns the session for a batch, or nil if none exists
	GetByBatch(ctx context.Context, batchID string) (*VisitorSession, error)
	// ListOpenByDevice returns sessions without an exit time, oldest entry first
	ListOpenByDevice(ctx context.Context, deviceID string) ([]VisitorSession, error)
	// ListOverstayCandidates returns open, unalerted sessions that entered at or before threshold
	ListOverstayCandidates(ctx context.Context, threshold time.Time) ([]VisitorSession, error)
	// ListRecent returns the newest sessions of a device, newest entry first
	ListRecent(ctx context.Context, deviceID string, limit int) ([]VisitorSession, error)
}

// SessionStore provides read and write access to visitor sessions.
// Every method commits atomically; a failed call leaves the prior state intact.
type SessionStore interface {
	SessionReader

	// UpsertCameraSlot creates the session with u.EntryTime, or updates only
	// u.Slot of an existing one. Reports whether a session was created.
	UpsertCameraSlot(ctx context.Context, u SlotUpdate) (bool, error)

	// CloseSession sets exit_time if it is still null. Returns ErrCloseConflict
	// when the session is already closed and ErrSessionNotFound when it does not exist.
	CloseSession(ctx context.Context, batchID string, exitTime time.Time) error

	// MarkAlerted sets alert_sent. Calling it again is a no-op.
	MarkAlerted(ctx context.Context, batchID string) error
}

// DirectoryReader loads the device directory.
type DirectoryReader interface {
	LoadDirectory(ctx context.Context) (*Directory, error)
}
