package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/gatex/internal/database"
)

// SessionRepository provides PostgreSQL-backed visitor session storage
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByBatch retrieves a session by batch ID, returns nil if not found
func (r *SessionRepository) GetByBatch(ctx context.Context, batchID string) (*database.VisitorSession, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+database.SessionColumns+` FROM visitor_sessions WHERE batch_id = $1`, batchID)
	s, err := database.ScanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Wrap("get session", err)
	}
	return s, nil
}

// UpsertCameraSlot inserts the session or overwrites one slot column; a nil
// face thumbnail keeps the stored one. xmax is zero only for a freshly
// inserted tuple.
func (r *SessionRepository) UpsertCameraSlot(ctx context.Context, u database.SlotUpdate) (bool, error) {
	if !u.Slot.Valid() {
		return false, fmt.Errorf("invalid slot %q", u.Slot)
	}
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	col := string(u.Slot)
	date, day := database.EntryDate(u.EntryTime)
	query := `
		INSERT INTO visitor_sessions (batch_id, device_id, visit_date, day_of_week, entry_time, ` + col + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (batch_id) DO UPDATE SET
			` + col + ` = ` + database.SlotAssignment(u.Slot, "EXCLUDED."+col, "visitor_sessions."+col) + `,
			updated_at = NOW()
		RETURNING (xmax = 0)`

	var created bool
	err := r.pool.db.QueryRowContext(ctx, query,
		u.BatchID, u.DeviceID, date, day, u.EntryTime.UTC(), u.Value()).Scan(&created)
	if err != nil {
		return false, database.Wrap("upsert camera slot", err)
	}
	return created, nil
}

// ListOpenByDevice returns open sessions of a device, oldest entry first
func (r *SessionRepository) ListOpenByDevice(ctx context.Context, deviceID string) ([]database.VisitorSession, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT `+database.SessionColumns+`
		FROM visitor_sessions
		WHERE device_id = $1 AND exit_time IS NULL
		ORDER BY entry_time ASC, batch_id ASC`, deviceID)
	if err != nil {
		return nil, database.Wrap("list open sessions", err)
	}
	sessions, err := database.ScanSessions(rows)
	if err != nil {
		return nil, database.Wrap("list open sessions", err)
	}
	return sessions, nil
}

// CloseSession sets exit_time only while it is still NULL
func (r *SessionRepository) CloseSession(ctx context.Context, batchID string, exitTime time.Time) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE visitor_sessions SET exit_time = $2, updated_at = NOW()
		WHERE batch_id = $1 AND exit_time IS NULL`,
		batchID, exitTime.UTC())
	if err != nil {
		return database.Wrap("close session", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return database.Wrap("close session", err)
	}
	if affected == 1 {
		return nil
	}

	exists, err := r.exists(ctx, batchID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("close batch %s: %w", batchID, database.ErrSessionNotFound)
	}
	return fmt.Errorf("close batch %s: %w", batchID, database.ErrCloseConflict)
}

// ListOverstayCandidates returns open sessions that entered at or before
// threshold and have not been alerted
func (r *SessionRepository) ListOverstayCandidates(ctx context.Context, threshold time.Time) ([]database.VisitorSession, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT `+database.SessionColumns+`
		FROM visitor_sessions
		WHERE alert_sent = FALSE AND exit_time IS NULL AND entry_time <= $1
		ORDER BY entry_time ASC, batch_id ASC`, threshold.UTC())
	if err != nil {
		return nil, database.Wrap("list overstay candidates", err)
	}
	sessions, err := database.ScanSessions(rows)
	if err != nil {
		return nil, database.Wrap("list overstay candidates", err)
	}
	return sessions, nil
}

// MarkAlerted sets alert_sent; marking an alerted session again is a no-op
func (r *SessionRepository) MarkAlerted(ctx context.Context, batchID string) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE visitor_sessions SET alert_sent = TRUE, updated_at = NOW() WHERE batch_id = $1`, batchID)
	if err != nil {
		return database.Wrap("mark alerted", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return database.Wrap("mark alerted", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark batch %s: %w", batchID, database.ErrSessionNotFound)
	}
	return nil
}

// ListRecent returns the newest sessions of a device
func (r *SessionRepository) ListRecent(ctx context.Context, deviceID string, limit int) ([]database.VisitorSession, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT `+database.SessionColumns+`
		FROM visitor_sessions
		WHERE device_id = $1
		ORDER BY entry_time DESC, batch_id DESC
		LIMIT $2`, deviceID, database.ClampLimit(limit))
	if err != nil {
		return nil, database.Wrap("list recent sessions", err)
	}
	sessions, err := database.ScanSessions(rows)
	if err != nil {
		return nil, database.Wrap("list recent sessions", err)
	}
	return sessions, nil
}

func (r *SessionRepository) exists(ctx context.Context, batchID string) (bool, error) {
	var ok bool
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM visitor_sessions WHERE batch_id = $1)`, batchID).Scan(&ok)
	if err != nil {
		return false, database.Wrap("check session", err)
	}
	return ok, nil
}

var _ database.SessionStore = (*SessionRepository)(nil)
