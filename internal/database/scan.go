package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionColumns is the column list ScanSession expects, in order.
const SessionColumns = `device_id, batch_id, visit_date, day_of_week, entry_time, exit_time,
	identity_text, plate_text, face_thumbnail, alert_sent, created_at, updated_at`

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanSession reads one visitor_sessions row selected with SessionColumns.
func ScanSession(sc RowScanner) (*VisitorSession, error) {
	var (
		s         VisitorSession
		visitDate time.Time
		exitTime  sql.NullTime
		identity  sql.NullString
		plate     sql.NullString
		thumbnail []byte
	)
	err := sc.Scan(
		&s.DeviceID,
		&s.BatchID,
		&visitDate,
		&s.DayOfWeek,
		&s.EntryTime,
		&exitTime,
		&identity,
		&plate,
		&thumbnail,
		&s.AlertSent,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.Date = visitDate.Format("2006-01-02")
	if exitTime.Valid {
		t := exitTime.Time
		s.ExitTime = &t
	}
	if identity.Valid {
		s.IdentityText = &identity.String
	}
	if plate.Valid {
		s.PlateText = &plate.String
	}
	if len(thumbnail) > 0 {
		s.FaceThumbnail = thumbnail
	}
	return &s, nil
}

// ScanSessions drains rows into a slice.
func ScanSessions(rows *sql.Rows) ([]VisitorSession, error) {
	defer rows.Close()

	var sessions []VisitorSession
	for rows.Next() {
		s, err := ScanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
