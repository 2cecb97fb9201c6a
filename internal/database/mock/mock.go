// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/gatex/internal/database"
)

// MockSessionStore is an in-memory implementation of database.SessionStore
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*database.VisitorSession
	now      func() time.Time

	// Error injection
	GetError          error
	ListOpenError     error
	UpsertError       error
	CloseError        error
	ListOverstayError error
	MarkAlertedError  error
	ListRecentError   error

	// Call counters
	MarkAlertedCalls  int
	CloseSessionCalls int
	UpsertCameraCalls int
}

// NewMockSessionStore creates a new empty mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]*database.VisitorSession),
		now:      time.Now,
	}
}

// AddSession seeds a session directly, bypassing upsert semantics
func (m *MockSessionStore) AddSession(s database.VisitorSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Date == "" {
		s.Date, s.DayOfWeek = database.EntryDate(s.EntryTime)
	}
	m.sessions[s.BatchID] = &s
}

// Sessions returns a copy of every stored session ordered by batch ID
func (m *MockSessionStore) Sessions() []database.VisitorSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.VisitorSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, copySession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out
}

func copySession(s *database.VisitorSession) database.VisitorSession {
	c := *s
	if s.ExitTime != nil {
		t := *s.ExitTime
		c.ExitTime = &t
	}
	if s.IdentityText != nil {
		v := *s.IdentityText
		c.IdentityText = &v
	}
	if s.PlateText != nil {
		v := *s.PlateText
		c.PlateText = &v
	}
	if s.FaceThumbnail != nil {
		c.FaceThumbnail = append([]byte(nil), s.FaceThumbnail...)
	}
	return c
}

// GetByBatch returns the session for a batch or nil
func (m *MockSessionStore) GetByBatch(ctx context.Context, batchID string) (*database.VisitorSession, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[batchID]
	if !ok {
		return nil, nil
	}
	c := copySession(s)
	return &c, nil
}

// UpsertCameraSlot creates or updates one slot of a session
func (m *MockSessionStore) UpsertCameraSlot(ctx context.Context, u database.SlotUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCameraCalls++
	if m.UpsertError != nil {
		return false, m.UpsertError
	}
	if !u.Slot.Valid() {
		return false, fmt.Errorf("invalid slot %q", u.Slot)
	}

	now := m.now().UTC()
	s, exists := m.sessions[u.BatchID]
	if !exists {
		date, day := database.EntryDate(u.EntryTime)
		s = &database.VisitorSession{
			DeviceID:  u.DeviceID,
			BatchID:   u.BatchID,
			Date:      date,
			DayOfWeek: day,
			EntryTime: u.EntryTime.UTC(),
			CreatedAt: now,
		}
		m.sessions[u.BatchID] = s
	}
	switch u.Slot {
	case database.SlotIdentityText:
		s.IdentityText = copyString(u.Text)
	case database.SlotPlateText:
		s.PlateText = copyString(u.Text)
	case database.SlotFaceThumbnail:
		if u.Thumbnail != nil {
			s.FaceThumbnail = append([]byte(nil), u.Thumbnail...)
		}
	}
	s.UpdatedAt = now
	return !exists, nil
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (m *MockSessionStore) filter(keep func(*database.VisitorSession) bool) []database.VisitorSession {
	var out []database.VisitorSession
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, copySession(s))
		}
	}
	return out
}

func byEntryAsc(sessions []database.VisitorSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].EntryTime.Equal(sessions[j].EntryTime) {
			return sessions[i].EntryTime.Before(sessions[j].EntryTime)
		}
		return sessions[i].BatchID < sessions[j].BatchID
	})
}

// ListOpenByDevice returns open sessions of a device, oldest first
func (m *MockSessionStore) ListOpenByDevice(ctx context.Context, deviceID string) ([]database.VisitorSession, error) {
	if m.ListOpenError != nil {
		return nil, m.ListOpenError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(s *database.VisitorSession) bool {
		return s.DeviceID == deviceID && s.ExitTime == nil
	})
	byEntryAsc(out)
	return out, nil
}

// CloseSession sets exit_time if it is still nil
func (m *MockSessionStore) CloseSession(ctx context.Context, batchID string, exitTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseSessionCalls++
	if m.CloseError != nil {
		return m.CloseError
	}
	s, ok := m.sessions[batchID]
	if !ok {
		return fmt.Errorf("close batch %s: %w", batchID, database.ErrSessionNotFound)
	}
	if s.ExitTime != nil {
		return fmt.Errorf("close batch %s: %w", batchID, database.ErrCloseConflict)
	}
	t := exitTime.UTC()
	s.ExitTime = &t
	s.UpdatedAt = m.now().UTC()
	return nil
}

// ListOverstayCandidates returns open unalerted sessions entered at or before threshold
func (m *MockSessionStore) ListOverstayCandidates(ctx context.Context, threshold time.Time) ([]database.VisitorSession, error) {
	if m.ListOverstayError != nil {
		return nil, m.ListOverstayError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(s *database.VisitorSession) bool {
		return !s.AlertSent && s.ExitTime == nil && !s.EntryTime.After(threshold)
	})
	byEntryAsc(out)
	return out, nil
}

// MarkAlerted sets alert_sent
func (m *MockSessionStore) MarkAlerted(ctx context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkAlertedCalls++
	if m.MarkAlertedError != nil {
		return m.MarkAlertedError
	}
	s, ok := m.sessions[batchID]
	if !ok {
		return fmt.Errorf("mark batch %s: %w", batchID, database.ErrSessionNotFound)
	}
	s.AlertSent = true
	return nil
}

// ListRecent returns the newest sessions of a device
func (m *MockSessionStore) ListRecent(ctx context.Context, deviceID string, limit int) ([]database.VisitorSession, error) {
	if m.ListRecentError != nil {
		return nil, m.ListRecentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(s *database.VisitorSession) bool { return s.DeviceID == deviceID })
	byEntryAsc(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit = database.ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockDirectoryReader is a mock implementation of database.DirectoryReader
type MockDirectoryReader struct {
	mu        sync.Mutex
	customers []database.Customer
	locations []database.Location

	// Error injection
	LoadError error
	LoadCalls int
}

// NewMockDirectoryReader creates a new empty mock directory
func NewMockDirectoryReader() *MockDirectoryReader {
	return &MockDirectoryReader{}
}

// AddCustomer registers a customer contact for devices
func (m *MockDirectoryReader) AddCustomer(customerID, email string, deviceIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = append(m.customers, database.Customer{CustomerID: customerID, ContactEmail: email, DeviceIDs: deviceIDs})
}

// AddLocation registers a location for devices
func (m *MockDirectoryReader) AddLocation(project, building string, deviceIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, database.Location{ProjectName: project, BuildingName: building, DeviceIDs: deviceIDs})
}

// LoadDirectory builds a directory snapshot
func (m *MockDirectoryReader) LoadDirectory(ctx context.Context) (*database.Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return database.NewDirectory(m.customers, m.locations), nil
}

var (
	_ database.SessionStore    = (*MockSessionStore)(nil)
	_ database.DirectoryReader = (*MockDirectoryReader)(nil)
)
