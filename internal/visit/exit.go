package visit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/kozaktomas/gatex/internal/metrics"
)

// deviceLocks hands out one mutex per device. Devices are few and long
// lived, so entries are never removed.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (d *deviceLocks) get(deviceID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locks == nil {
		d.locks = make(map[string]*sync.Mutex)
	}
	l, ok := d.locks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[deviceID] = l
	}
	return l
}

// ExitMatcher handles facts from the identity camera, which serves both
// entry and exit.
type ExitMatcher struct {
	store      database.SessionStore
	correlator *Correlator
	locks      deviceLocks
}

// NewExitMatcher creates an exit matcher that falls back to correlator for entries.
func NewExitMatcher(store database.SessionStore, correlator *Correlator) *ExitMatcher {
	return &ExitMatcher{store: store, correlator: correlator}
}

// Handle closes the oldest open session on the fact's device whose stored
// name shares a match key with the fact's name. Without a name, a match, or
// after losing a close race, the fact is correlated as an entry.
func (m *ExitMatcher) Handle(ctx context.Context, f Fact) (Outcome, error) {
	if f.Role != fact.RoleID {
		return Outcome{}, fmt.Errorf("exit matching needs an %s fact, got %s", fact.RoleID, f.Role)
	}

	var name string
	if f.Text != nil {
		name, _ = ExtractName(*f.Text)
	}
	if name == "" {
		logger.Info().
			Str("trace_id", f.TraceID).
			Str("batch_id", f.ID.BatchID).
			Msg("no name label in identity text, treating as entry")
		return m.correlator.Apply(ctx, f)
	}

	lock := m.locks.get(f.ID.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	closed, err := m.closeMatching(ctx, f, name)
	if err != nil {
		return Outcome{}, err
	}
	if closed != "" {
		return Outcome{Exit: true, ClosedBatch: closed}, nil
	}
	return m.correlator.Apply(ctx, f)
}

// closeMatching returns the closed batch, or "" when nothing was closed.
func (m *ExitMatcher) closeMatching(ctx context.Context, f Fact, name string) (string, error) {
	open, err := m.store.ListOpenByDevice(ctx, f.ID.DeviceID)
	if err != nil {
		return "", fmt.Errorf("list open sessions for device %s: %w", f.ID.DeviceID, err)
	}

	for _, s := range open {
		// A redelivered entry fact must not close its own session.
		if s.BatchID == f.ID.BatchID || s.IdentityText == nil {
			continue
		}
		stored, ok := ExtractName(*s.IdentityText)
		if !ok || !SameVisitor(name, stored) {
			continue
		}

		err := m.store.CloseSession(ctx, s.BatchID, f.Captured)
		switch {
		case err == nil:
			metrics.RecordExitMatched()
			logger.Info().
				Str("trace_id", f.TraceID).
				Str("device_id", f.ID.DeviceID).
				Str("closed_batch", s.BatchID).
				Str("exit_batch", f.ID.BatchID).
				Time("exit_time", f.Captured).
				Msg("visitor exit matched")
			return s.BatchID, nil
		case errors.Is(err, database.ErrCloseConflict), errors.Is(err, database.ErrSessionNotFound):
			metrics.RecordCloseConflict()
			logger.Warn().
				Str("trace_id", f.TraceID).
				Str("batch_id", s.BatchID).
				Err(err).
				Msg("exit close lost race, treating fact as entry")
			return "", nil
		default:
			return "", fmt.Errorf("close session %s: %w", s.BatchID, err)
		}
	}
	return "", nil
}
