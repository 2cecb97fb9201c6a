package visit

import (
	"context"
	"fmt"

	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/kozaktomas/gatex/internal/metrics"
)

// slotForRole is the session column each camera role writes.
var slotForRole = map[fact.Role]database.Slot{
	fact.RoleID:    database.SlotIdentityText,
	fact.RolePlate: database.SlotPlateText,
	fact.RoleFace:  database.SlotFaceThumbnail,
}

// SlotFor returns the session column written by role.
func SlotFor(role fact.Role) (database.Slot, error) {
	slot, ok := slotForRole[role]
	if !ok {
		return "", fmt.Errorf("no session slot for role %q", role)
	}
	return slot, nil
}

// Correlator merges facts into the session of their batch.
type Correlator struct {
	store database.SessionStore
}

// NewCorrelator creates a correlator writing to store.
func NewCorrelator(store database.SessionStore) *Correlator {
	return &Correlator{store: store}
}

// Apply writes the fact's slot, creating the session with the fact's capture
// time as entry time when the batch is new.
func (c *Correlator) Apply(ctx context.Context, f Fact) (Outcome, error) {
	slot, err := SlotFor(f.Role)
	if err != nil {
		return Outcome{}, err
	}

	created, err := c.store.UpsertCameraSlot(ctx, database.SlotUpdate{
		DeviceID:  f.ID.DeviceID,
		BatchID:   f.ID.BatchID,
		Slot:      slot,
		Text:      f.Text,
		Thumbnail: f.Thumbnail,
		EntryTime: f.Captured,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("correlate batch %s: %w", f.ID.BatchID, err)
	}

	if created {
		metrics.RecordSessionCreated()
	}
	logger.Debug().
		Str("trace_id", f.TraceID).
		Str("device_id", f.ID.DeviceID).
		Str("batch_id", f.ID.BatchID).
		Str("slot", string(slot)).
		Bool("created", created).
		Msg("fact merged into session")

	return Outcome{Created: created}, nil
}
