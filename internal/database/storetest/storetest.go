// Package storetest holds behavioural tests shared by every SessionStore
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/gatex/internal/database"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) database.SessionStore

func strPtr(s string) *string { return &s }

var base = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

// Run executes the shared SessionStore contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateThenMergeKeepsEntryTime", func(t *testing.T) { testCreateThenMerge(t, newStore(t)) })
	t.Run("SameSlotTwiceOverwrites", func(t *testing.T) { testSameSlotTwice(t, newStore(t)) })
	t.Run("NilThumbnailKeepsCrop", func(t *testing.T) { testNilThumbnailKeepsCrop(t, newStore(t)) })
	t.Run("ListOpenByDeviceOrder", func(t *testing.T) { testListOpenOrder(t, newStore(t)) })
	t.Run("CloseSession", func(t *testing.T) { testCloseSession(t, newStore(t)) })
	t.Run("ConcurrentClose", func(t *testing.T) { testConcurrentClose(t, newStore(t)) })
	t.Run("ConcurrentSlotUpserts", func(t *testing.T) { testConcurrentUpserts(t, newStore(t)) })
	t.Run("OverstayCandidatesAndMarkAlerted", func(t *testing.T) { testOverstay(t, newStore(t)) })
	t.Run("ListRecent", func(t *testing.T) { testListRecent(t, newStore(t)) })
}

func mustUpsert(t *testing.T, store database.SessionStore, u database.SlotUpdate) bool {
	t.Helper()
	created, err := store.UpsertCameraSlot(context.Background(), u)
	if err != nil {
		t.Fatalf("UpsertCameraSlot(%s/%s) failed: %v", u.BatchID, u.Slot, err)
	}
	return created
}

func mustGet(t *testing.T, store database.SessionStore, batchID string) *database.VisitorSession {
	t.Helper()
	s, err := store.GetByBatch(context.Background(), batchID)
	if err != nil {
		t.Fatalf("GetByBatch(%s) failed: %v", batchID, err)
	}
	if s == nil {
		t.Fatalf("GetByBatch(%s) returned nil", batchID)
	}
	return s
}

func testCreateThenMerge(t *testing.T, store database.SessionStore) {
	created := mustUpsert(t, store, database.SlotUpdate{
		DeviceID: "000111", BatchID: "7", Slot: database.SlotFaceThumbnail,
		Thumbnail: []byte{0xff, 0xd8}, EntryTime: base.Add(5 * time.Second),
	})
	if !created {
		t.Error("first upsert should create the session")
	}

	created = mustUpsert(t, store, database.SlotUpdate{
		DeviceID: "000111", BatchID: "7", Slot: database.SlotIdentityText,
		Text: strPtr("Name: Ravi Kumar"), EntryTime: base,
	})
	if created {
		t.Error("second upsert should merge into the existing session")
	}
	mustUpsert(t, store, database.SlotUpdate{
		DeviceID: "000111", BatchID: "7", Slot: database.SlotPlateText,
		Text: strPtr("DXB1234"), EntryTime: base.Add(time.Hour),
	})

	s := mustGet(t, store, "7")
	if !s.EntryTime.Equal(base.Add(5 * time.Second)) {
		t.Errorf("entry_time changed: got %v, want %v", s.EntryTime, base.Add(5*time.Second))
	}
	if s.Date != "2024-03-05" || s.DayOfWeek != "Tuesday" {
		t.Errorf("unexpected date columns %s %s", s.Date, s.DayOfWeek)
	}
	if s.IdentityText == nil || *s.IdentityText != "Name: Ravi Kumar" {
		t.Errorf("unexpected identity text %v", s.IdentityText)
	}
	if s.PlateText == nil || *s.PlateText != "DXB1234" {
		t.Errorf("unexpected plate text %v", s.PlateText)
	}
	if len(s.FaceThumbnail) != 2 {
		t.Errorf("unexpected thumbnail %v", s.FaceThumbnail)
	}
	if !s.Open() || s.AlertSent {
		t.Error("new session should be open and unalerted")
	}

	missing, err := store.GetByBatch(context.Background(), "404")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing batch, got %v, %v", missing, err)
	}
}

func testSameSlotTwice(t *testing.T, store database.SessionStore) {
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "8", Slot: database.SlotPlateText, Text: strPtr("OLD1"), EntryTime: base})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "8", Slot: database.SlotIdentityText, Text: strPtr("Name: A"), EntryTime: base})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "8", Slot: database.SlotPlateText, Text: strPtr("NEW2"), EntryTime: base.Add(time.Minute)})

	open, err := store.ListOpenByDevice(context.Background(), "000111")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Fatalf("expected exactly one session row, got %d", len(open))
	}
	s := open[0]
	if s.PlateText == nil || *s.PlateText != "NEW2" {
		t.Errorf("expected plate overwritten to NEW2, got %v", s.PlateText)
	}
	if s.IdentityText == nil || *s.IdentityText != "Name: A" {
		t.Errorf("identity text should be untouched, got %v", s.IdentityText)
	}
	if !s.EntryTime.Equal(base) {
		t.Errorf("entry_time changed to %v", s.EntryTime)
	}
}

func testNilThumbnailKeepsCrop(t *testing.T, store database.SessionStore) {
	crop := []byte{0xFF, 0xD8, 0x01}
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "12", Slot: database.SlotFaceThumbnail, Thumbnail: crop, EntryTime: base})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "12", Slot: database.SlotFaceThumbnail, EntryTime: base.Add(time.Minute)})

	s := mustGet(t, store, "12")
	if string(s.FaceThumbnail) != string(crop) {
		t.Errorf("expected stored crop to survive a nil thumbnail, got %v", s.FaceThumbnail)
	}

	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "13", Slot: database.SlotFaceThumbnail, EntryTime: base})
	if s := mustGet(t, store, "13"); s.FaceThumbnail != nil {
		t.Errorf("expected null thumbnail on a fresh session, got %v", s.FaceThumbnail)
	}
}

func testListOpenOrder(t *testing.T, store database.SessionStore) {
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "3", Slot: database.SlotPlateText, EntryTime: base.Add(2 * time.Hour)})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "1", Slot: database.SlotPlateText, EntryTime: base})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "2", Slot: database.SlotPlateText, EntryTime: base.Add(time.Hour)})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000222", BatchID: "4", Slot: database.SlotPlateText, EntryTime: base})

	if err := store.CloseSession(context.Background(), "2", base.Add(3*time.Hour)); err != nil {
		t.Fatal(err)
	}

	open, err := store.ListOpenByDevice(context.Background(), "000111")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 || open[0].BatchID != "1" || open[1].BatchID != "3" {
		got := make([]string, len(open))
		for i, s := range open {
			got[i] = s.BatchID
		}
		t.Errorf("expected open batches [1 3] oldest first, got %v", got)
	}
}

func testCloseSession(t *testing.T, store database.SessionStore) {
	ctx := context.Background()
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "7", Slot: database.SlotIdentityText, Text: strPtr("Name: X"), EntryTime: base})

	exit := base.Add(3 * time.Hour)
	if err := store.CloseSession(ctx, "7", exit); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}

	err := store.CloseSession(ctx, "7", exit.Add(time.Hour))
	if !errors.Is(err, database.ErrCloseConflict) {
		t.Errorf("expected ErrCloseConflict on second close, got %v", err)
	}

	s := mustGet(t, store, "7")
	if s.ExitTime == nil || !s.ExitTime.Equal(exit) {
		t.Errorf("exit_time must keep first value %v, got %v", exit, s.ExitTime)
	}

	err = store.CloseSession(ctx, "missing", exit)
	if !errors.Is(err, database.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func testConcurrentClose(t *testing.T, store database.SessionStore) {
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "7", Slot: database.SlotIdentityText, Text: strPtr("Name: X"), EntryTime: base})

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.CloseSession(context.Background(), "7", base.Add(time.Duration(i+1)*time.Minute))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, database.ErrCloseConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Errorf("expected 1 success and %d conflicts, got %d and %d", workers-1, successes, conflicts)
	}
}

func testConcurrentUpserts(t *testing.T, store database.SessionStore) {
	slots := []database.Slot{database.SlotIdentityText, database.SlotFaceThumbnail, database.SlotPlateText}

	var wg sync.WaitGroup
	created := make(chan bool, len(slots)*4)
	for round := range 4 {
		for i, slot := range slots {
			wg.Add(1)
			go func(round, i int, slot database.Slot) {
				defer wg.Done()
				u := database.SlotUpdate{
					DeviceID: "000111", BatchID: "50", Slot: slot,
					Text:      strPtr(fmt.Sprintf("%s-%d", slot, round)),
					Thumbnail: []byte{byte(round)},
					EntryTime: base.Add(time.Duration(round*len(slots)+i) * time.Second),
				}
				c, err := store.UpsertCameraSlot(context.Background(), u)
				if err != nil {
					t.Errorf("concurrent upsert failed: %v", err)
					return
				}
				created <- c
			}(round, i, slot)
		}
	}
	wg.Wait()
	close(created)

	creations := 0
	for c := range created {
		if c {
			creations++
		}
	}
	if creations != 1 {
		t.Errorf("expected exactly one creating upsert, got %d", creations)
	}

	open, err := store.ListOpenByDevice(context.Background(), "000111")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Fatalf("expected one session, got %d", len(open))
	}
	s := open[0]
	if s.IdentityText == nil || s.PlateText == nil || s.FaceThumbnail == nil {
		t.Error("expected every slot to be populated")
	}
	if s.EntryTime.Before(base) || s.EntryTime.After(base.Add(12*time.Second)) {
		t.Errorf("entry_time %v is not one of the candidate times", s.EntryTime)
	}
}

func testOverstay(t *testing.T, store database.SessionStore) {
	ctx := context.Background()
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "1", Slot: database.SlotPlateText, EntryTime: base})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "2", Slot: database.SlotPlateText, EntryTime: base.Add(time.Hour)})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "3", Slot: database.SlotPlateText, EntryTime: base.Add(3 * time.Hour)})
	mustUpsert(t, store, database.SlotUpdate{DeviceID: "000111", BatchID: "4", Slot: database.SlotPlateText, EntryTime: base})
	if err := store.CloseSession(ctx, "4", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	threshold := base.Add(time.Hour) // inclusive
	candidates, err := store.ListOverstayCandidates(ctx, threshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 || candidates[0].BatchID != "1" || candidates[1].BatchID != "2" {
		t.Fatalf("expected candidates [1 2], got %v", candidates)
	}

	if err := store.MarkAlerted(ctx, "1"); err != nil {
		t.Fatalf("MarkAlerted failed: %v", err)
	}
	if err := store.MarkAlerted(ctx, "1"); err != nil {
		t.Fatalf("second MarkAlerted should be a no-op, got %v", err)
	}
	if err := store.MarkAlerted(ctx, "missing"); !errors.Is(err, database.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	candidates, err = store.ListOverstayCandidates(ctx, threshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].BatchID != "2" {
		t.Errorf("expected only batch 2 after alerting batch 1, got %v", candidates)
	}
	if s := mustGet(t, store, "1"); !s.AlertSent {
		t.Error("expected alert_sent on batch 1")
	}
}

func testListRecent(t *testing.T, store database.SessionStore) {
	for i := range 5 {
		mustUpsert(t, store, database.SlotUpdate{
			DeviceID: "000111", BatchID: fmt.Sprintf("r%d", i), Slot: database.SlotPlateText,
			EntryTime: base.Add(time.Duration(i) * time.Minute),
		})
	}

	recent, err := store.ListRecent(context.Background(), "000111", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0].BatchID != "r4" || recent[2].BatchID != "r2" {
		t.Errorf("expected newest three sessions, got %v", recent)
	}
}
