package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/database/storetest"
)

func TestMockSessionStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) database.SessionStore {
		return NewMockSessionStore()
	})
}

func TestMockSessionStoreErrorInjection(t *testing.T) {
	store := NewMockSessionStore()
	injected := database.Wrap("upsert", errors.New("connection refused"))
	store.UpsertError = injected

	_, err := store.UpsertCameraSlot(context.Background(), database.SlotUpdate{
		DeviceID: "000111", BatchID: "1", Slot: database.SlotPlateText,
	})
	if !errors.Is(err, database.ErrTransient) {
		t.Errorf("expected transient error, got %v", err)
	}
	if len(store.Sessions()) != 0 {
		t.Error("failed upsert must not store anything")
	}
}

func TestMockDirectoryReader(t *testing.T) {
	dir := NewMockDirectoryReader()
	dir.AddCustomer("c1", "ops@acme.test", "111")
	dir.AddLocation("Marina", "Tower A", "000111")

	d, err := dir.LoadDirectory(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if email, ok := d.Contact("000111"); !ok || email != "ops@acme.test" {
		t.Errorf("unexpected contact %q %v", email, ok)
	}

	dir.LoadError = errors.New("boom")
	if _, err := dir.LoadDirectory(context.Background()); err == nil {
		t.Error("expected injected error")
	}
	if dir.LoadCalls != 2 {
		t.Errorf("expected 2 load calls, got %d", dir.LoadCalls)
	}
}
