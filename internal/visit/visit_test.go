package visit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/database/mock"
	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/kozaktomas/gatex/internal/vision"
)

const (
	bucket = "gate-images"
	device = "000111"
)

var (
	day       = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	testRoles = fact.CameraRoles{1: fact.RoleID, 2: fact.RoleFace, 3: fact.RolePlate}
)

func at(hour, minute, sec int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(sec)*time.Second)
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
	err     error
}

func (f *fakeObjects) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no object %s/%s", bucket, key)
	}
	return data, nil
}

// fakeVision treats image bytes that start with "text:" as OCR input and
// everything else as a photo with a face in the middle.
type fakeVision struct {
	extractErr error
	noFace     bool
}

func (v *fakeVision) ExtractLines(ctx context.Context, img []byte) ([]string, error) {
	if v.extractErr != nil {
		return nil, v.extractErr
	}
	text, ok := strings.CutPrefix(string(img), "text:")
	if !ok {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func (v *fakeVision) DetectFaceBox(ctx context.Context, img []byte) (*vision.Box, error) {
	if v.noFace {
		return nil, nil
	}
	return &vision.Box{Left: 0.25, Top: 0.25, Width: 0.5, Height: 0.5}, nil
}

func facePhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for x := range 40 {
		for y := range 40 {
			img.Set(x, y, color.Gray{Y: uint8(x * 6)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type harness struct {
	store    *mock.MockSessionStore
	objects  *fakeObjects
	vision   *fakeVision
	pipeline *Pipeline
}

func newHarness() *harness {
	h := &harness{
		store:   mock.NewMockSessionStore(),
		objects: &fakeObjects{objects: make(map[string][]byte)},
		vision:  &fakeVision{},
	}
	correlator := NewCorrelator(h.store)
	h.pipeline = NewPipeline(testRoles, time.UTC, h.objects, h.vision, correlator, NewExitMatcher(h.store, correlator))
	return h
}

// upload stores an image and returns its key.
func (h *harness) upload(batch string, camera int, t time.Time, data []byte) string {
	key := fact.Format(device, batch, camera, t)
	h.objects.mu.Lock()
	h.objects.objects[bucket+"/"+key] = data
	h.objects.mu.Unlock()
	return key
}

func (h *harness) process(t *testing.T, batch string, camera int, ts time.Time, data []byte) Result {
	t.Helper()
	res, err := h.pipeline.Process(context.Background(), bucket, h.upload(batch, camera, ts, data))
	if err != nil {
		t.Fatalf("Process(batch %s camera %d) failed: %v", batch, camera, err)
	}
	return res
}

func (h *harness) session(t *testing.T, batch string) *database.VisitorSession {
	t.Helper()
	s, err := h.store.GetByBatch(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// enterRavi replays the entry of batch 7 from the id, face and plate cameras.
func enterRavi(t *testing.T, h *harness) {
	t.Helper()
	h.process(t, "7", 1, at(9, 0, 0), []byte("text:UNITED ARAB EMIRATES\nName: Ravi Kumar"))
	h.process(t, "7", 2, at(9, 0, 4), facePhoto(t))
	h.process(t, "7", 3, at(9, 0, 9), []byte("text:DXB1234"))
}

func TestEndToEndEntry(t *testing.T) {
	h := newHarness()
	enterRavi(t, h)

	sessions := h.store.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.BatchID != "7" || s.DeviceID != device {
		t.Errorf("unexpected session key %s/%s", s.DeviceID, s.BatchID)
	}
	if !s.EntryTime.Equal(at(9, 0, 0)) {
		t.Errorf("entry_time = %v, want 09:00:00", s.EntryTime)
	}
	if s.IdentityText == nil || !strings.Contains(*s.IdentityText, "Ravi Kumar") {
		t.Errorf("identity_text = %v", s.IdentityText)
	}
	if s.PlateText == nil || *s.PlateText != "DXB1234" {
		t.Errorf("plate_text = %v", s.PlateText)
	}
	if len(s.FaceThumbnail) == 0 {
		t.Error("expected a face thumbnail")
	}
	if s.ExitTime != nil {
		t.Errorf("session should be open, exit_time = %v", s.ExitTime)
	}
}

func TestEndToEndExit(t *testing.T) {
	h := newHarness()
	enterRavi(t, h)

	res := h.process(t, "9", 1, at(12, 0, 0), []byte("text:Name: Ravi Kumarrr"))
	if res.Outcome != "exit" || res.Closed != "7" {
		t.Errorf("expected exit closing batch 7, got %+v", res)
	}

	s := h.session(t, "7")
	if s.ExitTime == nil || !s.ExitTime.Equal(at(12, 0, 0)) {
		t.Errorf("exit_time = %v, want 12:00:00", s.ExitTime)
	}
	if h.session(t, "9") != nil {
		t.Error("an exit fact must not create a session")
	}
}

func TestEntryTimeIsFirstAppliedFact(t *testing.T) {
	h := newHarness()
	h.process(t, "7", 3, at(9, 0, 9), []byte("text:DXB1234"))
	h.process(t, "7", 2, at(9, 0, 4), facePhoto(t))
	h.process(t, "7", 1, at(9, 0, 0), []byte("text:Name: Ravi Kumar"))

	s := h.session(t, "7")
	if !s.EntryTime.Equal(at(9, 0, 9)) {
		t.Errorf("entry_time = %v, want the first applied fact 09:00:09", s.EntryTime)
	}
	if s.IdentityText == nil || s.PlateText == nil || s.FaceThumbnail == nil {
		t.Error("expected all slots merged into one session")
	}
}

func TestExitMatching(t *testing.T) {
	tests := []struct {
		name       string
		stored     *string
		incoming   string
		wantExit   bool
		wantClosed string
	}{
		{"same ten character prefix", strPtr("Name: JohnSmithXYZ Doe"), "Name: JOHNSMITHXAB", true, "1"},
		{"prefix differs", strPtr("Name: JohnSmithXYZ"), "Name: JohnSmythXYZ", false, ""},
		{"stored session without identity", nil, "Name: Ravi", false, ""},
		{"stored text without name label", strPtr("RESIDENT CARD"), "Name: Resident", false, ""},
		{"incoming text without name label", strPtr("Name: Ravi"), "RAVI KUMAR", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.store.AddSession(database.VisitorSession{
				DeviceID: device, BatchID: "1", EntryTime: at(8, 0, 0), IdentityText: tt.stored,
			})

			res := h.process(t, "2", 1, at(11, 0, 0), []byte("text:"+tt.incoming))

			if (res.Outcome == "exit") != tt.wantExit || res.Closed != tt.wantClosed {
				t.Errorf("unexpected result %+v", res)
			}
			closed := h.session(t, "1").ExitTime != nil
			if closed != tt.wantExit {
				t.Errorf("session 1 closed = %v, want %v", closed, tt.wantExit)
			}
			entry := h.session(t, "2")
			if tt.wantExit && entry != nil {
				t.Error("exit must not create a session")
			}
			if !tt.wantExit && (entry == nil || entry.ExitTime != nil) {
				t.Error("no match must create an open session")
			}
		})
	}
}

func TestExitClosesOldestMatch(t *testing.T) {
	h := newHarness()
	h.store.AddSession(database.VisitorSession{DeviceID: device, BatchID: "5", EntryTime: at(10, 0, 0), IdentityText: strPtr("Name: Ravi")})
	h.store.AddSession(database.VisitorSession{DeviceID: device, BatchID: "4", EntryTime: at(8, 0, 0), IdentityText: strPtr("Name: Ravi")})
	h.store.AddSession(database.VisitorSession{DeviceID: "000222", BatchID: "3", EntryTime: at(7, 0, 0), IdentityText: strPtr("Name: Ravi")})

	res := h.process(t, "6", 1, at(12, 0, 0), []byte("text:Name: Ravi"))
	if res.Closed != "4" {
		t.Errorf("expected oldest session on the device (4) to close, got %q", res.Closed)
	}
	if h.session(t, "5").ExitTime != nil || h.session(t, "3").ExitTime != nil {
		t.Error("only one session may close")
	}
}

func TestRedeliveredEntryDoesNotCloseItself(t *testing.T) {
	h := newHarness()
	h.process(t, "7", 1, at(9, 0, 0), []byte("text:Name: Ravi Kumar"))
	res := h.process(t, "7", 1, at(9, 0, 0), []byte("text:Name: Ravi Kumar"))

	if res.Outcome != "merged" {
		t.Errorf("expected redelivery to merge, got %s", res.Outcome)
	}
	if h.session(t, "7").ExitTime != nil {
		t.Error("session must stay open")
	}
}

func TestCloseConflictFallsBackToEntry(t *testing.T) {
	h := newHarness()
	h.store.AddSession(database.VisitorSession{DeviceID: device, BatchID: "1", EntryTime: at(8, 0, 0), IdentityText: strPtr("Name: Ravi")})
	h.store.CloseError = fmt.Errorf("close batch 1: %w", database.ErrCloseConflict)

	res := h.process(t, "2", 1, at(12, 0, 0), []byte("text:Name: Ravi"))
	if res.Outcome != "created" {
		t.Errorf("expected fallback to a new entry, got %s", res.Outcome)
	}
	if h.session(t, "2") == nil {
		t.Error("expected session 2 to exist")
	}
}

func TestConcurrentExitFacts(t *testing.T) {
	h := newHarness()
	h.store.AddSession(database.VisitorSession{DeviceID: device, BatchID: "1", EntryTime: at(8, 0, 0), IdentityText: strPtr("Name: Ravi")})

	const workers = 6
	keys := make([]string, workers)
	for i := range workers {
		keys[i] = h.upload(fmt.Sprintf("%d", 10+i), 1, at(12, 0, i), []byte("text:Name: Ravi"))
	}

	results := make([]Result, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.pipeline.Process(context.Background(), bucket, keys[i])
			if err != nil {
				t.Errorf("Process failed: %v", err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	// Facts are serialized per device: each one either closes an open Ravi
	// session or becomes the next open one. No session may close twice.
	closed := make(map[string]int)
	for _, r := range results {
		switch r.Outcome {
		case "exit":
			closed[r.Closed]++
		case "created":
		default:
			t.Errorf("unexpected outcome %q", r.Outcome)
		}
	}
	for batch, n := range closed {
		if n != 1 {
			t.Errorf("batch %s closed %d times", batch, n)
		}
	}
	if closed["1"] != 1 {
		t.Error("session 1 should be closed exactly once")
	}
	if len(closed) != workers/2 {
		t.Errorf("expected %d exits, got %d", workers/2, len(closed))
	}
}

func TestConcurrentMatchersShareOneClose(t *testing.T) {
	store := mock.NewMockSessionStore()
	store.AddSession(database.VisitorSession{DeviceID: device, BatchID: "1", EntryTime: at(8, 0, 0), IdentityText: strPtr("Name: Ravi")})

	// Two matchers stand in for two processes with separate device locks.
	const workers = 2
	outcomes := make([]Outcome, workers)
	var wg sync.WaitGroup
	for i := range workers {
		correlator := NewCorrelator(store)
		matcher := NewExitMatcher(store, correlator)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fact.Identifier{DeviceID: device, BatchID: fmt.Sprintf("%d", 20+i), Camera: 1}
			out, err := matcher.Handle(context.Background(), Fact{
				ID: id, Role: fact.RoleID, Captured: at(12, 0, i), Text: strPtr("Name: Ravi"),
			})
			if err != nil {
				t.Errorf("Handle failed: %v", err)
			}
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	closedOne := 0
	for _, out := range outcomes {
		if out.Exit && out.ClosedBatch == "1" {
			closedOne++
		}
	}
	if closedOne != 1 {
		t.Errorf("expected exactly one matcher to close session 1, got %d", closedOne)
	}
}

func TestRejectsBeforeIO(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"malformed identifier", "holiday.jpeg", fact.ErrMalformedIdentifier},
		{"short device id", "00111batch7camera1_2024_03_05_09_00_00.jpeg", fact.ErrMalformedIdentifier},
		{"unknown camera", "000111batch7camera9_2024_03_05_09_00_00.jpeg", fact.ErrUnknownCamera},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.pipeline.Process(context.Background(), bucket, tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if h.objects.gets != 0 {
				t.Error("rejected facts must not fetch the image")
			}
			if len(h.store.Sessions()) != 0 {
				t.Error("rejected facts must not mutate the store")
			}
		})
	}
}

func TestCollaboratorFailures(t *testing.T) {
	h := newHarness()
	h.vision.extractErr = errors.New("model unavailable")

	_, err := h.pipeline.Process(context.Background(), bucket, h.upload("7", 3, at(9, 0, 0), []byte("text:DXB1234")))
	if !errors.Is(err, ErrCollaborator) {
		t.Errorf("expected collaborator error, got %v", err)
	}
	if len(h.store.Sessions()) != 0 {
		t.Error("failed extraction must not mutate the store")
	}

	_, err = h.pipeline.Process(context.Background(), bucket, fact.Format(device, "8", 3, at(9, 0, 0)))
	if !errors.Is(err, ErrCollaborator) {
		t.Errorf("expected collaborator error for missing object, got %v", err)
	}
}

func TestTransientStoreError(t *testing.T) {
	h := newHarness()
	h.store.UpsertError = database.Wrap("upsert camera slot", errors.New("i/o timeout"))

	_, err := h.pipeline.Process(context.Background(), bucket, h.upload("7", 3, at(9, 0, 0), []byte("text:DXB1234")))
	if !errors.Is(err, database.ErrTransient) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestFaceWithoutDetection(t *testing.T) {
	h := newHarness()
	h.vision.noFace = true

	res := h.process(t, "7", 2, at(9, 0, 0), facePhoto(t))
	if res.Outcome != "created" {
		t.Errorf("expected session to be created, got %s", res.Outcome)
	}
	if s := h.session(t, "7"); s.FaceThumbnail != nil {
		t.Error("expected null face thumbnail when no face was detected")
	}
}

func TestFaceRedeliveryWithoutDetectionKeepsCrop(t *testing.T) {
	h := newHarness()
	h.process(t, "7", 2, at(9, 0, 0), facePhoto(t))
	if s := h.session(t, "7"); len(s.FaceThumbnail) == 0 {
		t.Fatal("expected a face thumbnail after the first delivery")
	}

	h.vision.noFace = true
	h.process(t, "7", 2, at(9, 0, 0), facePhoto(t))
	if s := h.session(t, "7"); len(s.FaceThumbnail) == 0 {
		t.Error("redelivery without a detected face must not clear the crop")
	}
}

func strPtr(s string) *string { return &s }
