package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/gatex/internal/config"
	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/database/mock"
	"github.com/kozaktomas/gatex/internal/overstay"
	"github.com/kozaktomas/gatex/internal/visit"
)

type stubPipeline struct{ calls int }

func (p *stubPipeline) Process(ctx context.Context, bucket, key string) (visit.Result, error) {
	p.calls++
	return visit.Result{Bucket: bucket, Key: key, Outcome: "created"}, nil
}

type stubSweeper struct{ calls int }

func (s *stubSweeper) Sweep(ctx context.Context) (overstay.SweepReport, error) {
	s.calls++
	return overstay.SweepReport{}, nil
}

func newTestServer(t *testing.T, token string) (*Server, *stubPipeline, *stubSweeper) {
	t.Helper()
	store := mock.NewMockSessionStore()
	store.AddSession(database.VisitorSession{
		DeviceID: "000111", BatchID: "42", EntryTime: time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC),
	})
	pipeline := &stubPipeline{}
	sweeper := &stubSweeper{}
	cfg := &config.WebConfig{Host: "127.0.0.1", Port: 0, APIToken: token, IngestPerMin: 100}
	return NewServer(cfg, Deps{Pipeline: pipeline, Sessions: store, Scanner: sweeper}), pipeline, sweeper
}

func serve(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestRoutes(t *testing.T) {
	s, pipeline, sweeper := newTestServer(t, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", "GET", "/api/v1/health", "", http.StatusOK},
		{"metrics", "GET", "/metrics", "", http.StatusOK},
		{"ingest", "POST", "/api/v1/facts", `{"bucket":"b","key":"k"}`, http.StatusOK},
		{"session", "GET", "/api/v1/sessions/42", "", http.StatusOK},
		{"missing session", "GET", "/api/v1/sessions/43", "", http.StatusNotFound},
		{"thumbnail without face", "GET", "/api/v1/sessions/42/thumbnail", "", http.StatusNotFound},
		{"device sessions", "GET", "/api/v1/devices/111/sessions?open=true", "", http.StatusOK},
		{"sweep", "POST", "/api/v1/overstay/sweep", "", http.StatusOK},
		{"wrong method", "GET", "/api/v1/facts", "", http.StatusMethodNotAllowed},
		{"unknown route", "GET", "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(s, tt.method, tt.path, tt.body, "")
			if recorder.Code != tt.wantStatus {
				t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, recorder.Code, tt.wantStatus)
			}
		})
	}

	if pipeline.calls != 1 || sweeper.calls != 1 {
		t.Errorf("pipeline calls = %d, sweeper calls = %d, want 1 and 1", pipeline.calls, sweeper.calls)
	}
}

func TestRoutesRequireToken(t *testing.T) {
	s, pipeline, _ := newTestServer(t, "s3cret")

	if rec := serve(s, "POST", "/api/v1/facts", `{"bucket":"b","key":"k"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("ingest without token: status = %d, want 401", rec.Code)
	}
	if rec := serve(s, "GET", "/api/v1/sessions/42", "", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("session with wrong token: status = %d, want 401", rec.Code)
	}
	if rec := serve(s, "POST", "/api/v1/facts", `{"bucket":"b","key":"k"}`, "s3cret"); rec.Code != http.StatusOK {
		t.Errorf("ingest with token: status = %d, want 200", rec.Code)
	}
	if rec := serve(s, "GET", "/api/v1/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health without token: status = %d, want 200", rec.Code)
	}
	if pipeline.calls != 1 {
		t.Errorf("pipeline calls = %d, want 1", pipeline.calls)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
