package database

import (
	"errors"
	"testing"

	"github.com/kozaktomas/gatex/internal/config"
)

func TestBackendName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@localhost/db", "postgres"},
		{"postgresql://u:p@localhost/db", "postgres"},
		{"u:p@tcp(localhost:3306)/gatex", "mariadb"},
	}
	for _, tt := range tests {
		if got := BackendName(&config.DatabaseConfig{URL: tt.url}); got != tt.want {
			t.Errorf("BackendName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestOpenUsesRegisteredBackend(t *testing.T) {
	closed := false
	RegisterBackend("postgres", func(cfg *config.DatabaseConfig) (*Backend, error) {
		return NewBackend("postgres", nil, nil, func() error { closed = true; return nil }), nil
	})
	t.Cleanup(func() {
		backendsMu.Lock()
		delete(backends, "postgres")
		backendsMu.Unlock()
	})

	b, err := Open(&config.DatabaseConfig{URL: "postgres://localhost/db"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if b.Name != "postgres" {
		t.Errorf("unexpected backend %q", b.Name)
	}
	if err := b.Close(); err != nil || !closed {
		t.Errorf("Close did not call driver close: %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(&config.DatabaseConfig{}); err == nil {
		t.Error("expected error for empty URL")
	}

	RegisterBackend("mariadb", func(cfg *config.DatabaseConfig) (*Backend, error) {
		return nil, errors.New("unreachable")
	})
	t.Cleanup(func() {
		backendsMu.Lock()
		delete(backends, "mariadb")
		backendsMu.Unlock()
	})
	if _, err := Open(&config.DatabaseConfig{URL: "u:p@tcp(db:3306)/x"}); err == nil {
		t.Error("expected driver error to propagate")
	}
}
