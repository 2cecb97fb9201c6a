package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/gatex/internal/config"
)

// Backend bundles the repositories of one storage driver.
type Backend struct {
	Name      string
	Sessions  SessionStore
	Directory DirectoryReader
	close     func() error
}

// NewBackend is used by driver packages to assemble a Backend.
func NewBackend(name string, sessions SessionStore, directory DirectoryReader, closeFn func() error) *Backend {
	return &Backend{Name: name, Sessions: sessions, Directory: directory, close: closeFn}
}

// Close releases the driver's connection pool.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenFunc connects a driver and applies its migrations.
type OpenFunc func(cfg *config.DatabaseConfig) (*Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]OpenFunc)
)

// RegisterBackend registers a driver constructor. Driver packages call it
// from init so this package does not import them.
func RegisterBackend(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// RegisteredBackends returns the names of all registered drivers.
func RegisteredBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackendName picks the driver for a DATABASE_URL.
func BackendName(cfg *config.DatabaseConfig) string {
	if cfg.IsPostgres() {
		return "postgres"
	}
	return "mariadb"
}

// Open connects the driver selected by cfg.
func Open(cfg *config.DatabaseConfig) (*Backend, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	name := BackendName(cfg)

	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s backend not registered", name)
	}
	return open(cfg)
}
