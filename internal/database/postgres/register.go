package postgres

import (
	"github.com/kozaktomas/gatex/internal/config"
	"github.com/kozaktomas/gatex/internal/database"
)

func init() {
	database.RegisterBackend("postgres", func(cfg *config.DatabaseConfig) (*database.Backend, error) {
		pool, err := Open(cfg)
		if err != nil {
			return nil, err
		}
		return database.NewBackend("postgres", NewSessionRepository(pool), NewDirectoryRepository(pool), pool.Close), nil
	})
}
