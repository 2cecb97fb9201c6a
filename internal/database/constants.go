package database

// Query limits for the session listing endpoints
const (
	// DefaultRecentLimit is used when a caller does not ask for a limit.
	DefaultRecentLimit = 50

	// MaxRecentLimit caps ListRecent regardless of the requested limit.
	MaxRecentLimit = 500
)

// ClampLimit bounds a requested listing limit to (0, MaxRecentLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
