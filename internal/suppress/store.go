// Package suppress persists alert-delivery state so repeat failing alerts
// for the same inspection pair stay quiet inside a cooldown window.
package suppress

// Store tracks when an alert for a key last fired. Implementations must be
// safe for concurrent use.
type Store interface {
	// Allow reports whether the window for key has expired or never began.
	Allow(key string) bool

	// Record starts a fresh suppression window for key.
	Record(key string) error

	// Prune drops expired entries.
	Prune() error

	// Path returns the filesystem path of the backing file ("" for in-memory).
	Path() string

	Close() error
}
