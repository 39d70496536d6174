package kv

import (
	"log/slog"

	"go.hackfix.me/stow/store"
)

// IndexPolicy decides what Save does when the key index can't be updated
// after the value was written. It only applies to backends without native
// key enumeration.
type IndexPolicy uint8

const (
	// IndexLenient reports the save as successful, and leaves the index
	// stale. The value is stored, but AllKeys won't return its key.
	IndexLenient IndexPolicy = iota
	// IndexStrict rolls back the value write, and fails with ErrInsertKey.
	// A replaced value is restored with its previous accessibility if the
	// backend implements store.AccessReader, and with the accessibility of
	// the failed save otherwise.
	IndexStrict
)

// Option is a function that allows configuring the store.
type Option func(*Store)

// WithLogger sets the logger used to report non-fatal inconsistencies.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithAccessibility sets the default accessibility of saved values.
func WithAccessibility(access store.Accessibility) Option {
	return func(s *Store) {
		s.access = access
	}
}

// WithIndexPolicy sets the policy applied on key index write failures.
func WithIndexPolicy(p IndexPolicy) Option {
	return func(s *Store) {
		s.indexPolicy = p
	}
}

type saveConfig struct {
	overwrite bool
	access    store.Accessibility
}

// SaveOption configures a single Save call.
type SaveOption func(*saveConfig)

// Overwrite allows replacing an existing value with the same key.
func Overwrite() SaveOption {
	return func(c *saveConfig) {
		c.overwrite = true
	}
}

// Accessibility overrides the store's default accessibility for this value.
func Accessibility(access store.Accessibility) SaveOption {
	return func(c *saveConfig) {
		c.access = access
	}
}
