package store

import "errors"

var (
	// ErrNotFound is returned when the (namespace, key) pair has no entry.
	ErrNotFound = errors.New("entry not found")
	// ErrAccessDenied is returned by backends that enforce accessibility
	// policies, when the current device state doesn't satisfy the policy the
	// entry was stored with.
	ErrAccessDenied = errors.New("entry not accessible in the current device state")
	// ErrClosed is returned when operating on a closed backend.
	ErrClosed = errors.New("backend is closed")
)

// Backend defines the operations data stores must implement to store and
// retrieve opaque payloads. Entries are scoped by namespace, and there is at
// most one entry per (namespace, key) pair.
type Backend interface {
	// Exists reports whether an entry is present, without reading its payload.
	Exists(namespace, key string) (bool, error)
	// Put inserts or overwrites an entry. Backends that don't support access
	// control ignore access.
	Put(namespace, key string, payload []byte, access Accessibility) error
	// Get returns the raw payload, or ErrNotFound.
	Get(namespace, key string) ([]byte, error)
	// Delete removes a single entry, or returns ErrNotFound.
	Delete(namespace, key string) error
	// DeleteAll atomically removes every entry in the namespace.
	DeleteAll(namespace string) error
}

// Lister is implemented by backends that can natively enumerate the keys
// stored in a namespace.
type Lister interface {
	List(namespace string) ([]string, error)
}

// AccessReader is implemented by backends that persist the accessibility of
// entries. Accessibility returns the policy an entry was stored with,
// regardless of whether it can currently be read, or ErrNotFound.
type AccessReader interface {
	Accessibility(namespace, key string) (Accessibility, error)
}
