// Package kv implements a typed key-value store on top of a pluggable
// store.Backend.
//
// Values are encoded with their own encoding.BinaryMarshaler implementation,
// and stored under the key they declare. For backends that can't enumerate
// their keys, the store maintains a key index, persisted under IndexKey in the
// same namespace.
//
//	s, err := kv.New(backend, "com.example.app")
//	err = kv.Save(s, &Profile{Name: "Ada"})
//	p, err := kv.Get[Profile](s)
package kv

import (
	"encoding"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.hackfix.me/stow/store"
)

// IndexKey is the reserved key the key index is stored under.
const IndexKey = "_keys"

// Store is a typed key-value store scoped to a single namespace. It holds no
// state besides its configuration, so multiple instances may share the same
// backend.
type Store struct {
	backend     store.Backend
	lister      store.Lister
	namespace   string
	logger      *slog.Logger
	access      store.Accessibility
	indexPolicy IndexPolicy
}

// New returns a store that keeps values in the given backend namespace. The
// namespace must be non-empty, and must not contain NUL bytes.
func New(b store.Backend, namespace string, opts ...Option) (*Store, error) {
	if namespace == "" {
		return nil, errors.New("namespace must not be empty")
	}
	if strings.ContainsRune(namespace, 0) {
		return nil, errors.New("namespace must not contain NUL bytes")
	}

	s := &Store{
		backend:   b,
		namespace: namespace,
		logger:    slog.Default(),
		access:    store.AccessibleAfterFirstUnlock,
	}
	s.lister, _ = b.(store.Lister)

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Namespace returns the namespace of the store.
func (s *Store) Namespace() string {
	return s.namespace
}

// Indexed reports whether the store maintains a key index, because the
// backend doesn't support enumeration.
func (s *Store) Indexed() bool {
	return s.lister == nil
}

// Save encodes v and stores it under v's storage key. It is a type-safe
// wrapper of Store.SaveValue, which verifies the written value by decoding it
// into a new T.
func Save[T any, PT Pointer[T]](s *Store, v PT, opts ...SaveOption) error {
	return s.SaveValue(v, PT(new(T)), opts...)
}

// Get returns the value of type T stored under T's storage key.
func Get[T any, PT Pointer[T]](s *Store) (*T, error) {
	v := PT(new(T))
	if err := s.Load(v.StorageKey(), v); err != nil {
		return nil, err
	}
	return (*T)(v), nil
}

// Exists reports whether a value is stored under key. Backend failures are
// logged, and reported as the value not existing.
func (s *Store) Exists(key string) bool {
	if key == IndexKey {
		return false
	}

	ok, err := s.backend.Exists(s.namespace, key)
	if err != nil {
		s.logger.Warn("failed checking key existence", "namespace", s.namespace,
			"key", key, "error", err.Error())
		return false
	}

	return ok
}

// SaveValue encodes and stores v. Unless the Overwrite option is given, it
// fails with ErrDuplicate if the key already exists, without modifying the
// stored value. After writing, the value is read back and decoded into
// verify, if it's not nil.
func (s *Store) SaveValue(v Value, verify encoding.BinaryUnmarshaler, opts ...SaveOption) error {
	cfg := &saveConfig{access: s.access}
	for _, opt := range opts {
		opt(cfg)
	}

	key := v.StorageKey()
	switch key {
	case "":
		return newError(KindSaveObject, key, errEmptyKey)
	case IndexKey:
		return newError(KindSaveObject, key, errReservedKey)
	}

	exists, err := s.backend.Exists(s.namespace, key)
	if err != nil {
		return newError(KindSaveObject, key, err)
	}
	if exists && !cfg.overwrite {
		return newError(KindDuplicate, key, nil)
	}

	data, err := v.MarshalBinary()
	if err != nil {
		return newError(KindSaveObject, key, fmt.Errorf("failed encoding value: %w", err))
	}

	var (
		keys       []string
		needIndex  bool
		prev       []byte
		prevAccess = cfg.access
	)
	if s.Indexed() {
		keys = s.index()
		needIndex = !slices.Contains(keys, key)
		if needIndex && exists && s.indexPolicy == IndexStrict {
			// The value exists but isn't indexed, so keep it around in case
			// it needs to be restored.
			if prev, err = s.backend.Get(s.namespace, key); err != nil {
				return newError(KindSaveObject, key, fmt.Errorf("failed reading previous value: %w", err))
			}
			if ar, ok := s.backend.(store.AccessReader); ok {
				if prevAccess, err = ar.Accessibility(s.namespace, key); err != nil {
					return newError(KindSaveObject, key, fmt.Errorf("failed reading previous accessibility: %w", err))
				}
			}
		}
	}

	if err = s.backend.Put(s.namespace, key, data, cfg.access); err != nil {
		return newError(KindSaveObject, key, err)
	}

	written, err := s.backend.Get(s.namespace, key)
	if err != nil {
		return newError(KindSaveObject, key, fmt.Errorf("failed reading back value: %w", err))
	}
	if verify != nil {
		if err = verify.UnmarshalBinary(written); err != nil {
			return newError(KindSaveObject, key, fmt.Errorf("failed decoding written value: %w", err))
		}
	}

	if !needIndex {
		return nil
	}

	if err = s.writeIndex(append(keys, key)); err != nil {
		if s.indexPolicy == IndexLenient {
			s.logger.Warn("key index is stale", "namespace", s.namespace,
				"key", key, "error", err.Error())
			return nil
		}

		if rerr := s.rollback(key, prev, exists, prevAccess); rerr != nil {
			err = errors.Join(err, fmt.Errorf("failed rolling back value: %w", rerr))
		}
		return newError(KindInsertKey, key, err)
	}

	return nil
}

// Load decodes the value stored under key into dst. A missing, inaccessible
// or undecodable value results in ErrGetObject.
func (s *Store) Load(key string, dst encoding.BinaryUnmarshaler) error {
	if key == IndexKey {
		return newError(KindGetObject, key, errReservedKey)
	}

	data, err := s.backend.Get(s.namespace, key)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrAccessDenied):
		return newError(KindGetObject, key, err)
	default:
		return newError(KindUnknown, key, err)
	}

	if err = dst.UnmarshalBinary(data); err != nil {
		return newError(KindGetObject, key, fmt.Errorf("failed decoding value: %w", err))
	}

	return nil
}

// AllKeys returns the keys of all stored values. It never fails: errors are
// logged, and result in an empty list.
func (s *Store) AllKeys() []string {
	if s.Indexed() {
		return s.index()
	}

	keys, err := s.lister.List(s.namespace)
	if err != nil {
		s.logger.Warn("failed listing keys", "namespace", s.namespace, "error", err.Error())
		return []string{}
	}

	return slices.DeleteFunc(keys, func(k string) bool { return k == IndexKey })
}

// Delete removes the value stored under key. It fails with ErrNotFound if
// there is no such value.
func (s *Store) Delete(key string) error {
	if key == IndexKey {
		return newError(KindDelete, key, errReservedKey)
	}

	if err := s.backend.Delete(s.namespace, key); errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, key, err)
	} else if err != nil {
		return newError(KindDelete, key, err)
	}

	if !s.Indexed() {
		return nil
	}

	keys := s.index()
	if i := slices.Index(keys, key); i >= 0 {
		if err := s.writeIndex(slices.Delete(keys, i, i+1)); err != nil {
			s.logger.Warn("key index is stale", "namespace", s.namespace,
				"key", key, "error", err.Error())
		}
	}

	return nil
}

// DeleteAll removes all values in the namespace, including the key index.
func (s *Store) DeleteAll() error {
	if err := s.backend.DeleteAll(s.namespace); err != nil {
		return newError(KindWipe, "", err)
	}
	return nil
}

func (s *Store) rollback(key string, prev []byte, existed bool, access store.Accessibility) error {
	if existed {
		return s.backend.Put(s.namespace, key, prev, access)
	}
	return s.backend.Delete(s.namespace, key)
}
