// Package badger implements a secure store.Backend on top of BadgerDB, with
// AES encryption at rest and accessibility enforcement.
package badger

import (
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"go.hackfix.me/stow/store"
)

// Separates the namespace from the key in the underlying Badger key.
// Namespaces may not contain it, or their prefixes would overlap.
const nsSep = "\x00"

var errInvalidNamespace = errors.New("namespace must not contain NUL bytes")

// Badger is a secure backend. Entries are encrypted at rest when the store is
// opened with an encryption key, and each entry's accessibility class is kept
// in the item's user metadata.
type Badger struct {
	db *badger.DB
	ac store.AccessControl
}

var (
	_ store.Backend      = &Badger{}
	_ store.Lister       = &Badger{}
	_ store.AccessReader = &Badger{}
)

// Option is a function that allows configuring the store.
type Option func(*Badger)

// WithAccessControl sets the device state provider and custom policy used to
// enforce accessibility on reads.
func WithAccessControl(ac store.AccessControl) Option {
	return func(s *Badger) {
		s.ac = ac
	}
}

// Open opens or creates the store at path. If path is empty, the store is
// kept in memory. encKey must be 16, 24 or 32 bytes long to enable AES-128,
// AES-192 or AES-256 encryption respectively, or empty to disable encryption.
func Open(path string, encKey []byte, opts ...Option) (*Badger, error) {
	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil
	if path == "" {
		bopts = bopts.WithInMemory(true)
	}
	if len(encKey) > 0 {
		switch len(encKey) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("invalid encryption key length %d; expected 16, 24 or 32", len(encKey))
		}
		bopts = bopts.WithEncryptionKey(encKey).WithIndexCacheSize(16 << 20)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}

	s := &Badger{db: db}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Badger) Close() error {
	return s.db.Close()
}

func (s *Badger) Exists(namespace, key string) (bool, error) {
	if err := s.ready(namespace); err != nil {
		return false, err
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	_, err := txn.Get(dbKey(namespace, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err)
	}

	return true, nil
}

func (s *Badger) Put(namespace, key string, payload []byte, access store.Accessibility) error {
	if err := s.ready(namespace); err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	e := badger.NewEntry(dbKey(namespace, key), payload).WithMeta(byte(access.Class))
	if err := txn.SetEntry(e); err != nil {
		return wrapErr(err)
	}

	if err := txn.Commit(); err != nil {
		return wrapErr(err)
	}

	return nil
}

func (s *Badger) Get(namespace, key string) ([]byte, error) {
	if err := s.ready(namespace); err != nil {
		return nil, err
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(dbKey(namespace, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}

	if err = s.ac.Check(store.AccessClass(item.UserMeta())); err != nil {
		return nil, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, wrapErr(err)
	}

	return val, nil
}

func (s *Badger) Delete(namespace, key string) error {
	if err := s.ready(namespace); err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	k := dbKey(namespace, key)
	if _, err := txn.Get(k); errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	} else if err != nil {
		return wrapErr(err)
	}

	if err := txn.Delete(k); err != nil {
		return wrapErr(err)
	}

	return wrapErr(txn.Commit())
}

// DeleteAll removes all entries in the namespace in a single transaction.
func (s *Badger) DeleteAll(namespace string) error {
	if err := s.ready(namespace); err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	for _, k := range s.keys(txn, namespace) {
		if err := txn.Delete(k); err != nil {
			return wrapErr(err)
		}
	}

	return wrapErr(txn.Commit())
}

// List returns the keys stored in the namespace, in lexicographic order.
func (s *Badger) List(namespace string) ([]string, error) {
	if err := s.ready(namespace); err != nil {
		return nil, err
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	prefixLen := len(namespace) + len(nsSep)
	dbKeys := s.keys(txn, namespace)
	keys := make([]string, 0, len(dbKeys))
	for _, k := range dbKeys {
		keys = append(keys, string(k[prefixLen:]))
	}

	return keys, nil
}

// Accessibility returns the accessibility an entry was stored with. It
// doesn't enforce the access policy, since the payload isn't read.
func (s *Badger) Accessibility(namespace, key string) (store.Accessibility, error) {
	if err := s.ready(namespace); err != nil {
		return store.Accessibility{}, err
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(dbKey(namespace, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.Accessibility{}, store.ErrNotFound
	}
	if err != nil {
		return store.Accessibility{}, wrapErr(err)
	}

	return store.Accessibility{Class: store.AccessClass(item.UserMeta())}, nil
}

func (s *Badger) ready(namespace string) error {
	if s.db.IsClosed() {
		return store.ErrClosed
	}
	if strings.Contains(namespace, nsSep) {
		return errInvalidNamespace
	}
	return nil
}

func (s *Badger) keys(txn *badger.Txn, namespace string) [][]byte {
	opts := badger.DefaultIteratorOptions
	// Enable key-only iteration, which is more efficient.
	opts.PrefetchValues = false
	prefix := []byte(namespace + nsSep)
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	keys := [][]byte{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}

	return keys
}

func dbKey(namespace, key string) []byte {
	var sb strings.Builder
	sb.Grow(len(namespace) + len(nsSep) + len(key))
	sb.WriteString(namespace)
	sb.WriteString(nsSep)
	sb.WriteString(key)
	return []byte(sb.String())
}

func wrapErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return store.ErrClosed
	}
	return err
}
