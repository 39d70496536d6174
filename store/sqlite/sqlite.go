// Package sqlite implements a secure store.Backend on top of SQLite. Entry
// values are encrypted with NaCl secretbox before they're written.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/glebarez/go-sqlite"

	aerrors "go.hackfix.me/stow/app/errors"
	"go.hackfix.me/stow/crypto"
	"go.hackfix.me/stow/store"
	"go.hackfix.me/stow/store/sqlite/migrator"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const keyHashContext = "stow encryption key hash"

// ErrLocked is returned when reading or writing values before an encryption
// key was provided.
var ErrLocked = errors.New("store is locked: missing encryption key")

type Store struct {
	*sql.DB
	ctx        context.Context
	logger     *slog.Logger
	migrations []*migrator.Migration
	encKey     *[32]byte
	ac         store.AccessControl
}

var (
	_ store.Backend      = &Store{}
	_ store.Lister       = &Store{}
	_ store.AccessReader = &Store{}
)

// Open opens the SQLite database at path. Options are applied in order, after
// the database is opened.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	migrations, err := migrator.LoadMigrations(migrationsDir, slog.Default())
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite supports a single writer, so avoid lock contention between
	// pooled connections.
	db.SetMaxOpenConns(1)

	s := &Store{DB: db, ctx: ctx, logger: slog.Default(), migrations: migrations}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Init creates the database schema, and records the app version and the hash
// of the encryption key. The store is unlocked with encKey afterwards.
func (s *Store) Init(appVersion string, encKey *[32]byte) error {
	if v, err := s.Version(); err != nil {
		return err
	} else if v != "" {
		return fmt.Errorf("store is already initialized with version %s", v)
	}

	err := migrator.RunMigrations(s.ctx, s.DB, s.migrations, migrator.MigrationUp, "all", s.logger)
	if err != nil {
		return aerrors.NewRuntimeError("failed running migrations", err, "")
	}

	keyHash := hex.EncodeToString(crypto.Hash(keyHashContext, encKey[:]))
	_, err = s.ExecContext(s.ctx,
		`INSERT INTO _meta (version, encryption_key_hash, created_at) VALUES (?, ?, ?)`,
		appVersion, keyHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed saving store metadata: %w", err)
	}

	s.encKey = encKey

	return nil
}

// Version returns the app version the store was initialized with, or an
// empty string if it wasn't initialized.
func (s *Store) Version() (string, error) {
	ok, err := s.initialized()
	if err != nil || !ok {
		return "", err
	}

	var version string
	err = s.QueryRowContext(s.ctx, `SELECT version FROM _meta`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	return version, nil
}

// Migrations returns all database migrations.
func (s *Store) Migrations() []*migrator.Migration {
	return s.migrations
}

func (s *Store) Exists(namespace, key string) (bool, error) {
	var one int
	err := s.QueryRowContext(s.ctx,
		`SELECT 1 FROM entries WHERE namespace = ? AND key = ?`,
		namespace, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *Store) Put(namespace, key string, payload []byte, access store.Accessibility) error {
	if s.encKey == nil {
		return ErrLocked
	}

	valueEnc, err := crypto.EncryptSymInMemory(payload, s.encKey)
	if err != nil {
		return fmt.Errorf("failed encrypting value: %w", err)
	}

	_, err = s.ExecContext(s.ctx,
		`INSERT INTO entries (namespace, key, value, access, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = excluded.value, access = excluded.access, updated_at = excluded.updated_at`,
		namespace, key, valueEnc, int(access.Class), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed saving entry: %w", err)
	}

	return nil
}

func (s *Store) Get(namespace, key string) ([]byte, error) {
	if s.encKey == nil {
		return nil, ErrLocked
	}

	var (
		valueEnc []byte
		access   int
	)
	err := s.QueryRowContext(s.ctx,
		`SELECT value, access FROM entries WHERE namespace = ? AND key = ?`,
		namespace, key).Scan(&valueEnc, &access)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err = s.ac.Check(store.AccessClass(access)); err != nil {
		return nil, err
	}

	value, err := crypto.DecryptSymInMemory(valueEnc, s.encKey)
	if err != nil {
		return nil, fmt.Errorf("failed decrypting entry: %w", err)
	}

	return value, nil
}

// Accessibility returns the accessibility an entry was stored with. It works
// on a locked store, since the payload isn't decrypted.
func (s *Store) Accessibility(namespace, key string) (store.Accessibility, error) {
	var access int
	err := s.QueryRowContext(s.ctx,
		`SELECT access FROM entries WHERE namespace = ? AND key = ?`,
		namespace, key).Scan(&access)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Accessibility{}, store.ErrNotFound
	}
	if err != nil {
		return store.Accessibility{}, err
	}

	return store.Accessibility{Class: store.AccessClass(access)}, nil
}

func (s *Store) Delete(namespace, key string) error {
	res, err := s.ExecContext(s.ctx,
		`DELETE FROM entries WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteAll(namespace string) error {
	_, err := s.ExecContext(s.ctx, `DELETE FROM entries WHERE namespace = ?`, namespace)
	return err
}

func (s *Store) List(namespace string) ([]string, error) {
	rows, err := s.QueryContext(s.ctx,
		`SELECT key FROM entries WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *Store) initialized() (bool, error) {
	var count int
	err := s.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = '_meta'`).
		Scan(&count)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (s *Store) encryptionKeyHash() (string, error) {
	ok, err := s.initialized()
	if err != nil {
		return "", err
	}

	var keyHash string
	if ok {
		err = s.QueryRowContext(s.ctx, `SELECT encryption_key_hash FROM _meta`).Scan(&keyHash)
	}
	if !ok || errors.Is(err, sql.ErrNoRows) {
		return "", aerrors.NewRuntimeError("missing encryption key hash", nil,
			"Did you forget to run 'stow init'?")
	}
	if err != nil {
		return "", err
	}

	return keyHash, nil
}
