package sqlite

import (
	"encoding/hex"
	"log/slog"

	aerrors "go.hackfix.me/stow/app/errors"
	"go.hackfix.me/stow/crypto"
	"go.hackfix.me/stow/store"
)

// Option is a function that allows configuring the store.
type Option func(*Store) error

// WithEncryptionKey validates and sets the key used to encrypt entry values.
// The store must have been initialized with the same key.
func WithEncryptionKey(key *[32]byte) Option {
	return func(s *Store) error {
		keyHash, err := s.encryptionKeyHash()
		if err != nil {
			return err
		}

		if keyHash != hex.EncodeToString(crypto.Hash(keyHashContext, key[:])) {
			return aerrors.NewRuntimeError("invalid encryption key", nil,
				"Use the key that was printed when the store was initialized.")
		}

		s.encKey = key

		return nil
	}
}

// WithAccessControl sets the device state provider and custom policy used to
// enforce accessibility on reads.
func WithAccessControl(ac store.AccessControl) Option {
	return func(s *Store) error {
		s.ac = ac
		return nil
	}
}

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}
