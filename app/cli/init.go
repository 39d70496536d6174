package cli

import (
	"fmt"

	actx "go.hackfix.me/stow/app/context"
	aerrors "go.hackfix.me/stow/app/errors"
	"go.hackfix.me/stow/crypto"
	"go.hackfix.me/stow/store"
)

// initializer is implemented by backends that need to set up their storage
// before use.
type initializer interface {
	Init(appVersion string, encKey *[32]byte) error
}

// The Init command initializes the data store and generates a new encryption
// key.
type Init struct{}

// Run the init command.
func (c *Init) Run(appCtx *actx.Context) error {
	key, err := crypto.NewKey()
	if err != nil {
		return err
	}

	b, err := appCtx.OpenBackend(key)
	if err != nil {
		return aerrors.NewRuntimeError("failed opening store", err, "")
	}

	for b != nil {
		if i, ok := b.(initializer); ok {
			if err = i.Init(appCtx.Version.Semantic, key); err != nil {
				return aerrors.NewRuntimeError("failed initializing store", err, "")
			}
			break
		}
		u, ok := b.(interface{ Unwrap() store.Backend })
		if !ok {
			break
		}
		b = u.Unwrap()
	}

	fmt.Fprintf(appCtx.Stdout, `New encryption key: %s

Make sure to store this key in a secure location, such as a password manager.

It will only be shown once, and you won't be able to access the data without it!
`, crypto.EncodeKey(key))

	return nil
}
