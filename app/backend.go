package app

import (
	"path/filepath"

	aerrors "go.hackfix.me/stow/app/errors"
	"go.hackfix.me/stow/store"
	"go.hackfix.me/stow/store/badger"
	"go.hackfix.me/stow/store/prefs"
	"go.hackfix.me/stow/store/sqlite"
)

const missingKeyHint = "Set the encryption key with --encryption-key or STOW_ENCRYPTION_KEY. " +
	"If you haven't initialized the store yet, run 'stow init'."

// openBackend opens the backend selected on the command line. If a backend
// was provided with WithBackend, it is returned instead.
func (app *App) openBackend(encKey *[32]byte) (store.Backend, error) {
	if app.backend != nil {
		return app.backend, nil
	}

	dataDir := app.cli.DataDir

	switch app.cli.Backend {
	case "prefs":
		return prefs.Open(app.ctx.FS, filepath.Join(dataDir, "prefs.yaml"))
	case "sqlite":
		if err := app.ctx.FS.MkdirAll(dataDir, 0o700); err != nil {
			return nil, err
		}
		opts := []sqlite.Option{
			sqlite.WithLogger(app.ctx.Logger),
			sqlite.WithAccessControl(app.accessControl()),
		}
		if encKey != nil && app.cli.Command() != "init" {
			opts = append(opts, sqlite.WithEncryptionKey(encKey))
		}
		s, err := sqlite.Open(app.ctx.Ctx, filepath.Join(dataDir, "stow.db"), opts...)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, s)
		return s, nil
	default:
		if encKey == nil {
			return nil, aerrors.NewRuntimeError("missing encryption key", nil, missingKeyHint)
		}
		path := filepath.Join(dataDir, "badger")
		if err := app.ctx.FS.MkdirAll(path, 0o700); err != nil {
			return nil, err
		}
		b, err := badger.Open(path, encKey[:], badger.WithAccessControl(app.accessControl()))
		if err != nil {
			return nil, aerrors.NewRuntimeError("failed opening store", err, "")
		}
		app.closers = append(app.closers, b)
		return b, nil
	}
}

// accessControl returns the policy the secure backends enforce on reads. The
// device state isn't tracked, so it's always considered unlocked, and only
// the custom policy is configurable.
func (app *App) accessControl() store.AccessControl {
	var custom func(store.DeviceState) bool
	switch app.cli.CustomAccess {
	case "always":
		custom = func(store.DeviceState) bool { return true }
	case "unlocked":
		custom = func(st store.DeviceState) bool { return st.Unlocked }
	default:
		custom = func(store.DeviceState) bool { return false }
	}

	return store.AccessControl{Custom: custom}
}
