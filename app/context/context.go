package context

import (
	"context"
	"io"
	"log/slog"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/stow/kv"
	"go.hackfix.me/stow/store"
)

// Context contains common objects used by the application. It is passed around
// the application to avoid direct dependencies on external systems, and make
// testing easier.
type Context struct {
	Ctx     context.Context
	Version *VersionInfo
	FS      vfs.FileSystem
	Env     Environment
	Logger  *slog.Logger

	// Standard streams
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// OpenBackend opens the configured backend. encKey is nil if no key was
	// provided, in which case secure backends fail to open.
	OpenBackend func(encKey *[32]byte) (store.Backend, error)
	// Store is the typed store commands operate on. It's nil for commands
	// that don't need it.
	Store *kv.Store
}

// Environment is the interface to the process environment.
type Environment interface {
	Get(string) string
	Set(string, string) error
}
