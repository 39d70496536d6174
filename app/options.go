package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "go.hackfix.me/stow/app/context"
	"go.hackfix.me/stow/store"
)

// Option is a function that allows configuring the application.
type Option func(*App)

// WithBackend sets the backend used by the application, instead of opening
// the one selected on the command line.
func WithBackend(b store.Backend) Option {
	return func(app *App) {
		app.backend = b
	}
}

// WithConfigPaths sets the paths of YAML configuration files, which are
// loaded in order. Missing files are ignored.
func WithConfigPaths(paths ...string) Option {
	return func(app *App) {
		app.configPaths = paths
	}
}

// WithContext sets the main context of the application.
func WithContext(ctx context.Context) Option {
	return func(app *App) {
		app.ctx.Ctx = ctx
	}
}

// WithEnv sets the process environment used by the application.
func WithEnv(env actx.Environment) Option {
	return func(app *App) {
		app.ctx.Env = env
	}
}

// WithExit sets the function that stops the application.
func WithExit(fn func(int)) Option {
	return func(app *App) {
		app.Exit = fn
	}
}

// WithFDs sets the file descriptors used by the application.
func WithFDs(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(app *App) {
		app.ctx.Stdin = stdin
		app.ctx.Stdout = stdout
		app.ctx.Stderr = stderr
	}
}

// WithFS sets the filesystem used by the application.
func WithFS(fs vfs.FileSystem) Option {
	return func(app *App) {
		app.ctx.FS = fs
	}
}

// WithLogger initializes the logger used by the application. It writes to the
// stderr set by WithFDs, so it must be passed after it. The level is set by
// the --log-level flag.
func WithLogger(isStderrTTY bool) Option {
	return func(app *App) {
		logger := slog.New(
			tint.NewHandler(app.ctx.Stderr, &tint.Options{
				Level:      app.logLevel,
				NoColor:    !isStderrTTY,
				TimeFormat: "2006-01-02 15:04:05.000",
			}),
		)
		app.ctx.Logger = logger
		slog.SetDefault(logger)
	}
}
