package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"go.hackfix.me/stow/app/cli"
	actx "go.hackfix.me/stow/app/context"
	aerrors "go.hackfix.me/stow/app/errors"
	"go.hackfix.me/stow/crypto"
	"go.hackfix.me/stow/kv"
	"go.hackfix.me/stow/store"
	"go.hackfix.me/stow/store/metrics"
)

// App is the application.
type App struct {
	ctx         *actx.Context
	cli         *cli.CLI
	logLevel    *slog.LevelVar
	configPaths []string
	backend     store.Backend
	closers     []io.Closer

	Exit func(int)
}

// New initializes a new application.
func New(opts ...Option) (*App, error) {
	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		Version: actx.GetVersion(),
		Logger:  slog.Default(),
		Stdin:   strings.NewReader(""),
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	app := &App{
		ctx:         defaultCtx,
		logLevel:    &slog.LevelVar{},
		configPaths: []string{filepath.Join(xdg.ConfigHome, "stow", "config.yaml")},
		Exit:        func(int) {},
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.ctx.FS == nil {
		return nil, fmt.Errorf("no filesystem provided")
	}

	return app, nil
}

// Run parses the command line arguments, and runs the selected command.
func (app *App) Run(args []string) error {
	defer app.close()

	app.cli = &cli.CLI{}
	err := app.cli.Setup(args,
		kong.Exit(app.Exit),
		kong.Writers(app.ctx.Stdout, app.ctx.Stderr),
		kong.Vars{"dataDir": filepath.Join(xdg.DataHome, "stow")},
		kong.Configuration(YAMLConfig, app.configPaths...),
	)
	if err != nil {
		return err
	}

	if err = app.logLevel.UnmarshalText([]byte(app.cli.LogLevel)); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	app.ctx.OpenBackend = func(encKey *[32]byte) (store.Backend, error) {
		b, err := app.openBackend(encKey)
		if err != nil {
			return nil, err
		}
		if app.cli.MetricsFile == "" {
			return b, nil
		}
		return metrics.Wrap(b, reg)
	}

	switch app.cli.Command() {
	case "init", "version":
	default:
		if err = app.openStore(); err != nil {
			return err
		}
	}

	if err = app.cli.Run(app.ctx); err != nil {
		return err
	}

	if app.cli.MetricsFile != "" {
		if err = prometheus.WriteToTextfile(app.cli.MetricsFile, reg); err != nil {
			return fmt.Errorf("failed writing metrics: %w", err)
		}
	}

	return nil
}

// FatalIfErrorf terminates the application with an error message if err != nil.
func (app *App) FatalIfErrorf(err error, args ...any) {
	if err == nil {
		return
	}

	app.ctx.Logger.Error(err.Error(), args...)
	if herr, ok := err.(aerrors.WithHint); ok && herr.Hint() != "" {
		fmt.Fprintf(app.ctx.Stderr, "Hint: %s\n", herr.Hint())
	}
	app.Exit(1)
}

func (app *App) openStore() error {
	var (
		encKey *[32]byte
		err    error
	)
	keyEnc := app.cli.EncryptionKey
	if keyEnc == "" && app.ctx.Env != nil {
		keyEnc = app.ctx.Env.Get("STOW_ENCRYPTION_KEY")
	}
	if keyEnc != "" {
		encKey, err = crypto.DecodeKey(keyEnc)
		if err != nil {
			return aerrors.NewRuntimeError("invalid encryption key", err, "")
		}
	}

	b, err := app.ctx.OpenBackend(encKey)
	if err != nil {
		return err
	}

	app.ctx.Store, err = kv.New(b, app.cli.Namespace, kv.WithLogger(app.ctx.Logger))

	return err
}

func (app *App) close() {
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.ctx.Logger.Warn("failed closing store", "error", err.Error())
		}
	}
	app.closers = nil
}
