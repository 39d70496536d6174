package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"go.hackfix.me/stow/app"
	actx "go.hackfix.me/stow/app/context"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	isStderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	a, err := app.New(
		app.WithContext(ctx),
		app.WithExit(os.Exit),
		app.WithFS(osfs.New()),
		app.WithEnv(osEnv{}),
		app.WithFDs(os.Stdin, os.Stdout, colorable.NewColorable(os.Stderr)),
		app.WithLogger(isStderrTTY),
	)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	a.FatalIfErrorf(a.Run(os.Args[1:]))
}

type osEnv struct{}

var _ actx.Environment = &osEnv{}

func (e osEnv) Get(key string) string {
	return os.Getenv(key)
}

func (e osEnv) Set(key, val string) error {
	return os.Setenv(key, val)
}
