package cli

import (
	actx "go.hackfix.me/stow/app/context"
	"go.hackfix.me/stow/kv"
)

// The Get command retrieves and prints the value of a key.
type Get struct {
	Key string `arg:"" help:"The unique key associated with the value."`
}

// Run the get command.
func (c *Get) Run(appCtx *actx.Context) error {
	var val kv.Blob
	if err := appCtx.Store.Load(c.Key, &val); err != nil {
		return err
	}

	if _, err := appCtx.Stdout.Write(val.Data); err != nil {
		return err
	}
	_, err := appCtx.Stdout.Write([]byte{'\n'})

	return err
}
