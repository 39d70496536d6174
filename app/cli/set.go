package cli

import (
	"io"

	actx "go.hackfix.me/stow/app/context"
	"go.hackfix.me/stow/kv"
	"go.hackfix.me/stow/store"
)

// The Set command stores the value of a key.
type Set struct {
	Key   string `arg:"" help:"The unique key that identifies the value."`
	Value string `arg:"" help:"The value. If '-', it is read from stdin."`

	Overwrite     bool   `help:"Replace the value if the key already exists."`
	Accessibility string `enum:"after-first-unlock,always,custom" default:"after-first-unlock" help:"When the value may be read. One of: ${enum}."`
}

// Run the set command.
func (c *Set) Run(appCtx *actx.Context) error {
	data := []byte(c.Value)
	if c.Value == "-" {
		var err error
		if data, err = io.ReadAll(appCtx.Stdin); err != nil {
			return err
		}
	}

	opts := []kv.SaveOption{kv.Accessibility(parseAccessibility(c.Accessibility))}
	if c.Overwrite {
		opts = append(opts, kv.Overwrite())
	}

	return kv.Save(appCtx.Store, &kv.Blob{Key: c.Key, Data: data}, opts...)
}

func parseAccessibility(s string) store.Accessibility {
	switch s {
	case "always":
		return store.AccessibleAlways
	case "custom":
		return store.AccessibleCustom
	default:
		return store.AccessibleAfterFirstUnlock
	}
}
