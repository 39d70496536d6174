package cli

import (
	"fmt"
	"slices"
	"strings"

	actx "go.hackfix.me/stow/app/context"
)

// The LS command prints keys.
type LS struct {
	KeyPrefix string `arg:"" optional:"" help:"An optional key prefix."`
}

// Run the ls command.
func (c *LS) Run(appCtx *actx.Context) error {
	keys := appCtx.Store.AllKeys()
	slices.Sort(keys)

	for _, key := range keys {
		if strings.HasPrefix(key, c.KeyPrefix) {
			fmt.Fprintln(appCtx.Stdout, key)
		}
	}

	return nil
}
