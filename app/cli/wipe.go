package cli

import (
	"fmt"

	actx "go.hackfix.me/stow/app/context"
	aerrors "go.hackfix.me/stow/app/errors"
)

// The Wipe command deletes all keys in the namespace.
type Wipe struct {
	Yes bool `help:"Confirm the deletion."`
}

// Run the wipe command.
func (c *Wipe) Run(appCtx *actx.Context) error {
	if !c.Yes {
		return aerrors.NewRuntimeError("refusing to wipe the store without confirmation", nil,
			"Pass --yes to delete all keys.")
	}

	if err := appCtx.Store.DeleteAll(); err != nil {
		return err
	}

	appCtx.Logger.Info(fmt.Sprintf("deleted all keys in namespace '%s'", appCtx.Store.Namespace()))

	return nil
}
