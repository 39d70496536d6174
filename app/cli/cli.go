package cli

import (
	"github.com/alecthomas/kong"
)

// CLI is the command line interface of stow.
type CLI struct {
	ctx *kong.Context

	Init    Init    `kong:"cmd,help='Initialize the data store, and generate a new encryption key.'"`
	Get     Get     `kong:"cmd,help='Print the value of a key.'"`
	Set     Set     `kong:"cmd,help='Set the value of a key.'"`
	LS      LS      `kong:"cmd,help='List keys.'"`
	Rm      Rm      `kong:"cmd,help='Delete a key.'"`
	Wipe    Wipe    `kong:"cmd,help='Delete all keys in the namespace.'"`
	Version Version `kong:"cmd,help='Print the version and exit.'"`

	Backend       string `kong:"enum='badger,sqlite,prefs',default='badger',help='Storage backend. One of: ${enum}.'"`
	Namespace     string `kong:"default='default',help='The namespace to operate on.'"`
	DataDir       string `kong:"default='${dataDir}',help='Directory where data is stored.'"`
	EncryptionKey string `kong:"help='Key used for encrypting the secure backends, as printed by the init command.'"`
	CustomAccess  string `kong:"enum='unlocked,always,never',default='unlocked',help='Policy for reading values stored with the custom accessibility on the secure backends. One of: ${enum}.'"`
	LogLevel      string `kong:"enum='debug,info,warn,error',default='info',help='Log level. One of: ${enum}.'"`
	MetricsFile   string `kong:"help='Write backend metrics in the Prometheus text format to this file.'"`
}

// Setup the command-line interface.
func (c *CLI) Setup(args []string, opts ...kong.Option) error {
	opts = append([]kong.Option{
		kong.Name("stow"),
		kong.Description("Typed local key-value store."),
		kong.UsageOnError(),
		kong.DefaultEnvars("STOW"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	}, opts...)

	parser, err := kong.New(c, opts...)
	if err != nil {
		return err
	}

	c.ctx, err = parser.Parse(args)
	if err != nil {
		return err
	}

	return nil
}

// Command returns the name of the selected command.
func (c *CLI) Command() string {
	return c.ctx.Selected().Name
}

// Run the selected command.
func (c *CLI) Run(bindings ...any) error {
	return c.ctx.Run(bindings...)
}
