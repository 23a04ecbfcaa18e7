package main

import (
	"github.com/spf13/cobra"
)

var cmdGet = &cobra.Command{
	Use:   "get [flags] URL",
	Short: "Download a URL, caching the result",
	Long: `
The "get" command downloads the given URL to a file. Successful
downloads are written through to the cache; with --offline (or
FETCHCACHE_OFFLINE=1) a previously cached copy is served without a
network fetch when one exists.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.Get(cmd.Context(), args[0], getOptions.Output, getOptions.Offset)
	},
}

// GetOptions bundles all options for the get command.
type GetOptions struct {
	Output string
	Offset int64
}

var getOptions GetOptions

func init() {
	cmdRoot.AddCommand(cmdGet)

	f := cmdGet.Flags()
	f.StringVarP(&getOptions.Output, "output", "o", "-", "output file ('-' for stdout)")
	f.Int64Var(&getOptions.Offset, "offset", 0, "start offset in bytes, forwarded to the server")
}
