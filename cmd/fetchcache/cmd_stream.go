package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cmdStream = &cobra.Command{
	Use:   "stream [flags] URL",
	Short: "Stream a URL to stdout without caching",
	Long: `
The "stream" command copies the URL's content to stdout as it arrives.
Streams bypass the cache entirely: their length and cacheability are
not known up front, so they are never buffered or persisted.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.Stream(cmd.Context(), args[0], os.Stdout)
	},
}

func init() {
	cmdRoot.AddCommand(cmdStream)
}
