package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cmdModTime = &cobra.Command{
	Use:   "modtime [flags] URL",
	Short: "Print the last-modified timestamp of a URL",
	Long: `
The "modtime" command prints the server-reported last-modified time of
the given URL. When offline and the URL has a cached copy, the cached
entry's timestamp is printed without contacting the network.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ts, err := a.ModTime(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if ts.IsZero() {
			fmt.Println("unknown")
			return nil
		}
		fmt.Println(ts.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	cmdRoot.AddCommand(cmdModTime)
}
