package main

import (
	"github.com/spf13/cobra"
)

var cmdPurge = &cobra.Command{
	Use:   "purge",
	Short: "Remove all cached downloads",
	Long: `
The "purge" command empties the cache directory and recreates it. The
cache never expires entries on its own; this is the only way to drop
them.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.Purge()
	},
}

func init() {
	cmdRoot.AddCommand(cmdPurge)
}
