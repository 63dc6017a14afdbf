// internal/cli/show.go
package genbench

import "github.com/spf13/cobra"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Inspect harness state",
}

func init() {
	rootCmd.AddCommand(showCmd)
}
