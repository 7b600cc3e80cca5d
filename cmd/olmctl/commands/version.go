package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"olm/olm"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		RunE: func(cmd *cobra.Command, args []string) error {
			major, minor, patch := olm.LibraryVersion()
			fmt.Printf("%d.%d.%d\n", major, minor, patch)
			return nil
		},
	}
}
