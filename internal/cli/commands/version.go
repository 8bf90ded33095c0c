package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the swarmpal version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(formatVersion())
	},
}
