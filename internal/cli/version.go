package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release version of the binary.
const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		if globalFlags.JSON {
			emitNDJSON("version", map[string]interface{}{"version": Version})
			return
		}
		fmt.Println("minisearch " + Version)
	},
}
