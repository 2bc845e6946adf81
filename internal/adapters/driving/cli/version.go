package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show the codeassist version",
	Args:        cobra.NoArgs,
	Annotations: noServices(),
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("codeassist version %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
