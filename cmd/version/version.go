package version

import (
	"fmt"

	"github.com/pasqal-io/cloud-sdk-go/version"
	"github.com/spf13/cobra"
)

// Cmd represents the "version" command
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if version.GitCommit != "" {
			fmt.Fprintln(w, "git commit:", version.GitCommit)
		}
		if version.GitBranch != "" {
			fmt.Fprintln(w, "git branch:", version.GitBranch)
		}
		if version.BuildDate != "" {
			fmt.Fprintln(w, "build date:", version.BuildDate)
		}
		fmt.Fprintln(w, "version:", version.Version)
	},
}
