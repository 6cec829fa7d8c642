// Package cmd contains the cloudsdk CLI commands.
package cmd

import (
	"github.com/pasqal-io/cloud-sdk-go/cmd/batch"
	"github.com/pasqal-io/cloud-sdk-go/cmd/job"
	"github.com/pasqal-io/cloud-sdk-go/cmd/version"
	"github.com/spf13/cobra"
)

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:           "cloudsdk",
	Short:         "Submit batches of jobs to the cloud service and fetch their results.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	RootCmd.AddCommand(batch.NewCommand())
	RootCmd.AddCommand(completionCmd)
	RootCmd.AddCommand(job.NewCommand())
	RootCmd.AddCommand(version.Cmd)
}
