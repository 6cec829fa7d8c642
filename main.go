package main

import (
	"os"

	"github.com/pasqal-io/cloud-sdk-go/cmd"
	"github.com/pasqal-io/cloud-sdk-go/cmd/util"
	"github.com/pasqal-io/cloud-sdk-go/logger"
)

func main() {
	cmd.RootCmd.SetIn(util.StdinPipe())
	if err := cmd.RootCmd.Execute(); err != nil {
		logger.PrintSimpleError(err)
		os.Exit(1)
	}
}
