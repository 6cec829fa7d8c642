// Package job contains the "job" CLI commands.
package job

import (
	"context"
	"io"

	"github.com/pasqal-io/cloud-sdk-go/client"
	"github.com/pasqal-io/cloud-sdk-go/cmd/util"
	"github.com/pasqal-io/cloud-sdk-go/config"
	"github.com/pasqal-io/cloud-sdk-go/logger"
	"github.com/spf13/cobra"
)

// NewCommand returns the "job" subcommands.
func NewCommand() *cobra.Command {
	cmd, _ := newCommandHooks()
	return cmd
}

func newCommandHooks() (*cobra.Command, *hooks) {
	h := &hooks{
		Get: Get,
	}

	var (
		configFile string
		envFile    string
		flagConf   = config.Config{}
	)

	cmd := &cobra.Command{
		Use:     "job",
		Aliases: []string{"jobs"},
		Short:   "Fetch jobs.",
	}
	cmd.PersistentFlags().AddFlagSet(util.ClientFlags(&flagConf, &configFile, &envFile))
	cmd.SetGlobalNormalizationFunc(util.NormalizeFlags)

	var wait bool
	get := &cobra.Command{
		Use:   "get [jobID]",
		Short: "Get a job by ID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := util.LoadConfig(configFile, envFile, flagConf)
			if err != nil {
				return err
			}
			ctx, cancel := util.CommandContext()
			defer cancel()
			return h.Get(ctx, conf, client.ID(args[0]), wait, cmd.OutOrStdout())
		},
	}
	get.Flags().BoolVarP(&wait, "wait", "w", wait, "Wait until the job settles")

	cmd.AddCommand(get)
	return cmd, h
}

type hooks struct {
	Get func(ctx context.Context, conf config.Config, id client.ID, wait bool, w io.Writer) error
}

// Get fetches a job, optionally waiting for it to settle, and prints it as
// JSON.
func Get(ctx context.Context, conf config.Config, id client.ID, wait bool, w io.Writer) error {
	opts, err := conf.ClientOptions()
	if err != nil {
		return err
	}
	logger.Configure(conf.Logger)
	opts = append(opts, client.WithLogger(logger.NewSubLogger("client")))

	c, err := client.New(ctx, conf.ClientCredentials(), opts...)
	if err != nil {
		return err
	}

	var job client.JobData
	if wait {
		job, err = c.WaitForJob(ctx, id)
	} else {
		job, err = c.GetJob(ctx, id)
	}
	if err != nil {
		return err
	}
	return util.PrintJSON(w, job)
}
