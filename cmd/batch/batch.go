// Package batch contains the "batch" CLI commands.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pasqal-io/cloud-sdk-go/client"
	"github.com/pasqal-io/cloud-sdk-go/cmd/util"
	"github.com/pasqal-io/cloud-sdk-go/config"
	"github.com/pasqal-io/cloud-sdk-go/logger"
	"github.com/pasqal-io/cloud-sdk-go/sdk"
	"github.com/spf13/cobra"
)

// NewCommand returns the "batch" subcommands.
func NewCommand() *cobra.Command {
	cmd, _ := newCommandHooks()
	return cmd
}

func newCommandHooks() (*cobra.Command, *hooks) {
	h := &hooks{
		Create: Create,
		Get:    Get,
	}

	var (
		configFile string
		envFile    string
		flagConf   = config.Config{}
	)

	cmd := &cobra.Command{
		Use:     "batch",
		Aliases: []string{"batches"},
		Short:   "Create and fetch batches.",
	}
	cmd.PersistentFlags().AddFlagSet(util.ClientFlags(&flagConf, &configFile, &envFile))
	cmd.SetGlobalNormalizationFunc(util.NormalizeFlags)

	var (
		sequence string
		jobsArg  string
		opts     sdk.CreateOptions
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a batch from a serialized sequence and a list of jobs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := util.ReadArg(sequence, cmd.InOrStdin())
			if err != nil {
				return err
			}
			jobs, err := parseJobs(jobsArg, cmd.InOrStdin())
			if err != nil {
				return err
			}
			conf, err := util.LoadConfig(configFile, envFile, flagConf)
			if err != nil {
				return err
			}
			ctx, cancel := util.CommandContext()
			defer cancel()
			return h.Create(ctx, conf, string(seq), jobs, opts, cmd.OutOrStdout())
		},
	}

	cf := create.Flags()
	cf.StringVarP(&sequence, "sequence", "s", sequence, "Serialized sequence: a file path, '-' for stdin, or the literal value")
	cf.StringVarP(&jobsArg, "jobs", "j", jobsArg, "JSON list of jobs ({\"runs\": N, \"variables\": {...}}): a file path, '-' for stdin, or the literal value")
	cf.BoolVar(&opts.Emulator, "emulator", opts.Emulator, "Run on an emulator")
	cf.BoolVarP(&opts.Wait, "wait", "w", opts.Wait, "Wait until the batch settles and print its results")
	_ = create.MarkFlagRequired("sequence")

	var results bool
	get := &cobra.Command{
		Use:   "get [batchID]",
		Short: "Get a batch and its jobs by ID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := util.LoadConfig(configFile, envFile, flagConf)
			if err != nil {
				return err
			}
			ctx, cancel := util.CommandContext()
			defer cancel()
			return h.Get(ctx, conf, client.ID(args[0]), results, cmd.OutOrStdout())
		},
	}
	get.Flags().BoolVarP(&results, "results", "r", results, "Include job results")

	cmd.AddCommand(create, get)
	return cmd, h
}

type hooks struct {
	Create func(ctx context.Context, conf config.Config, sequence string, jobs []client.JobSpec, opts sdk.CreateOptions, w io.Writer) error
	Get    func(ctx context.Context, conf config.Config, id client.ID, results bool, w io.Writer) error
}

func parseJobs(arg string, stdin io.Reader) ([]client.JobSpec, error) {
	if arg == "" {
		return nil, nil
	}
	raw, err := util.ReadArg(arg, stdin)
	if err != nil {
		return nil, err
	}
	var jobs []client.JobSpec
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, fmt.Errorf("invalid jobs: %v", err)
	}
	for i, j := range jobs {
		if j.Runs <= 0 {
			return nil, fmt.Errorf("invalid jobs: job %d: runs must be positive", i)
		}
	}
	return jobs, nil
}

func newSDK(ctx context.Context, conf config.Config) (*sdk.SDK, error) {
	logger.Configure(conf.Logger)
	return sdk.FromConfig(ctx, conf, sdk.WithLogger(logger.NewSubLogger("sdk")))
}

// Create submits a batch and prints it as JSON.
func Create(ctx context.Context, conf config.Config, sequence string, jobs []client.JobSpec, opts sdk.CreateOptions, w io.Writer) error {
	s, err := newSDK(ctx, conf)
	if err != nil {
		return err
	}
	b, err := s.CreateBatch(ctx, sequence, jobs, opts)
	if err != nil {
		return err
	}
	return util.PrintJSON(w, b)
}

// Get fetches a batch and prints it as JSON.
func Get(ctx context.Context, conf config.Config, id client.ID, results bool, w io.Writer) error {
	s, err := newSDK(ctx, conf)
	if err != nil {
		return err
	}
	b, err := s.GetBatch(ctx, id, results)
	if err != nil {
		return err
	}
	return util.PrintJSON(w, b)
}
