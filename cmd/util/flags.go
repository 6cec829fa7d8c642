package util

import (
	"github.com/pasqal-io/cloud-sdk-go/config"
	"github.com/spf13/pflag"
)

// ClientFlags returns a new flag set for configuring the SDK client.
func ClientFlags(flagConf *config.Config, configFile, envFile *string) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVarP(configFile, "config", "c", *configFile, "Config File")
	f.StringVar(envFile, "env-file", *envFile, "File of CLOUDSDK_* variables to load into the environment")

	f.AddFlagSet(endpointFlags(flagConf))
	f.AddFlagSet(credentialFlags(flagConf))
	f.AddFlagSet(pollFlags(flagConf))
	f.AddFlagSet(loggerFlags(flagConf))

	return f
}

func endpointFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVar(&flagConf.Endpoints.Account, "account-url", flagConf.Endpoints.Account, "Base URL of the account service")
	f.StringVar(&flagConf.Endpoints.Core, "core-url", flagConf.Endpoints.Core, "Base URL of the core service")
	f.StringVar(&flagConf.Webhook, "webhook", flagConf.Webhook, "URL called back when a created batch settles")
	f.Var(&flagConf.Timeout, "timeout", "Timeout of each HTTP call")

	return f
}

func credentialFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVar(&flagConf.Credentials.ClientID, "client-id", flagConf.Credentials.ClientID, "API key client ID")
	f.StringVar(&flagConf.Credentials.ClientSecret, "client-secret", flagConf.Credentials.ClientSecret, "API key client secret")

	return f
}

func pollFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.Var(&flagConf.Poll.Interval, "poll-interval", "Pause between two status checks while waiting")
	f.IntVar(&flagConf.Poll.MaxAttempts, "poll-max-attempts", flagConf.Poll.MaxAttempts, "Give up waiting after this many status checks (0 means never)")
	f.Var(&flagConf.Poll.Timeout, "poll-timeout", "Give up waiting after this long (0 means never)")

	return f
}

func loggerFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVar(&flagConf.Logger.Level, "log-level", flagConf.Logger.Level, "Level of logging")
	f.StringVar(&flagConf.Logger.Formatter, "log-format", flagConf.Logger.Formatter, "Log format. One of [json, text]")
	f.StringVar(&flagConf.Logger.OutputFile, "log-file", flagConf.Logger.OutputFile, "File path to write logs to")

	return f
}
