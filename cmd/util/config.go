package util

import (
	"fmt"
	"strings"

	"github.com/imdario/mergo"
	"github.com/joho/godotenv"
	"github.com/pasqal-io/cloud-sdk-go/config"
	"github.com/pasqal-io/cloud-sdk-go/logger"
	"github.com/spf13/pflag"
)

func normalize(name string) string {
	from := []string{"-", "_"}
	to := "."
	for _, sep := range from {
		name = strings.Replace(name, sep, to, -1)
	}
	return strings.ToLower(name)
}

// NormalizeFlags allows for flags to be case and separator insensitive.
// Use it by passing it to cobra.Command.SetGlobalNormalizationFunc
func NormalizeFlags(f *pflag.FlagSet, name string) pflag.NormalizedName {
	lookup := map[string]string{"help": "help", normalize(name): name}

	f.VisitAll(func(f *pflag.Flag) {
		lookup[normalize(f.Name)] = f.Name
	})

	return pflag.NormalizedName(lookup[normalize(name)])
}

// LoadConfig builds the CLI configuration and configures the global logger
// from it. Later sources override earlier ones: defaults, the optional .env
// file, the config file, CLOUDSDK_* environment variables and finally
// command line flags.
func LoadConfig(file, envFile string, flagConf config.Config) (config.Config, error) {
	conf := config.DefaultConfig()

	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return conf, fmt.Errorf("failed to load env file %s: %v", envFile, err)
		}
		conf.ApplyVars(vars)
	}

	if err := config.ParseFile(file, &conf); err != nil {
		return conf, err
	}
	conf.ApplyEnv()

	// dotenv vals <- file vals <- env vals <- cli vals
	if err := mergo.MergeWithOverwrite(&conf, flagConf); err != nil {
		return conf, err
	}

	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid configuration: %v", err)
	}

	logger.Configure(conf.Logger)
	logger.Debug("Loaded configuration", "file", file, "envFile", envFile)
	return conf, nil
}
