package config

import (
	"github.com/pasqal-io/cloud-sdk-go/client"
	"github.com/pasqal-io/cloud-sdk-go/logger"
)

// DefaultConfig returns configuration pointing at the production services,
// with unbounded waits.
func DefaultConfig() Config {
	return Config{
		Endpoints: Endpoints{
			Account: client.DefaultAccountURL,
			Core:    client.DefaultCoreURL,
		},
		Timeout: Duration(client.DefaultTimeout),
		Poll: Poll{
			Interval: Duration(client.ResultPollingInterval),
		},
		RateLimit: RateLimit{
			Burst: 1,
		},
		MaxResponseSize: "32MiB",
		Logger:          logger.DefaultConfig(),
	}
}

// ClientOptions translates the config into client options.
func (c Config) ClientOptions() ([]client.Option, error) {
	max, err := c.MaxResponseBytes()
	if err != nil {
		return nil, err
	}
	return []client.Option{
		client.WithEndpoints(client.Endpoints{
			Account: c.Endpoints.Account,
			Core:    c.Endpoints.Core,
		}),
		client.WithTimeout(c.Timeout.Duration()),
		client.WithRateLimit(c.RateLimit.RequestsPerSecond, c.RateLimit.Burst),
		client.WithMaxResponseSize(max),
		client.WithPollOptions(client.PollOptions{
			Interval:    c.Poll.Interval.Duration(),
			MaxAttempts: c.Poll.MaxAttempts,
			Timeout:     c.Poll.Timeout.Duration(),
		}),
	}, nil
}

// ClientCredentials returns the credentials in the form the client takes.
func (c Config) ClientCredentials() client.Credentials {
	return client.Credentials{
		ClientID:     c.Credentials.ClientID,
		ClientSecret: c.Credentials.ClientSecret,
	}
}
