package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/units"
	"github.com/ghodss/yaml"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pasqal-io/cloud-sdk-go/logger"
)

// Config describes configuration for the SDK and the cloudsdk CLI.
type Config struct {
	Endpoints   Endpoints
	Credentials Credentials
	// Webhook is attached to every batch created by the SDK.
	Webhook string
	// Timeout bounds every HTTP call.
	Timeout   Duration
	Poll      Poll
	RateLimit RateLimit
	// MaxResponseSize caps response bodies, e.g. "32MiB" or "10MB".
	MaxResponseSize string
	Logger          logger.Config
}

// Endpoints holds the base URLs of the account and core services.
type Endpoints struct {
	Account string
	Core    string
}

// Credentials is the API key used to log in. It is never written by ToYaml.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Poll controls waits on batches and jobs. Zero MaxAttempts and Timeout mean
// no limit.
type Poll struct {
	Interval    Duration
	MaxAttempts int
	Timeout     Duration
}

// RateLimit optionally limits outgoing requests. A zero RequestsPerSecond
// means unlimited.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// Environment variables read by ApplyEnv.
const (
	EnvClientID     = "CLOUDSDK_CLIENT_ID"
	EnvClientSecret = "CLOUDSDK_CLIENT_SECRET"
	EnvAccountURL   = "CLOUDSDK_ACCOUNT_URL"
	EnvCoreURL      = "CLOUDSDK_CORE_URL"
	EnvWebhook      = "CLOUDSDK_WEBHOOK"
)

// ApplyEnv overrides the config with any of the CLOUDSDK_* environment
// variables that are set.
func (c *Config) ApplyEnv() {
	c.applyVars(os.LookupEnv)
}

// ApplyVars overrides the config with the CLOUDSDK_* keys found in vars,
// such as the contents of a .env file.
func (c *Config) ApplyVars(vars map[string]string) {
	c.applyVars(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

func (c *Config) applyVars(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Credentials.ClientID, EnvClientID)
	set(&c.Credentials.ClientSecret, EnvClientSecret)
	set(&c.Endpoints.Account, EnvAccountURL)
	set(&c.Endpoints.Core, EnvCoreURL)
	set(&c.Webhook, EnvWebhook)
}

// MaxResponseBytes parses MaxResponseSize. An empty value means no limit.
func (c Config) MaxResponseBytes() (int64, error) {
	if c.MaxResponseSize == "" {
		return 0, nil
	}
	n, err := units.ParseStrictBytes(c.MaxResponseSize)
	if err != nil {
		return 0, fmt.Errorf("invalid MaxResponseSize %q: %v", c.MaxResponseSize, err)
	}
	return n, nil
}

// Validate returns every problem found in the config.
func (c Config) Validate() error {
	var errs *multierror.Error

	if c.Credentials.ClientID == "" {
		errs = multierror.Append(errs, fmt.Errorf("Credentials.ClientID is required"))
	}
	if c.Credentials.ClientSecret == "" {
		errs = multierror.Append(errs, fmt.Errorf("Credentials.ClientSecret is required"))
	}
	if err := validURL(c.Endpoints.Account); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("Endpoints.Account: %v", err))
	}
	if err := validURL(c.Endpoints.Core); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("Endpoints.Core: %v", err))
	}
	if c.Webhook != "" {
		if err := validURL(c.Webhook); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("Webhook: %v", err))
		}
	}
	if time.Duration(c.Timeout) < 0 {
		errs = multierror.Append(errs, fmt.Errorf("Timeout must not be negative"))
	}
	if time.Duration(c.Poll.Interval) <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("Poll.Interval must be positive"))
	}
	if c.Poll.MaxAttempts < 0 {
		errs = multierror.Append(errs, fmt.Errorf("Poll.MaxAttempts must not be negative"))
	}
	if time.Duration(c.Poll.Timeout) < 0 {
		errs = multierror.Append(errs, fmt.Errorf("Poll.Timeout must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = multierror.Append(errs, fmt.Errorf("RateLimit.RequestsPerSecond must not be negative"))
	}
	if _, err := c.MaxResponseBytes(); err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs.ErrorOrNil()
}

func validURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// ToYaml formats the configuration into YAML. The client secret is left out.
func (c Config) ToYaml() ([]byte, error) {
	c.Credentials.ClientSecret = ""
	return yaml.Marshal(c)
}

// Parse parses a YAML doc into the given Config instance.
func Parse(raw []byte, conf *Config) error {
	return yaml.Unmarshal(raw, conf)
}

// ParseFile parses a YAML config file into the given Config instance.
// An empty path is a no-op.
func ParseFile(relpath string, conf *Config) error {
	if relpath == "" {
		return nil
	}

	// Try to get absolute path. If it fails, fall back to relative path.
	path, abserr := filepath.Abs(relpath)
	if abserr != nil {
		path = relpath
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config at path %s: %v", path, err)
	}

	if err := Parse(source, conf); err != nil {
		return fmt.Errorf("failed to parse config at path %s: %v", path, err)
	}
	return nil
}
