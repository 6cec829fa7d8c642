package client

import (
	"fmt"
	"regexp"
	"strings"
)

// Production base URLs of the remote services.
const (
	DefaultAccountURL = "https://apis.pasqal.cloud/account"
	DefaultCoreURL    = "https://apis.pasqal.cloud/core"
)

// Endpoints holds the base URLs of the account (auth) service and the core
// (batch/job) service.
type Endpoints struct {
	Account string
	Core    string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Account: DefaultAccountURL,
		Core:    DefaultCoreURL,
	}
}

var (
	reScheme   = regexp.MustCompile("^.+://")
	reTrailing = regexp.MustCompile("/+$")
)

// normalize strips trailing slashes, defaults the scheme to https and rejects
// anything that is not http(s).
func (e Endpoints) normalize() (Endpoints, error) {
	account, err := normalizeBaseURL(e.Account)
	if err != nil {
		return e, fmt.Errorf("account endpoint: %v", err)
	}
	core, err := normalizeBaseURL(e.Core)
	if err != nil {
		return e, fmt.Errorf("core endpoint: %v", err)
	}
	return Endpoints{Account: account, Core: core}, nil
}

func normalizeBaseURL(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("empty base URL")
	}
	endpoint := reTrailing.ReplaceAllString(address, "")

	if reScheme.MatchString(endpoint) {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			return "", fmt.Errorf("invalid protocol: '%s'; expected: 'http://' or 'https://'", reScheme.FindString(endpoint))
		}
	} else {
		endpoint = "https://" + endpoint
	}
	return endpoint, nil
}
