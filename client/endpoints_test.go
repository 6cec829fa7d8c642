package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoints(t *testing.T) {
	e, err := Endpoints{
		Account: "https://apis.pasqal.cloud/account///",
		Core:    "localhost:8080/core",
	}.normalize()
	require.NoError(t, err)
	assert.Equal(t, "https://apis.pasqal.cloud/account", e.Account)
	assert.Equal(t, "https://localhost:8080/core", e.Core)

	_, err = Endpoints{Account: "http://a", Core: "grpc://b"}.normalize()
	assert.EqualError(t, err, "core endpoint: invalid protocol: 'grpc://'; expected: 'http://' or 'https://'")

	_, err = Endpoints{Account: " ", Core: "b"}.normalize()
	assert.Error(t, err)
}

func TestDefaultEndpoints(t *testing.T) {
	e, err := DefaultEndpoints().normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoints(), e)
}
