package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, n := range []string{"batch", "job", "version", "completion"} {
		assert.True(t, names[n], n)
	}
}

func TestVersionAndCompletion(t *testing.T) {
	out := &bytes.Buffer{}
	RootCmd.SetOut(out)
	defer RootCmd.SetOut(nil)

	RootCmd.SetArgs([]string{"version"})
	require.NoError(t, RootCmd.Execute())
	assert.Contains(t, out.String(), "version: unknown")

	out.Reset()
	RootCmd.SetArgs([]string{"completion", "bash"})
	require.NoError(t, RootCmd.Execute())
	assert.Contains(t, out.String(), "cloudsdk")
}
