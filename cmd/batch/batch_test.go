package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pasqal-io/cloud-sdk-go/client"
	"github.com/pasqal-io/cloud-sdk-go/client/clienttest"
	"github.com/pasqal-io/cloud-sdk-go/config"
	"github.com/pasqal-io/cloud-sdk-go/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var credFlags = []string{"--client-id", "id", "--client-secret", "secret"}

func TestCreateFlags(t *testing.T) {
	cmd, h := newCommandHooks()

	called := false
	h.Create = func(ctx context.Context, conf config.Config, sequence string, jobs []client.JobSpec, opts sdk.CreateOptions, w io.Writer) error {
		called = true
		assert.Equal(t, "pulser_test_sequence", sequence)
		require.Len(t, jobs, 1)
		assert.Equal(t, 50, jobs[0].Runs)
		f, ok := jobs[0].Variables["Omega_max"].Float()
		assert.True(t, ok)
		assert.Equal(t, 14.4, f)
		assert.True(t, opts.Wait)
		assert.True(t, opts.Emulator)
		assert.Equal(t, "id", conf.Credentials.ClientID)
		assert.Equal(t, "http://localhost:9000/core", conf.Endpoints.Core)
		assert.Equal(t, client.DefaultAccountURL, conf.Endpoints.Account)
		return nil
	}

	cmd.SetArgs(append([]string{"create",
		"--sequence", "pulser_test_sequence",
		"--jobs", `[{"runs":50,"variables":{"Omega_max":14.4,"last_target":"q1","ts":[200,500]}}]`,
		"--emulator", "--wait",
		"--core-url", "http://localhost:9000/core",
	}, credFlags...))
	require.NoError(t, cmd.Execute())
	assert.True(t, called)
}

func TestCreateReadsFiles(t *testing.T) {
	cmd, h := newCommandHooks()
	dir := t.TempDir()
	seqFile := filepath.Join(dir, "seq.json")
	jobsFile := filepath.Join(dir, "jobs.json")
	require.NoError(t, os.WriteFile(seqFile, []byte(`{"sequence":"abstract"}`), 0600))
	require.NoError(t, os.WriteFile(jobsFile, []byte(`[{"runs":1},{"runs":2}]`), 0600))

	h.Create = func(ctx context.Context, conf config.Config, sequence string, jobs []client.JobSpec, opts sdk.CreateOptions, w io.Writer) error {
		assert.Equal(t, `{"sequence":"abstract"}`, sequence)
		assert.Len(t, jobs, 2)
		assert.False(t, opts.Wait)
		return nil
	}

	cmd.SetArgs(append([]string{"create", "-s", seqFile, "-j", jobsFile}, credFlags...))
	require.NoError(t, cmd.Execute())
}

func TestCreateRejectsBadJobs(t *testing.T) {
	for _, jobs := range []string{`{"runs":1}`, `[{"runs":0}]`, `[{"runs":1,"variables":{"x":true}}]`} {
		cmd, h := newCommandHooks()
		h.Create = func(context.Context, config.Config, string, []client.JobSpec, sdk.CreateOptions, io.Writer) error {
			t.Errorf("create must not run with jobs %s", jobs)
			return nil
		}
		cmd.SetArgs(append([]string{"create", "-s", "seq", "-j", jobs}, credFlags...))
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		err := cmd.Execute()
		require.Error(t, err, jobs)
		assert.Contains(t, err.Error(), "invalid jobs")
	}
}

func TestCreateRequiresCredentials(t *testing.T) {
	t.Setenv(config.EnvClientID, "")
	t.Setenv(config.EnvClientSecret, "")
	cmd, h := newCommandHooks()
	h.Create = func(context.Context, config.Config, string, []client.JobSpec, sdk.CreateOptions, io.Writer) error {
		t.Error("create must not run without credentials")
		return nil
	}
	cmd.SetArgs([]string{"create", "-s", "seq"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Credentials.ClientID is required")
}

func TestGetFlags(t *testing.T) {
	cmd, h := newCommandHooks()

	h.Get = func(ctx context.Context, conf config.Config, id client.ID, results bool, w io.Writer) error {
		assert.Equal(t, client.ID("42"), id)
		assert.True(t, results)
		assert.Equal(t, "debug", conf.Logger.Level)
		return nil
	}

	cmd.SetArgs(append([]string{"get", "42", "--results", "--log-level", "debug"}, credFlags...))
	require.NoError(t, cmd.Execute())
}

func testConfig(srv *clienttest.Server) config.Config {
	conf := config.DefaultConfig()
	eps := srv.Endpoints()
	conf.Endpoints = config.Endpoints{Account: eps.Account, Core: eps.Core}
	conf.Credentials = config.Credentials{ClientID: clienttest.ClientID, ClientSecret: clienttest.ClientSecret}
	conf.Poll.Interval = config.Duration(time.Millisecond)
	conf.Logger.OutputFile = os.DevNull
	return conf
}

func TestCreateAndGet(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	conf := testConfig(srv)
	ctx := context.Background()

	jobs, err := parseJobs(`[{"runs":50,"variables":{"Omega_max":14.4,"last_target":"q1","ts":[200,500]}}]`, strings.NewReader(""))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	require.NoError(t, Create(ctx, conf, "pulser_test_sequence", jobs, sdk.CreateOptions{Wait: true}, out))

	var created struct {
		ID       int    `json:"id"`
		Status   string `json:"status"`
		Complete bool   `json:"complete"`
		Jobs     map[string]struct {
			Runs   int              `json:"runs"`
			Result map[string]int64 `json:"result"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &created))
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "DONE", created.Status)
	assert.True(t, created.Complete)
	require.Contains(t, created.Jobs, "22010")
	assert.Equal(t, 50, created.Jobs["22010"].Runs)
	assert.Equal(t, map[string]int64{"1001": 12, "0110": 35, "1111": 1}, created.Jobs["22010"].Result)

	out.Reset()
	require.NoError(t, Get(ctx, conf, "1", false, out))
	assert.Contains(t, out.String(), `"sequence_builder": "pulser_test_sequence"`)

	err = Get(ctx, conf, "7", false, io.Discard)
	assert.True(t, client.IsHTTPError(err, 404))
}
