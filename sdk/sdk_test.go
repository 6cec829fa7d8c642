package sdk_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/pasqal-io/cloud-sdk-go/client"
	"github.com/pasqal-io/cloud-sdk-go/client/clienttest"
	"github.com/pasqal-io/cloud-sdk-go/config"
	"github.com/pasqal-io/cloud-sdk-go/logger"
	"github.com/pasqal-io/cloud-sdk-go/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sequence = "pulser_test_sequence"

func quietLogger() *logger.Logger {
	l := logger.NewLogger("test", logger.DefaultConfig())
	l.Discard()
	return l
}

func newSDK(t *testing.T, srv *clienttest.Server, opts ...sdk.Option) *sdk.SDK {
	t.Helper()
	opts = append([]sdk.Option{
		sdk.WithLogger(quietLogger()),
		sdk.WithClientOptions(
			client.WithEndpoints(srv.Endpoints()),
			client.WithPollOptions(client.PollOptions{Interval: time.Millisecond}),
		),
	}, opts...)
	s, err := sdk.New(context.Background(), client.Credentials{
		ClientID:     clienttest.ClientID,
		ClientSecret: clienttest.ClientSecret,
	}, opts...)
	require.NoError(t, err)
	return s
}

func scenarioVariables() client.Variables {
	return client.Variables{
		"Omega_max":   client.Number(14.4),
		"last_target": client.String("q1"),
		"ts":          client.Sequence(200, 500),
	}
}

func TestCreateBatch(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)

	b, err := s.CreateBatch(context.Background(), sequence, nil, sdk.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, client.ID("1"), b.ID)
	assert.Equal(t, sequence, b.SequenceBuilder)
	assert.NotNil(t, b.Jobs)
	assert.Empty(t, b.Jobs)
	assert.Equal(t, 1, srv.InfoCalls())
	assert.Equal(t, s.Client().GroupID(), client.ID(clienttest.GroupID))
}

func TestCreateBatchWithJobs(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)

	specs := []client.JobSpec{{Runs: 10}, {Runs: 20, Variables: scenarioVariables()}}
	b, err := s.CreateBatch(context.Background(), sequence, specs, sdk.CreateOptions{Emulator: true})
	require.NoError(t, err)
	assert.True(t, b.Emulator)
	require.Len(t, b.Jobs, 2)

	jobs := b.JobList()
	assert.Equal(t, client.ID("22010"), jobs[0].ID)
	assert.Equal(t, 10, jobs[0].Runs)
	assert.Equal(t, client.ID("22011"), jobs[1].ID)
	assert.Equal(t, scenarioVariables(), jobs[1].Variables)
	for _, j := range jobs {
		assert.False(t, j.Settled())
		assert.Equal(t, b.ID, j.BatchID)
	}
	// No wait, no settle-check.
	assert.Zero(t, srv.Count(http.MethodGet, "/core/api/v1/batches/1"))
}

func TestCreateBatchAndWait(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)
	srv.SetBatchStatuses(client.StatusPending, client.StatusRunning, client.StatusDone)

	b, err := s.CreateBatch(context.Background(), sequence,
		[]client.JobSpec{{Runs: 50, Variables: scenarioVariables()}},
		sdk.CreateOptions{Wait: true})
	require.NoError(t, err)

	assert.Equal(t, client.StatusDone, b.Status)
	assert.True(t, b.Complete)
	assert.Equal(t, 3, srv.Count(http.MethodGet, "/core/api/v1/batches/1"))

	require.Len(t, b.Jobs, 1)
	job := b.Jobs["22010"]
	require.NotNil(t, job)
	assert.Equal(t, 50, job.Runs)
	assert.Equal(t, scenarioVariables(), job.Variables)
	assert.Equal(t, client.Result{"1001": 12, "0110": 35, "1111": 1}, job.Result)
	assert.Equal(t, "/core/api/v1/jobs/22010", srv.LastRequest().Path)
}

func TestCreateBatchSettledImmediately(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv, sdk.WithClientOptions(
		client.WithPollOptions(client.PollOptions{Interval: time.Hour}),
	))

	b, err := s.CreateBatch(context.Background(), sequence,
		[]client.JobSpec{{Runs: 1}}, sdk.CreateOptions{Wait: true})
	require.NoError(t, err)
	assert.Equal(t, client.StatusDone, b.Status)
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/core/api/v1/batches/1"))
}

func TestCreateBatchWaitLimit(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv, sdk.WithClientOptions(
		client.WithPollOptions(client.PollOptions{Interval: time.Millisecond, MaxAttempts: 2}),
	))
	srv.SetBatchStatuses(client.StatusRunning)

	_, err := s.CreateBatch(context.Background(), sequence, nil, sdk.CreateOptions{Wait: true})
	assert.True(t, errors.Is(err, client.ErrWaitLimit))

	// The batch exists remotely, so it is cached even though the wait failed.
	cached, ok := s.Batch("1")
	require.True(t, ok)
	assert.Equal(t, sequence, cached.SequenceBuilder)
}

func TestCreateBatchError(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)

	srv.FailNext(http.StatusUnprocessableEntity, `{"message":"invalid sequence"}`)
	_, err := s.CreateBatch(context.Background(), "", nil, sdk.CreateOptions{})
	assert.True(t, client.IsHTTPError(err, http.StatusUnprocessableEntity))
	_, ok := s.Batch("1")
	assert.False(t, ok)
}

func TestAddJob(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)
	ctx := context.Background()

	b, err := s.CreateBatch(ctx, sequence, nil, sdk.CreateOptions{})
	require.NoError(t, err)

	job, err := b.AddJob(ctx, 50, scenarioVariables(), false)
	require.NoError(t, err)
	assert.Equal(t, b.ID, job.BatchID)
	assert.Equal(t, 50, job.Runs)
	assert.Same(t, job, b.Jobs[job.ID])

	last := srv.LastRequest()
	assert.Equal(t, "/core/api/v1/jobs", last.Path)
	assert.JSONEq(t,
		`{"batch_id":1,"runs":50,"variables":{"Omega_max":14.4,"last_target":"q1","ts":[200,500]}}`,
		string(last.Body))
}

func TestAddJobAndWait(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)
	ctx := context.Background()
	srv.SetJobStatuses(client.StatusPending, client.StatusDone)

	b, err := s.CreateBatch(ctx, sequence, nil, sdk.CreateOptions{})
	require.NoError(t, err)

	job, err := b.AddJob(ctx, 50, scenarioVariables(), true)
	require.NoError(t, err)
	assert.Equal(t, b.ID, job.BatchID)
	assert.Equal(t, 50, job.Runs)
	assert.True(t, job.Settled())
	assert.Equal(t, clienttest.DefaultResult(), job.Result)

	last := srv.LastRequest()
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/core/api/v1/jobs/22010", last.Path)
	assert.Equal(t, 2, srv.Count(http.MethodGet, "/core/api/v1/jobs/22010"))
}

func TestDeclareComplete(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)
	ctx := context.Background()

	b, err := s.CreateBatch(ctx, sequence, nil, sdk.CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, b.DeclareComplete(ctx, false))
	assert.True(t, b.Complete)
	assert.Empty(t, b.Jobs)
	assert.Equal(t, http.MethodPut, srv.LastRequest().Method)
}

func TestDeclareCompleteAndWait(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)
	ctx := context.Background()

	b, err := s.CreateBatch(ctx, sequence, nil, sdk.CreateOptions{})
	require.NoError(t, err)
	_, err = b.AddJob(ctx, 50, scenarioVariables(), false)
	require.NoError(t, err)

	require.NoError(t, b.DeclareComplete(ctx, true))
	assert.True(t, b.Complete)
	assert.Equal(t, client.StatusDone, b.Status)

	last := srv.LastRequest()
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/core/api/v1/jobs/22010", last.Path)

	job := b.Jobs["22010"]
	require.NotNil(t, job)
	assert.Equal(t, b.ID, job.BatchID)
	assert.Equal(t, clienttest.DefaultResult(), job.Result)
}

func TestGetBatch(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)
	ctx := context.Background()

	created, err := s.CreateBatch(ctx, sequence, []client.JobSpec{{Runs: 3}}, sdk.CreateOptions{})
	require.NoError(t, err)

	first, err := s.GetBatch(ctx, created.ID, false)
	require.NoError(t, err)
	second, err := s.GetBatch(ctx, created.ID, false)
	require.NoError(t, err)
	if diff := deep.Equal(first.BatchData, second.BatchData); diff != nil {
		t.Error(diff)
	}
	require.Len(t, second.Jobs, 1)
	assert.Nil(t, second.Jobs["22010"].Result)

	withResults, err := s.GetBatch(ctx, created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, clienttest.DefaultResult(), withResults.Jobs["22010"].Result)

	_, err = s.GetBatch(ctx, "99", false)
	assert.True(t, client.IsHTTPError(err, http.StatusNotFound))
}

func TestBatchSnapshot(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()
	s := newSDK(t, srv)
	ctx := context.Background()

	_, ok := s.Batch("1")
	assert.False(t, ok)

	b, err := s.CreateBatch(ctx, sequence, []client.JobSpec{{Runs: 3, Variables: scenarioVariables()}}, sdk.CreateOptions{})
	require.NoError(t, err)

	snap, ok := s.Batch(b.ID)
	require.True(t, ok)
	assert.NotSame(t, b, snap)
	assert.Equal(t, b.BatchData, snap.BatchData)
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, scenarioVariables(), snap.Jobs["22010"].Variables)

	snap.Jobs["22010"].Runs = 99
	snap.SequenceBuilder = "changed"
	assert.Equal(t, 3, b.Jobs["22010"].Runs)
	assert.Equal(t, sequence, b.SequenceBuilder)

	// The snapshot keeps working against the service.
	require.NoError(t, snap.Refresh(ctx, true))
	assert.Equal(t, sequence, snap.SequenceBuilder)
	assert.Equal(t, clienttest.DefaultResult(), snap.Jobs["22010"].Result)
}

func TestFromConfig(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()

	conf := config.DefaultConfig()
	eps := srv.Endpoints()
	conf.Endpoints = config.Endpoints{Account: eps.Account, Core: eps.Core}
	conf.Credentials = config.Credentials{ClientID: clienttest.ClientID, ClientSecret: clienttest.ClientSecret}
	conf.Webhook = "https://example.com/hook"
	conf.Poll.Interval = config.Duration(time.Millisecond)

	s, err := sdk.FromConfig(context.Background(), conf, sdk.WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = s.CreateBatch(context.Background(), sequence, nil, sdk.CreateOptions{Wait: true})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", srv.Requests()[3].JSON()["webhook"])
}

func TestNewBadCredentials(t *testing.T) {
	srv := clienttest.NewServer()
	defer srv.Close()

	_, err := sdk.New(context.Background(),
		client.Credentials{ClientID: "nobody", ClientSecret: "nothing"},
		sdk.WithLogger(quietLogger()),
		sdk.WithClientOptions(client.WithEndpoints(srv.Endpoints())),
	)
	assert.True(t, client.IsHTTPError(err, http.StatusUnauthorized))
}
