package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pasqal-io/cloud-sdk-go/metrics"
)

// ResultPollingInterval is the default pause between two settle-checks.
const ResultPollingInterval = time.Second

// PollOptions control how long a wait may run. Zero MaxAttempts and zero
// Timeout mean the wait is bounded only by the caller's context.
type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
	// Notify, if set, is called after every settle-check that found the
	// resource still pending, with the delay before the next one.
	Notify func(status Status, next time.Duration)
}

// DefaultPollOptions returns unbounded options polling every
// ResultPollingInterval.
func DefaultPollOptions() PollOptions {
	return PollOptions{Interval: ResultPollingInterval}
}

type pendingError struct {
	status Status
}

func (e *pendingError) Error() string {
	return fmt.Sprintf("still %s", e.status)
}

// PollUntilSettled calls check immediately and then every opts.Interval until
// it reports a status outside the pending set. It then calls detail once with
// the last observation and returns its value.
//
// Errors from check and detail abort the wait and are returned unchanged.
func PollUntilSettled[T, R any](
	ctx context.Context,
	opts PollOptions,
	resource string,
	id ID,
	check func(context.Context, ID) (T, Status, error),
	detail func(context.Context, ID, T) (R, error),
) (R, error) {
	var zero R

	interval := opts.Interval
	if interval <= 0 {
		interval = ResultPollingInterval
	}

	pctx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if opts.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(opts.MaxAttempts-1))
	}
	b = backoff.WithContext(b, pctx)

	var last T
	op := func() error {
		metrics.ObservePoll(resource)
		obs, status, err := check(pctx, id)
		if err != nil {
			return &backoff.PermanentError{Err: err}
		}
		last = obs
		if status.Pending() {
			return &pendingError{status: status}
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		var perr *pendingError
		if opts.Notify != nil && errors.As(err, &perr) {
			opts.Notify(perr.status, next)
		}
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return zero, waitError(ctx, pctx, resource, id, err)
	}
	return detail(ctx, id, last)
}

// waitError maps the error that ended a wait to the error returned to the
// caller.
func waitError(parent, pctx context.Context, resource string, id ID, err error) error {
	var perr *pendingError
	pending := errors.As(err, &perr)

	switch {
	case parent.Err() != nil:
		if pending {
			return fmt.Errorf("waiting for %s %s: %w", resource, id, parent.Err())
		}
		return err
	case pctx.Err() != nil && (pending || errors.Is(err, context.DeadlineExceeded)):
		return fmt.Errorf("waiting for %s %s: %w", resource, id, ErrWaitTimeout)
	case pending:
		return fmt.Errorf("waiting for %s %s (last status %s): %w", resource, id, perr.status, ErrWaitLimit)
	}
	return err
}

// WaitForJob polls the job until it settles and returns its final state,
// result included.
func (c *Client) WaitForJob(ctx context.Context, id ID) (JobData, error) {
	check := func(ctx context.Context, id ID) (JobData, Status, error) {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return JobData{}, "", err
		}
		c.log.Debug("Settle-check", "job", id, "status", job.Status)
		return job, job.Status, nil
	}
	last := func(_ context.Context, _ ID, job JobData) (JobData, error) {
		return job, nil
	}
	return PollUntilSettled(ctx, c.poll, "job", id, check, last)
}

// WaitForBatch polls the batch until it settles, then fetches every job of
// the batch individually so each carries its final result.
func (c *Client) WaitForBatch(ctx context.Context, id ID) (BatchData, []JobData, error) {
	type settled struct {
		batch BatchData
		jobs  []JobData
	}

	check := func(ctx context.Context, id ID) (BatchData, Status, error) {
		batch, err := c.GetBatch(ctx, id)
		if err != nil {
			return BatchData{}, "", err
		}
		c.log.Debug("Settle-check", "batch", id, "status", batch.Status)
		return batch, batch.Status, nil
	}
	detail := func(ctx context.Context, id ID, batch BatchData) (settled, error) {
		listed, err := c.GetJobs(ctx, id, false)
		if err != nil {
			return settled{}, err
		}
		jobs := make([]JobData, 0, len(listed))
		for _, j := range listed {
			job, err := c.GetJob(ctx, j.ID)
			if err != nil {
				return settled{}, err
			}
			jobs = append(jobs, job)
		}
		return settled{batch: batch, jobs: jobs}, nil
	}

	s, err := PollUntilSettled(ctx, c.poll, "batch", id, check, detail)
	if err != nil {
		return BatchData{}, nil, err
	}
	return s.batch, s.jobs, nil
}
