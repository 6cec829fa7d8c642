package sdk

import (
	"context"
	"fmt"
	"sort"

	"github.com/pasqal-io/cloud-sdk-go/client"
)

// Job is a single execution request inside a batch.
type Job struct {
	client.JobData
}

// Settled returns true once the job has left the pending set.
func (j *Job) Settled() bool {
	return !j.Status.Pending()
}

// Batch is a group of jobs sharing one serialized sequence. Jobs is keyed by
// job id and is never nil.
//
// A Batch is not safe for concurrent use.
type Batch struct {
	client.BatchData
	Jobs map[client.ID]*Job `json:"jobs"`

	client *client.Client
}

func newBatch(c *client.Client, data client.BatchData, jobs []client.JobData) *Batch {
	b := &Batch{BatchData: data, client: c}
	b.setJobs(jobs)
	return b
}

func (b *Batch) setJobs(jobs []client.JobData) {
	b.Jobs = make(map[client.ID]*Job, len(jobs))
	for _, j := range jobs {
		b.Jobs[j.ID] = &Job{JobData: j}
	}
}

// JobList returns the jobs ordered by id.
func (b *Batch) JobList() []*Job {
	out := make([]*Job, 0, len(b.Jobs))
	for _, j := range b.Jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		a, c := out[i].ID, out[k].ID
		if len(a) != len(c) {
			return len(a) < len(c)
		}
		return a < c
	})
	return out
}

// AddJob adds a job to the batch. When wait is true it blocks until the job
// settles and returns it with its result.
func (b *Batch) AddJob(ctx context.Context, runs int, variables client.Variables, wait bool) (*Job, error) {
	data, err := b.client.SendJob(ctx, client.JobRequest{
		BatchID:   b.ID,
		Runs:      runs,
		Variables: variables,
	})
	if err != nil {
		return nil, fmt.Errorf("adding job to batch %s: %w", b.ID, err)
	}

	if wait {
		data, err = b.client.WaitForJob(ctx, data.ID)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", b.ID, err)
		}
	}

	job := &Job{JobData: data}
	b.Jobs[job.ID] = job
	return job, nil
}

// DeclareComplete tells the service no more jobs will be added. When wait is
// true it blocks until the batch settles and reloads every job with its
// result.
func (b *Batch) DeclareComplete(ctx context.Context, wait bool) error {
	data, err := b.client.CompleteBatch(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("completing batch %s: %w", b.ID, err)
	}
	b.BatchData = data

	if wait {
		return b.wait(ctx)
	}
	return nil
}

// Refresh reloads the batch and its jobs, with their results when
// loadResults is true.
func (b *Batch) Refresh(ctx context.Context, loadResults bool) error {
	return b.load(ctx, b.ID, loadResults)
}

func (b *Batch) load(ctx context.Context, id client.ID, loadResults bool) error {
	data, err := b.client.GetBatch(ctx, id)
	if err != nil {
		return fmt.Errorf("getting batch %s: %w", id, err)
	}
	jobs, err := b.client.GetJobs(ctx, id, loadResults)
	if err != nil {
		return fmt.Errorf("getting jobs of batch %s: %w", id, err)
	}
	b.BatchData = data
	b.setJobs(jobs)
	return nil
}

func (b *Batch) wait(ctx context.Context) error {
	data, jobs, err := b.client.WaitForBatch(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("batch %s: %w", b.ID, err)
	}
	b.BatchData = data
	b.setJobs(jobs)
	return nil
}
