package client

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) coreURL(path ...string) string {
	u := c.endpoints.Core + "/api/v1"
	for _, p := range path {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// SendBatch submits a new batch with its initial jobs. The request is
// stamped with the client's group identity. The created jobs are returned
// separately from the batch resource.
func (c *Client) SendBatch(ctx context.Context, req BatchRequest) (BatchData, []JobData, error) {
	req.GroupID = c.groupID
	if req.Jobs == nil {
		req.Jobs = []JobSpec{}
	}

	var out struct {
		BatchData
		Jobs []JobData `json:"jobs"`
	}
	if err := c.call(ctx, http.MethodPost, c.coreURL("batches"), req, &out); err != nil {
		return BatchData{}, nil, err
	}
	return out.BatchData, out.Jobs, nil
}

// CompleteBatch declares that no more jobs will be added to the batch.
func (c *Client) CompleteBatch(ctx context.Context, id ID) (BatchData, error) {
	var batch BatchData
	err := c.call(ctx, http.MethodPut, c.coreURL("batches", string(id), "complete"), nil, &batch)
	return batch, err
}

// SendJob adds a job to an existing batch.
func (c *Client) SendJob(ctx context.Context, req JobRequest) (JobData, error) {
	var job JobData
	err := c.call(ctx, http.MethodPost, c.coreURL("jobs"), req, &job)
	return job, err
}

// GetBatch fetches a batch.
func (c *Client) GetBatch(ctx context.Context, id ID) (BatchData, error) {
	var batch BatchData
	err := c.call(ctx, http.MethodGet, c.coreURL("batches", string(id)), nil, &batch)
	return batch, err
}

// GetJobs lists the jobs of a batch. When withResults is true the batch
// results are fetched too and attached to the jobs they belong to; jobs
// without a result keep a nil Result.
func (c *Client) GetJobs(ctx context.Context, batchID ID, withResults bool) ([]JobData, error) {
	q := url.Values{}
	q.Set("batch_id", string(batchID))

	var jobs []JobData
	if err := c.call(ctx, http.MethodGet, c.coreURL("jobs")+"?"+q.Encode(), nil, &jobs); err != nil {
		return nil, err
	}
	if !withResults {
		return jobs, nil
	}

	var results map[string]Result
	if err := c.call(ctx, http.MethodGet, c.coreURL("batches", string(batchID), "results"), nil, &results); err != nil {
		return nil, err
	}
	for i := range jobs {
		if r, ok := results[string(jobs[i].ID)]; ok {
			jobs[i].Result = r
		}
	}
	return jobs, nil
}

// GetJob fetches a job, result included when available.
func (c *Client) GetJob(ctx context.Context, id ID) (JobData, error) {
	var job JobData
	err := c.call(ctx, http.MethodGet, c.coreURL("jobs", string(id)), nil, &job)
	return job, err
}
