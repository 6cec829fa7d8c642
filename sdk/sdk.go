// Package sdk is the user-facing entry point: it creates and fetches batches
// on the remote service and keeps the ones it has seen in a local cache.
package sdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/getlantern/deepcopy"
	"github.com/pasqal-io/cloud-sdk-go/client"
	"github.com/pasqal-io/cloud-sdk-go/config"
	"github.com/pasqal-io/cloud-sdk-go/logger"
)

// SDK creates and fetches batches. One SDK owns one authenticated client;
// independent SDK instances share nothing.
type SDK struct {
	client  *client.Client
	webhook string
	log     *logger.Logger

	mu      sync.Mutex
	batches map[client.ID]*Batch
}

type settings struct {
	webhook    string
	log        *logger.Logger
	clientOpts []client.Option
}

// Option configures an SDK.
type Option func(*settings)

// WithWebhook sets the URL the service calls back when a batch created by
// this SDK settles.
func WithWebhook(url string) Option {
	return func(s *settings) {
		s.webhook = url
	}
}

// WithLogger sets the logger used by the SDK and its client.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

// WithClientOptions passes options through to the underlying client.
func WithClientOptions(opts ...client.Option) Option {
	return func(s *settings) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// New builds an SDK. It logs in and resolves the group identity of the
// credentials before returning.
func New(ctx context.Context, creds client.Credentials, opts ...Option) (*SDK, error) {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.NewLogger("sdk", logger.DefaultConfig())
	}

	copts := append([]client.Option{client.WithLogger(s.log.NewSubLogger("client"))}, s.clientOpts...)
	c, err := client.New(ctx, creds, copts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to the cloud service: %w", err)
	}

	return &SDK{
		client:  c,
		webhook: s.webhook,
		log:     s.log,
		batches: map[client.ID]*Batch{},
	}, nil
}

// FromConfig builds an SDK from a config. Extra options are applied after
// the ones derived from the config.
func FromConfig(ctx context.Context, conf config.Config, opts ...Option) (*SDK, error) {
	copts, err := conf.ClientOptions()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithWebhook(conf.Webhook),
		WithLogger(logger.NewLogger("sdk", conf.Logger)),
		WithClientOptions(copts...),
	}
	return New(ctx, conf.ClientCredentials(), append(base, opts...)...)
}

// Client returns the underlying client.
func (s *SDK) Client() *client.Client {
	return s.client
}

// CreateOptions control batch creation.
type CreateOptions struct {
	// Emulator runs the batch on an emulator instead of a device.
	Emulator bool
	// Wait blocks until the batch settles and every job carries its result.
	Wait bool
}

// CreateBatch submits a serialized sequence with its initial jobs and caches
// the new batch.
func (s *SDK) CreateBatch(ctx context.Context, sequence string, jobs []client.JobSpec, opts CreateOptions) (*Batch, error) {
	data, created, err := s.client.SendBatch(ctx, client.BatchRequest{
		SequenceBuilder: sequence,
		Emulator:        opts.Emulator,
		Webhook:         s.webhook,
		Jobs:            jobs,
	})
	if err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	b := newBatch(s.client, data, created)
	s.store(b)
	s.log.Info("Created batch", "batch", b.ID, "jobs", len(b.Jobs), "emulator", b.Emulator)

	if opts.Wait {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		s.log.Info("Batch settled", "batch", b.ID, "status", b.Status)
	}
	return b, nil
}

// GetBatch fetches a batch and its jobs, with their results when
// loadResults is true, and caches it.
func (s *SDK) GetBatch(ctx context.Context, id client.ID, loadResults bool) (*Batch, error) {
	b := &Batch{client: s.client}
	if err := b.load(ctx, id, loadResults); err != nil {
		return nil, err
	}
	s.store(b)
	return b, nil
}

// Batch returns a snapshot of a cached batch. Changes to the snapshot do not
// affect the cache.
func (s *SDK) Batch(id client.ID) (*Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, false
	}
	snap := &Batch{}
	if err := deepcopy.Copy(snap, b); err != nil {
		s.log.Error("Copying cached batch", "batch", id, "error", err)
		return nil, false
	}
	snap.client = s.client
	if snap.Jobs == nil {
		snap.Jobs = map[client.ID]*Job{}
	}
	return snap, true
}

func (s *SDK) store(b *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
}
