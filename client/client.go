// Package client implements the authenticated HTTP transport for the remote
// batch/job service, the typed resource accessors built on it, and the
// poll loop used to wait for remote computation to settle.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pasqal-io/cloud-sdk-go/logger"
	"github.com/pasqal-io/cloud-sdk-go/metrics"
	"github.com/pasqal-io/cloud-sdk-go/version"
	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every HTTP call made by the client.
const DefaultTimeout = 30 * time.Second

// DefaultMaxResponseSize caps how many bytes of a response body are read.
const DefaultMaxResponseSize = 32 << 20

// Credentials identify the API key used to log in. They are never logged.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClientID: %q, ClientSecret: <redacted>}", c.ClientID)
}

// GoString keeps the secret out of %#v output.
func (c Credentials) GoString() string {
	return c.String()
}

// Client is the authenticated transport. It owns the credentials, the
// session token and the group identity resolved at construction.
//
// Requests on one Client are serialized: the token read/login/retry sequence
// is not atomic otherwise.
type Client struct {
	endpoints Endpoints
	creds     Credentials
	client    *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	maxBody   int64
	poll      PollOptions
	log       *logger.Logger
	id        string

	mu      sync.Mutex
	token   oauth2.Token
	groupID ID
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the service base URLs.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
	}
}

// WithHTTPClient sets the underlying HTTP client. Its Timeout is replaced by
// the client timeout on a copy; the given client is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithRateLimit limits outgoing calls to rps requests per second with the
// given burst. A non-positive rps means unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxResponseSize caps the number of response body bytes read. Zero
// means unlimited.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		c.maxBody = n
	}
}

// WithPollOptions sets the options used by WaitForBatch and WaitForJob.
func WithPollOptions(p PollOptions) Option {
	return func(c *Client) {
		c.poll = p
	}
}

// New builds a Client and resolves the group identity of the credentials
// with one authenticated call to the account service. The first call runs
// without a token, which makes it log in.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		endpoints: DefaultEndpoints(),
		creds:     creds,
		client:    &http.Client{},
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		maxBody:   DefaultMaxResponseSize,
		poll:      DefaultPollOptions(),
		id:        xid.New().String(),
	}
	for _, opt := range opts {
		opt(c)
	}

	endpoints, err := c.endpoints.normalize()
	if err != nil {
		return nil, err
	}
	c.endpoints = endpoints

	hc := *c.client
	hc.Timeout = c.timeout
	c.client = &hc

	if c.log == nil {
		c.log = logger.NewLogger("client", logger.DefaultConfig())
	}
	c.log = c.log.WithFields("client", c.id)
	c.log.Debug("Client created", version.LogFields()...)

	if err := c.fetchGroupID(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Endpoints returns the normalized service base URLs.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// GroupID returns the group identity resolved when the client was built.
func (c *Client) GroupID() ID {
	return c.groupID
}

// PollOptions returns the options used when waiting on resources.
func (c *Client) PollOptions() PollOptions {
	return c.poll
}

func (c *Client) fetchGroupID(ctx context.Context) error {
	var info struct {
		GroupID ID `json:"group_id"`
	}
	u := c.endpoints.Account + "/api/v1/auth/info"
	if err := c.call(ctx, http.MethodGet, u, nil, &info); err != nil {
		return err
	}
	if info.GroupID == "" {
		return &DecodeError{Method: http.MethodGet, URL: u, StatusCode: http.StatusOK, Err: errors.New("missing group_id")}
	}
	c.groupID = info.GroupID
	c.log.Info("Resolved group identity", "group_id", c.groupID)
	return nil
}

type loginRequest struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type loginResponse struct {
	Token string `json:"token"`
	Data  *struct {
		Token string `json:"token"`
	} `json:"data"`
}

// login exchanges the credentials for a new session token. It is only
// called from Request, with c.mu held.
func (c *Client) login(ctx context.Context) error {
	u := c.endpoints.Account + "/api/v1/auth/login"
	body, err := json.Marshal(loginRequest{
		Type:         "api_key",
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
	})
	if err != nil {
		return fmt.Errorf("error marshaling login request: %v", err)
	}

	resp, err := c.do(ctx, http.MethodPost, u, body, false)
	if err != nil {
		metrics.ObserveLogin(metrics.LoginFailed)
		return err
	}
	raw, err := resp.parse()
	if err != nil {
		metrics.ObserveLogin(metrics.LoginRejected)
		c.log.Error("Login rejected", "status", resp.status)
		return err
	}

	var lr loginResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		metrics.ObserveLogin(metrics.LoginFailed)
		return resp.decodeError(err)
	}
	token := lr.Token
	if token == "" && lr.Data != nil {
		token = lr.Data.Token
	}
	if token == "" {
		metrics.ObserveLogin(metrics.LoginFailed)
		return resp.decodeError(errors.New("login response has no token"))
	}

	c.token = oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	metrics.ObserveLogin(metrics.LoginSuccess)
	c.log.Info("Logged in", "account", c.endpoints.Account)
	return nil
}

type attempt int

const (
	firstAttempt attempt = iota
	retried
)

// Request sends one authenticated JSON request and returns the parsed
// response body.
//
// A 401 on the first attempt triggers a login followed by exactly one retry;
// the retried response is final. Any final status >= 400 is returned as an
// *HTTPError. Network failures are returned as *TransportError and are not
// retried.
func (c *Client) Request(ctx context.Context, method, url string, payload interface{}) (json.RawMessage, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request payload: %v", err)
		}
		body = b
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state := firstAttempt
	for {
		resp, err := c.do(ctx, method, url, body, true)
		if err != nil {
			return nil, err
		}

		if resp.status == http.StatusUnauthorized && state == firstAttempt {
			c.log.Debug("Session token rejected, logging in", "method", method, "url", url)
			if err := c.login(ctx); err != nil {
				return nil, err
			}
			state = retried
			continue
		}
		return resp.parse()
	}
}

// call sends a request and decodes the "data" member of the response into out.
func (c *Client) call(ctx context.Context, method, url string, payload, out interface{}) error {
	raw, err := c.Request(ctx, method, url, payload)
	if err != nil {
		return err
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	derr := func(err error) error {
		return &DecodeError{Method: method, URL: url, StatusCode: http.StatusOK, Err: err}
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return derr(err)
	}
	if len(env.Data) == 0 {
		return derr(errors.New(`response has no "data" member`))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return derr(err)
	}
	return nil
}

type response struct {
	method string
	url    string
	status int
	body   []byte
}

// parse returns the JSON body of a final response, or the matching error.
func (r *response) parse() (json.RawMessage, error) {
	if r.status >= 400 {
		body := json.RawMessage(r.body)
		if !json.Valid(body) {
			// Keep non-JSON error pages inspectable as a JSON string.
			body, _ = json.Marshal(string(r.body))
		}
		return nil, &HTTPError{Method: r.method, URL: r.url, StatusCode: r.status, Body: body}
	}
	if !json.Valid(r.body) {
		return nil, r.decodeError(errors.New("response body is not valid JSON"))
	}
	return json.RawMessage(r.body), nil
}

func (r *response) decodeError(err error) error {
	return &DecodeError{Method: r.method, URL: r.url, StatusCode: r.status, Err: err}
}

// do performs a single HTTP exchange and reads the whole body.
func (c *Client) do(ctx context.Context, method, url string, body []byte, auth bool) (*response, error) {
	terr := func(err error) error {
		return &TransportError{Method: method, URL: url, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, terr(err)
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, terr(err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", version.UserAgent())
	if auth {
		c.token.SetAuthHeader(hreq)
	}

	start := time.Now()
	hresp, err := c.client.Do(hreq)
	if err != nil {
		c.log.Debug("HTTP request failed", "method", method, "url", url, "error", err)
		return nil, terr(err)
	}
	defer hresp.Body.Close()

	var rd io.Reader = hresp.Body
	if c.maxBody > 0 {
		rd = io.LimitReader(hresp.Body, c.maxBody+1)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, terr(err)
	}

	resp := &response{method: method, url: url, status: hresp.StatusCode, body: b}
	if c.maxBody > 0 && int64(len(b)) > c.maxBody {
		return nil, resp.decodeError(fmt.Errorf("response body exceeds %d bytes", c.maxBody))
	}

	metrics.ObserveRequest(method, hresp.StatusCode)
	c.log.Debug("HTTP request", "method", method, "url", url,
		"status", hresp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}
