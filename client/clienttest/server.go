// Package clienttest provides an in-process fake of the account and core
// services for tests.
package clienttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/pasqal-io/cloud-sdk-go/client"
)

// Default identities accepted by a new Server.
const (
	ClientID     = "my_client_id"
	ClientSecret = "my_client_secret"
	GroupID      = "group-1"
	FirstBatchID = 1
	FirstJobID   = 22010
)

// DefaultResult is the result attached to jobs once they are done.
func DefaultResult() client.Result {
	return client.Result{"1001": 12, "0110": 35, "1111": 1}
}

// Request is a request recorded by the Server.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	Body          []byte
}

// JSON decodes the recorded body into a generic map.
func (r Request) JSON() map[string]interface{} {
	var m map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(string(r.Body)))
	dec.UseNumber()
	_ = dec.Decode(&m)
	return m
}

type failure struct {
	status int
	body   string
}

type batch struct {
	data client.BatchData
	jobs []int
}

// Server fakes both services on one listener. The account service lives
// under /account and the core service under /core.
type Server struct {
	srv *httptest.Server

	mu            sync.Mutex
	tokens        map[string]bool
	rejectAll     bool
	nextToken     int
	batchStatuses []client.Status
	jobStatuses   []client.Status
	result        client.Result
	fail          *failure
	batches       map[int]*batch
	jobs          map[int]*client.JobData
	nextBatch     int
	nextJob       int
	requests      []Request
	logins        int
	infoCalls     int
}

// NewServer starts a fake service. Batches and jobs settle as DONE on their
// first settle-check unless configured otherwise.
func NewServer() *Server {
	s := &Server{
		tokens:        map[string]bool{},
		batchStatuses: []client.Status{client.StatusDone},
		jobStatuses:   []client.Status{client.StatusDone},
		result:        DefaultResult(),
		batches:       map[int]*batch{},
		jobs:          map[int]*client.JobData{},
		nextBatch:     FirstBatchID,
		nextJob:       FirstJobID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /account/api/v1/auth/login", s.login)
	mux.HandleFunc("GET /account/api/v1/auth/info", s.authed(s.info))
	mux.HandleFunc("POST /core/api/v1/batches", s.authed(s.createBatch))
	mux.HandleFunc("GET /core/api/v1/batches/{id}", s.authed(s.getBatch))
	mux.HandleFunc("PUT /core/api/v1/batches/{id}/complete", s.authed(s.completeBatch))
	mux.HandleFunc("GET /core/api/v1/batches/{id}/results", s.authed(s.batchResults))
	mux.HandleFunc("POST /core/api/v1/jobs", s.authed(s.createJob))
	mux.HandleFunc("GET /core/api/v1/jobs", s.authed(s.listJobs))
	mux.HandleFunc("GET /core/api/v1/jobs/{id}", s.authed(s.getJob))

	s.srv = httptest.NewServer(s.record(mux))
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// URL returns the base URL of the listener.
func (s *Server) URL() string {
	return s.srv.URL
}

// Endpoints returns the endpoints a client should use to reach the fake.
func (s *Server) Endpoints() client.Endpoints {
	return client.Endpoints{
		Account: s.srv.URL + "/account",
		Core:    s.srv.URL + "/core",
	}
}

// SetBatchStatuses sets the statuses reported by successive batch GETs. The
// last one is repeated once the list is used up.
func (s *Server) SetBatchStatuses(st ...client.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchStatuses = st
}

// SetJobStatuses sets the statuses reported by successive job GETs.
func (s *Server) SetJobStatuses(st ...client.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobStatuses = st
}

// SetResult sets the result attached to jobs when they settle.
func (s *Server) SetResult(r client.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = r
}

// ExpireTokens invalidates every session token issued so far.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]bool{}
}

// RejectAllTokens makes every authenticated endpoint answer 401, even with a
// freshly issued token.
func (s *Server) RejectAllTokens(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAll = reject
}

// FailNext makes the next authenticated request that passes the token check
// answer with the given status and raw body.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = &failure{status: status, body: body}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Logins returns the number of successful logins.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// InfoCalls returns the number of successful group identity lookups.
func (s *Server) InfoCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoCalls
}

// Count returns how many recorded requests match method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"code":    status,
		"status":  "fail",
		"message": msg,
	})
}

func (s *Server) authed(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		ok := !s.rejectAll && tok != "" && s.tokens[tok]
		fail := s.fail
		if ok {
			s.fail = nil
		}
		s.mu.Unlock()

		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if fail != nil {
			w.WriteHeader(fail.status)
			_, _ = io.WriteString(w, fail.body)
			return
		}
		h(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type         string `json:"type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type != "api_key" || req.ClientID != ClientID || req.ClientSecret != ClientSecret {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.mu.Lock()
	s.nextToken++
	s.logins++
	tok := fmt.Sprintf("token-%d", s.nextToken)
	s.tokens[tok] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.infoCalls++
	s.mu.Unlock()
	writeData(w, map[string]interface{}{"group_id": GroupID, "client_id": ClientID})
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

func itoa(i int) client.ID {
	return client.ID(strconv.Itoa(i))
}

// pop returns the head of a status queue, keeping the last entry sticky.
func pop(q *[]client.Status) client.Status {
	if len(*q) == 0 {
		return client.StatusDone
	}
	st := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return st
}

// settleJob moves a job to st, attaching the result when it is done.
// Must be called with s.mu held.
func (s *Server) settleJob(j *client.JobData, st client.Status) {
	j.Status = st
	if st == client.StatusDone {
		j.Result = s.result
	}
}

func (s *Server) createBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SequenceBuilder string           `json:"sequence_builder"`
		Emulator        bool             `json:"emulator"`
		Webhook         string           `json:"webhook"`
		GroupID         client.ID        `json:"group_id"`
		Jobs            []client.JobSpec `json:"jobs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GroupID != GroupID {
		writeError(w, http.StatusForbidden, "unknown group")
		return
	}

	s.mu.Lock()
	b := &batch{data: client.BatchData{
		ID:              itoa(s.nextBatch),
		SequenceBuilder: req.SequenceBuilder,
		Emulator:        req.Emulator,
		Status:          client.StatusPending,
		GroupID:         req.GroupID,
		Webhook:         req.Webhook,
	}}
	s.batches[s.nextBatch] = b
	s.nextBatch++

	jobs := []client.JobData{}
	for _, spec := range req.Jobs {
		j := &client.JobData{
			ID:        itoa(s.nextJob),
			BatchID:   b.data.ID,
			Runs:      spec.Runs,
			Variables: spec.Variables,
			Status:    client.StatusPending,
		}
		s.jobs[s.nextJob] = j
		b.jobs = append(b.jobs, s.nextJob)
		s.nextJob++
		jobs = append(jobs, *j)
	}
	out := struct {
		client.BatchData
		Jobs []client.JobData `json:"jobs"`
	}{b.data, jobs}
	s.mu.Unlock()

	writeData(w, out)
}

func (s *Server) lookupBatch(w http.ResponseWriter, r *http.Request) *batch {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return nil
	}
	b, ok := s.batches[id]
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
		return nil
	}
	return b
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookupBatch(w, r)
	if b == nil {
		return
	}

	st := pop(&s.batchStatuses)
	b.data.Status = st
	if !st.Pending() {
		b.data.Complete = true
		for _, id := range b.jobs {
			s.settleJob(s.jobs[id], st)
		}
	}
	writeData(w, b.data)
}

func (s *Server) completeBatch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookupBatch(w, r)
	if b == nil {
		return
	}
	b.data.Complete = true
	writeData(w, b.data)
}

func (s *Server) batchResults(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookupBatch(w, r)
	if b == nil {
		return
	}
	out := map[string]client.Result{}
	for _, id := range b.jobs {
		if j := s.jobs[id]; j.Result != nil {
			out[strconv.Itoa(id)] = j.Result
		}
	}
	writeData(w, out)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req client.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bid, err := strconv.Atoi(string(req.BatchID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[bid]
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if b.data.Complete {
		writeError(w, http.StatusBadRequest, "batch is complete")
		return
	}
	j := &client.JobData{
		ID:        itoa(s.nextJob),
		BatchID:   b.data.ID,
		Runs:      req.Runs,
		Variables: req.Variables,
		Status:    client.StatusPending,
	}
	s.jobs[s.nextJob] = j
	b.jobs = append(b.jobs, s.nextJob)
	s.nextJob++
	writeData(w, *j)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	bid, err := strconv.Atoi(r.URL.Query().Get("batch_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []client.JobData{}
	if b, ok := s.batches[bid]; ok {
		for _, id := range b.jobs {
			j := *s.jobs[id]
			j.Result = nil
			out = append(out, j)
		}
	}
	writeData(w, out)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if j.Status.Pending() {
		s.settleJob(j, pop(&s.jobStatuses))
	}
	writeData(w, *j)
}
