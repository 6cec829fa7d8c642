package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	c := requests.WithLabelValues("GET", "401")
	before := testutil.ToFloat64(c)

	ObserveRequest("GET", 401)
	ObserveRequest("GET", 401)

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestObserveLoginAndPoll(t *testing.T) {
	login := logins.WithLabelValues(LoginRejected)
	poll := pollAttempts.WithLabelValues("job")
	beforeLogin := testutil.ToFloat64(login)
	beforePoll := testutil.ToFloat64(poll)

	ObserveLogin(LoginRejected)
	ObservePoll("job")

	assert.Equal(t, beforeLogin+1, testutil.ToFloat64(login))
	assert.Equal(t, beforePoll+1, testutil.ToFloat64(poll))
}
