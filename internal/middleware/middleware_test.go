package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"steam-achiever/internal/middleware"
)

type fakeDoer struct {
	status   int
	err      error
	calls    int
	deadline time.Time
	headers  int
}

func (f *fakeDoer) Do(req *fasthttp.Request, resp *fasthttp.Response) error {
	f.calls++
	f.headers = req.Header.Len()
	resp.SetStatusCode(f.status)
	return f.err
}

func (f *fakeDoer) DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error {
	f.deadline = deadline
	return f.Do(req, resp)
}

func newRequest(uri string) *fasthttp.Request {
	req := fasthttp.AcquireRequest()
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	return req
}

func TestRequestID_LogsWithoutTouchingRequest(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	next := &fakeDoer{status: fasthttp.StatusOK}
	doer := middleware.RequestID(log)(next)

	req := newRequest("http://example.test/IPlayerService/GetOwnedGames/v0001/?key=topsecret&steamid=1")
	defer fasthttp.ReleaseRequest(req)
	headersBefore := req.Header.Len()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	require.NoError(t, doer.Do(req, resp))

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, headersBefore, next.headers)
	assert.Empty(t, req.Header.Peek("X-Request-ID"))
	assert.NotContains(t, buf.String(), "topsecret")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var started, completed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &started))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))

	assert.Equal(t, "request started", started["message"])
	assert.Equal(t, "request completed", completed["message"])
	assert.Equal(t, "/IPlayerService/GetOwnedGames/v0001/", completed["path"])
	assert.NotEmpty(t, started["request_id"])
	assert.Equal(t, started["request_id"], completed["request_id"])
}

func TestRequestID_NewIDPerRequest(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	doer := middleware.RequestID(log)(&fakeDoer{status: fasthttp.StatusOK})

	for range 2 {
		req := newRequest("http://example.test/")
		resp := fasthttp.AcquireResponse()
		require.NoError(t, doer.Do(req, resp))
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}

	ids := map[any]struct{}{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		ids[entry["request_id"]] = struct{}{}
	}
	assert.Len(t, ids, 2)
}

func TestRequestID_DeadlineAndError(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	next := &fakeDoer{err: errors.New("dial tcp: connection refused")}
	doer := middleware.RequestID(log)(next)

	req := newRequest("http://example.test/")
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(time.Second)
	err := doer.DoDeadline(req, resp, deadline)

	assert.EqualError(t, err, "dial tcp: connection refused")
	assert.Equal(t, deadline, next.deadline)
	assert.Contains(t, buf.String(), "request failed")
}
