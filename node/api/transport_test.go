package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/node/api"
	"github.com/absmach/cortex/node/mocks"
	"github.com/absmach/cortex/pkg/dp"
	pkgerrors "github.com/absmach/cortex/pkg/errors"
	"github.com/absmach/cortex/pkg/scheduler"
	"github.com/absmach/cortex/pkg/userio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const contentType = "application/json"

func newServer(svc node.Service) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return httptest.NewServer(api.MakeHandler(svc, logger, "test-instance"))
}

func do(t *testing.T, method, url, ctype, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return res
}

func TestStatus(t *testing.T) {
	svc := new(mocks.Service)
	ts := newServer(svc)
	defer ts.Close()

	svc.On("Status", mock.Anything).Return(node.Status{NodeID: "node-1", Tick: 42}, nil).Once()

	res := do(t, http.MethodGet, ts.URL+"/status", "", "")
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var st node.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	assert.Equal(t, "node-1", st.NodeID)
	assert.Equal(t, uint64(42), st.Tick)
}

func TestPrivacy(t *testing.T) {
	snapshot := dp.AccountantSnapshot{Budget: 10, Total: 3, Remaining: 7, Rounds: 3}

	cases := []struct {
		desc   string
		method string
		path   string
		setup  func(svc *mocks.Service)
		status int
	}{
		{
			desc:   "view privacy",
			method: http.MethodGet,
			path:   "/privacy",
			setup: func(svc *mocks.Service) {
				svc.On("Privacy", mock.Anything).Return(node.PrivacyStatus{Enabled: true, AccountantSnapshot: snapshot}, nil)
			},
			status: http.StatusOK,
		},
		{
			desc:   "reset privacy",
			method: http.MethodPost,
			path:   "/privacy/reset",
			setup: func(svc *mocks.Service) {
				svc.On("ResetPrivacy", mock.Anything).Return(nil)
				svc.On("Privacy", mock.Anything).Return(node.PrivacyStatus{Enabled: true, AccountantSnapshot: snapshot}, nil)
			},
			status: http.StatusOK,
		},
		{
			desc:   "reset privacy without learner",
			method: http.MethodPost,
			path:   "/privacy/reset",
			setup: func(svc *mocks.Service) {
				svc.On("ResetPrivacy", mock.Anything).Return(pkgerrors.ErrUnavailable)
			},
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := new(mocks.Service)
			tc.setup(svc)
			ts := newServer(svc)
			defer ts.Close()

			res := do(t, tc.method, ts.URL+tc.path, "", "")
			defer res.Body.Close()

			assert.Equal(t, tc.status, res.StatusCode)
			if tc.status != http.StatusOK {
				return
			}
			var ps node.PrivacyStatus
			require.NoError(t, json.NewDecoder(res.Body).Decode(&ps))
			assert.True(t, ps.Enabled)
			assert.Equal(t, float32(7), ps.Remaining)
		})
	}
}

func TestEnqueue(t *testing.T) {
	cases := []struct {
		desc   string
		ctype  string
		body   string
		setup  func(svc *mocks.Service)
		status int
	}{
		{
			desc:  "valid task",
			ctype: contentType,
			body:  `{"kind":"snapshot_creation"}`,
			setup: func(svc *mocks.Service) {
				svc.On("Enqueue", mock.Anything, scheduler.SnapshotCreation).Return(nil)
			},
			status: http.StatusAccepted,
		},
		{
			desc:   "unknown task",
			ctype:  contentType,
			body:   `{"kind":"defragment"}`,
			setup:  func(*mocks.Service) {},
			status: http.StatusBadRequest,
		},
		{
			desc:   "missing kind",
			ctype:  contentType,
			body:   `{}`,
			setup:  func(*mocks.Service) {},
			status: http.StatusBadRequest,
		},
		{
			desc:   "invalid content type",
			ctype:  "text/plain",
			body:   `{"kind":"update_check"}`,
			setup:  func(*mocks.Service) {},
			status: http.StatusBadRequest,
		},
		{
			desc:   "malformed body",
			ctype:  contentType,
			body:   `{"kind":`,
			setup:  func(*mocks.Service) {},
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := new(mocks.Service)
			tc.setup(svc)
			ts := newServer(svc)
			defer ts.Close()

			res := do(t, http.MethodPost, ts.URL+"/tasks", tc.ctype, tc.body)
			defer res.Body.Close()

			assert.Equal(t, tc.status, res.StatusCode)
			svc.AssertExpectations(t)
		})
	}
}

func TestSubmitInput(t *testing.T) {
	cases := []struct {
		desc   string
		body   string
		err    error
		called bool
		status int
	}{
		{desc: "valid input", body: `{"text":"hello"}`, called: true, status: http.StatusAccepted},
		{desc: "empty input", body: `{"text":"  "}`, status: http.StatusBadRequest},
		{desc: "queue full", body: `{"text":"hello"}`, err: userio.ErrQueueFull, called: true, status: http.StatusServiceUnavailable},
		{desc: "service failure", body: `{"text":"hello"}`, err: errors.New("boom"), called: true, status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := new(mocks.Service)
			if tc.called {
				svc.On("Submit", mock.Anything, "hello").Return(tc.err)
			}
			ts := newServer(svc)
			defer ts.Close()

			res := do(t, http.MethodPost, ts.URL+"/input", contentType, tc.body)
			defer res.Body.Close()

			assert.Equal(t, tc.status, res.StatusCode)
			svc.AssertExpectations(t)
		})
	}
}

func TestHealth(t *testing.T) {
	ts := newServer(new(mocks.Service))
	defer ts.Close()

	res := do(t, http.MethodGet, ts.URL+"/health", "", "")
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}
