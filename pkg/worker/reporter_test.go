package worker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcollide/birthdayparty/pkg/kernel"
	"github.com/dcollide/birthdayparty/pkg/worker"
)

func TestReportSucceedsAgainstAWorkingServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "accepted 1 results in 0.10ms"}`))
	}))
	defer ts.Close()

	r := worker.NewReporter(ts.URL, "alice", "token")
	err := r.Report(context.Background(), []kernel.Result{{Start: []byte{1}, DP: []byte{2}}})
	require.NoError(t, err)
}

func TestReportGivesUpImmediatelyOnAuthFailure(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status": "bad username and/or usertoken"}`))
	}))
	defer ts.Close()

	r := worker.NewReporter(ts.URL, "alice", "wrong-token")
	err := r.Report(context.Background(), []kernel.Result{{Start: []byte{1}, DP: []byte{2}}})
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load())
}

func TestReportRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status": "accepted 1 results in 0.10ms"}`))
	}))
	defer ts.Close()

	r := worker.NewReporter(ts.URL, "alice", "token")
	err := r.Report(context.Background(), []kernel.Result{{Start: []byte{1}, DP: []byte{2}}})
	require.NoError(t, err)
	require.GreaterOrEqual(t, calls.Load(), int32(3))
}
