package httpserver_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcollide/birthdayparty/pkg/clock"
	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/httpserver"
	"github.com/dcollide/birthdayparty/pkg/store"
	"github.com/dcollide/birthdayparty/pkg/userstore"
	"github.com/dcollide/birthdayparty/pkg/walker"
)

func newTestServer(t *testing.T) (*httptest.Server, hashparams.Params) {
	t.Helper()
	p := hashparams.New(8, 0, 16)

	db, err := store.NewInMemoryForTesting(clock.SystemClock)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hash, err := userstore.HashToken("s3cr3t")
	require.NoError(t, err)
	require.NoError(t, db.CreateUser(context.Background(), "alice", hash))

	srv := httpserver.New(p, db, clock.SystemClock)
	ts := httptest.NewServer(srv.NewRouter())
	t.Cleanup(ts.Close)
	return ts, p
}

func postSubmitWork(t *testing.T, ts *httptest.Server, body map[string]interface{}) (int, map[string]string) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/submit_work", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func findDistinguishedStart(t *testing.T, p hashparams.Params) (start, dp []byte) {
	t.Helper()
	start = []byte{0x91, 0x02, 0x03, 0, 0, 0, 0, 0}
	dp, _ = walker.WalkToDistinguishedPoint(p, start)
	return start, dp
}

func TestSubmitWorkAcceptsThenDeduplicates(t *testing.T) {
	ts, p := newTestServer(t)
	start, dp := findDistinguishedStart(t, p)

	body := map[string]interface{}{
		"username":  "alice",
		"usertoken": "s3cr3t",
		"results": []map[string]string{
			{"start": hex.EncodeToString(start), "dp": hex.EncodeToString(dp)},
		},
	}

	status, resp := postSubmitWork(t, ts, body)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, resp["status"], "accepted 1 results")

	status, resp = postSubmitWork(t, ts, body)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, resp["status"], "accepted 0 results")
}

func TestSubmitWorkRejectsBadAuth(t *testing.T) {
	ts, p := newTestServer(t)
	start, dp := findDistinguishedStart(t, p)

	body := map[string]interface{}{
		"username":  "alice",
		"usertoken": "wrong-token",
		"results": []map[string]string{
			{"start": hex.EncodeToString(start), "dp": hex.EncodeToString(dp)},
		},
	}

	status, resp := postSubmitWork(t, ts, body)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "bad username and/or usertoken", resp["status"])
}

func TestSubmitWorkRejectsBadHashLength(t *testing.T) {
	ts, _ := newTestServer(t)

	body := map[string]interface{}{
		"username":  "alice",
		"usertoken": "s3cr3t",
		"results": []map[string]string{
			{"start": "zz", "dp": "zz"},
		},
	}
	status, resp := postSubmitWork(t, ts, body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "bad hash length", resp["status"])
}

func TestDashboardRenders(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
