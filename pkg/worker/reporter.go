package worker

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dcollide/birthdayparty/pkg/apierr"
	"github.com/dcollide/birthdayparty/pkg/kernel"
)

// Reporter posts batches of kernel.Result to a collision server,
// retrying with exponential backoff on Transient failures and giving
// up immediately on AuthFailure/BadRequest, per the timeouts rule in
// the concurrency model.
type Reporter struct {
	serverURL string
	username  string
	userToken string
	client    *http.Client

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewReporter constructs a Reporter posting to serverURL.
func NewReporter(serverURL, username, userToken string) *Reporter {
	return &Reporter{
		serverURL:  serverURL,
		username:   username,
		userToken:  userToken,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 5,
		baseDelay:  200 * time.Millisecond,
		maxDelay:   10 * time.Second,
	}
}

type submitRequest struct {
	Username  string         `json:"username"`
	UserToken string         `json:"usertoken"`
	Results   []submitResult `json:"results"`
}

type submitResult struct {
	Start string `json:"start"`
	DP    string `json:"dp"`
}

type submitResponse struct {
	Status string `json:"status"`
}

// Report submits batch to the server, retrying transient failures.
func (r *Reporter) Report(ctx context.Context, batch []kernel.Result) error {
	body := submitRequest{
		Username:  r.username,
		UserToken: r.userToken,
		Results:   make([]submitResult, len(batch)),
	}
	for i, res := range batch {
		body.Results[i] = submitResult{
			Start: hex.EncodeToString(res.Start),
			DP:    hex.EncodeToString(res.DP),
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding submission: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitteredBackoff(attempt-1, r.baseDelay, r.maxDelay)):
			}
		}

		err := r.post(ctx, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *Reporter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL, bytes.NewReader(payload))
	if err != nil {
		return apierr.Newf(apierr.KindTransient, "building request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return apierr.Newf(apierr.KindTransient, "sending request: %s", err)
	}
	defer resp.Body.Close()

	var parsed submitResponse
	json.NewDecoder(resp.Body).Decode(&parsed)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return apierr.New(apierr.KindAuthFailure, parsed.Status)
	case http.StatusBadRequest:
		return apierr.New(apierr.KindBadRequest, parsed.Status)
	default:
		return apierr.Newf(apierr.KindTransient, "server returned %d: %s", resp.StatusCode, parsed.Status)
	}
}

// isRetryable reports whether a failed Report should be retried:
// Transient failures are retried, AuthFailure and BadRequest are not.
func isRetryable(err error) bool {
	kind, ok := apierr.KindOf(err)
	if !ok {
		return true
	}
	return kind == apierr.KindTransient
}
