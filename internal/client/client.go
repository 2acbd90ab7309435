// Package client holds the HTTP clients the services use to talk to each
// other. Every call goes through a named circuit breaker and a bounded
// timeout; transport failures and 5xx responses count against the breaker,
// domain outcomes (404, 409) do not.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type remoteCaller struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func newRemoteCaller(baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, logger *zap.Logger) remoteCaller {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return remoteCaller{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
		logger:  logger,
	}
}

// do performs one request through the breaker and returns the response
// status. 2xx bodies are decoded into out when out is non-nil; 4xx statuses
// are returned to the caller as domain outcomes.
func (c remoteCaller) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return 0, fmt.Errorf("encode request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return 0, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return 0, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		if resp.StatusCode < http.StatusMultipleChoices && out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return 0, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// unavailable maps a breaker or transport failure onto the write-gating
// upstream-unavailable error. Callers that prefer a degraded read instead
// inspect the raw error themselves.
func unavailable(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, message)
}
