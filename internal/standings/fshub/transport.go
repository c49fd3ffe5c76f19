package fshub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// retryPolicy bounds how hard a single request is retried.
type retryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// delay doubles BaseDelay per attempt. A server hint wins when present;
// MaxDelay caps both.
func (p retryPolicy) delay(attempt int, hint time.Duration) time.Duration {
	d := hint
	if d <= 0 {
		d = p.BaseDelay << attempt
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// statusError is a non-2xx FSHub response.
type statusError struct {
	Code       int
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %d", e.Unwrap(), e.Code)
}

func (e *statusError) Unwrap() error {
	switch {
	case e.Code == http.StatusTooManyRequests:
		return errRateLimited
	case e.Code >= 500:
		return errServerError
	default:
		return errUnexpected
	}
}

func (e *statusError) temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// parseRetryAfter understands the delay-seconds form only.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// breakerSuccess keeps client errors (bad ID, missing airline) from tripping
// the breaker; only transport failures and 429/5xx count.
func breakerSuccess(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return !se.temporary()
	}
	return err == nil
}

// send performs one attempt through the breaker. The body of a failed
// response is drained and closed here.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	out, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &statusError{
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	})
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

// get issues an authenticated GET, retrying rate limits, 5xx and transport
// errors until the policy or ctx runs out.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Pilot-Token", c.token)

		resp, err := c.send(req)
		if err == nil {
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		var hint time.Duration
		var se *statusError
		if errors.As(err, &se) {
			if !se.temporary() {
				return nil, err
			}
			hint = se.RetryAfter
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= c.retry.MaxRetries {
			return nil, err
		}

		timer := time.NewTimer(c.retry.delay(attempt, hint))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
