package llm

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/simple-container-com/go-aws-lambda-sdk/pkg/util/retry"
	"golang.org/x/sync/semaphore"
)

type RoundTripFn func(req *http.Request) (*http.Response, error)

func (f RoundTripFn) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type operationKey struct{}

const (
	opListModels = "list_models"
	opGenerate   = "generate_completion"
)

func withOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

func operationOf(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok {
		return op
	}
	return "unknown"
}

func newBaseTransport(timeouts Timeouts, maxConns int) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   timeouts.Connect,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   timeouts.Connect,
		ResponseHeaderTimeout: timeouts.Read,
		MaxIdleConns:          maxConns * 2,
		MaxIdleConnsPerHost:   maxConns,
		IdleConnTimeout:       90 * time.Second,
	}
}

// retryTransport resends failed requests according to policy. Each attempt
// gets its own deadline; the deadline is released when the body is closed.
type retryTransport struct {
	next           http.RoundTripper
	policy         RetryPolicy
	attemptTimeout time.Duration
	log            zerolog.Logger
	metrics        *Metrics
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	op := operationOf(ctx)

	// The last attempt's response or error is kept here; Action only fails
	// when another attempt should follow.
	var (
		resp    *http.Response
		respErr error
		attempt int
		aborted bool
	)
	_, err := retry.With(retry.Config[*http.Response]{
		MaxRetries: max(t.policy.MaxAttempts, 1),
		Action: func() (*http.Response, error) {
			if aborted {
				return nil, nil
			}
			attempt++
			resp, respErr = t.attempt(req, attempt)
			if !t.policy.ShouldRetry(attempt, resp, respErr) {
				return resp, nil
			}
			if respErr != nil {
				return nil, respErr
			}
			return nil, errors.Errorf("status %d", resp.StatusCode)
		},
		AttemptErrorCallback: func(n int, err error) {
			delay := t.policy.Delay(n)
			event := t.log.Warn().
				Str("operation", op).
				Int("attempt", n).
				Int("maxAttempts", t.policy.MaxAttempts).
				Dur("delay", delay)
			if resp != nil {
				event = event.Int("status", resp.StatusCode)
				discard(resp.Body)
				resp = nil
			}
			event.Err(err).Msg("request failed, retrying")
			if n >= t.policy.MaxAttempts {
				return
			}
			t.metrics.retried(op)
			if err := t.policy.wait(ctx, delay); err != nil {
				aborted = true
				respErr = errors.Wrapf(err, "aborted before attempt %d", n+1)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return resp, respErr
}

func (t *retryTransport) attempt(req *http.Request, attempt int) (*http.Response, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if t.attemptTimeout > 0 {
		ctx, cancel = context.WithTimeout(req.Context(), t.attemptTimeout)
	} else {
		ctx, cancel = context.WithCancel(req.Context())
	}
	attemptReq := req.Clone(ctx)
	if attempt > 1 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, errors.Wrapf(err, "failed to rewind request body")
		}
		attemptReq.Body = body
	}

	started := time.Now()
	resp, err := t.next.RoundTrip(attemptReq)
	t.metrics.attempted(operationOf(ctx), attemptOutcome(resp, err), time.Since(started))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &closeHookBody{ReadCloser: resp.Body, hook: cancel}
	return resp, nil
}

// limitTransport bounds the number of attempts in flight. A slot is held
// until the response body is closed.
type limitTransport struct {
	next http.RoundTripper
	sem  *semaphore.Weighted
}

func newLimitTransport(next http.RoundTripper, limit int) http.RoundTripper {
	if limit <= 0 {
		return next
	}
	return &limitTransport{next: next, sem: semaphore.NewWeighted(int64(limit))}
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, errors.Wrapf(err, "failed to acquire request slot")
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}
	resp.Body = &closeHookBody{ReadCloser: resp.Body, hook: func() { t.sem.Release(1) }}
	return resp, nil
}

type closeHookBody struct {
	io.ReadCloser
	once sync.Once
	hook func()
}

func (b *closeHookBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.hook)
	return err
}

func discard(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

func attemptOutcome(resp *http.Response, err error) string {
	switch {
	case err == nil && resp != nil:
		return statusClass(resp.StatusCode)
	case errors.Is(err, context.Canceled):
		return "canceled"
	case IsTimeout(err):
		return "timeout"
	case IsReset(err):
		return "reset"
	default:
		return "error"
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
