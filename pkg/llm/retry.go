package llm

import (
	"context"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

type RetryPolicy struct {
	MaxAttempts int           `json:"maxAttempts" yaml:"maxAttempts"`
	BaseDelay   time.Duration `json:"baseDelay" yaml:"baseDelay"`

	// Sleep waits for d or until ctx is done; time based when nil.
	Sleep func(ctx context.Context, d time.Duration) error `json:"-" yaml:"-"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// Delay returns the wait after the given number of attempts already made:
// BaseDelay * 2^attempt, so 2s after the first failure and 4s after the second.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.BaseDelay * time.Duration(int64(1)<<uint(attempt))
}

// ShouldRetry decides whether another attempt is made after attempt number
// `attempt` (1-based) ended with resp or err.
func (p RetryPolicy) ShouldRetry(attempt int, resp *http.Response, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	if err != nil {
		return RetryableError(err)
	}
	return resp != nil && RetryableStatus(resp.StatusCode)
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryableStatus reports 5xx and 429; any other 4xx cannot change on resend.
func RetryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// RetryableError reports transport failures worth another attempt: timeouts,
// resets and any other send failure. Caller cancellation is never retried.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// IsReset reports a connection dropped or refused by the remote side.
func IsReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE)
}

func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
