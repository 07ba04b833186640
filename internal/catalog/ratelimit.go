package catalog

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewTokenBucket builds the limiter guarding the login-requiring catalog
// client.
//
// golang.org/x/time/rate.Limiter already models "refill rate + capacity";
// the one thing it doesn't default to is starting empty, so the bucket is
// drained once immediately after construction.
func NewTokenBucket() *rate.Limiter {
	lim := rate.NewLimiter(rate.Every(100*time.Millisecond), 50)
	lim.AllowN(time.Now(), 50)
	return lim
}

// throttledTransport wraps an http.RoundTripper with a token-bucket wait
// before every request.
type throttledTransport struct {
	Limiter      *rate.Limiter
	RoundTripper http.RoundTripper
}

func (t throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.RoundTripper.RoundTrip(req)
}

// NewThrottledClient returns an *http.Client whose outbound requests are
// paced by the provider token bucket, wrapping base (or http.DefaultTransport if
// base is nil).
func NewThrottledClient(base http.RoundTripper, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: timeout,
		Transport: throttledTransport{
			Limiter:      NewTokenBucket(),
			RoundTripper: base,
		},
	}
}
