package ratelimit

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Doer is anything that can execute an HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps a Doer and paces outgoing requests with a token bucket.
// Waiting honours the request context, so a cancelled caller returns early.
type Client struct {
	next    Doer
	limiter *rate.Limiter
}

// PerMinute allows perMinute requests per minute with the given burst.
// perMinute <= 0 disables pacing and returns next unchanged.
func PerMinute(next Doer, perMinute, burst int) Doer {
	if perMinute <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(perMinute)
	return &Client{next: next, limiter: rate.NewLimiter(rate.Every(every), burst)}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, eris.Wrap(err, "ratelimit: wait")
	}
	return c.next.Do(req)
}
