package ratelimit_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"metalprice/internal/provider/ratelimit"
)

type countingDoer struct{ calls int }

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func TestPerMinute_DisabledReturnsNext(t *testing.T) {
	t.Parallel()

	next := &countingDoer{}

	got := ratelimit.PerMinute(next, 0, 5)

	require.Same(t, next, got)
}

func TestPerMinute_BurstThenWait(t *testing.T) {
	t.Parallel()

	// Arrange: one request per minute, burst of one
	next := &countingDoer{}
	client := ratelimit.PerMinute(next, 1, 1)

	req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)

	// Act: the first call consumes the burst
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	// Act: the second call cannot get a token before its deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Do(req.WithContext(ctx))

	// Assert
	require.Error(t, err)
	require.Equal(t, 1, next.calls)
}
