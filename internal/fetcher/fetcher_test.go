package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

func newTestFetcher(maxRetries int) *HTTP {
	f := New(Config{
		UserAgent: "docwatch-test",
		Timeout:   5 * time.Second,
		Retry:     watch.NewRetryPolicy(maxRetries, time.Millisecond, 2*time.Millisecond),
	}, nil, nil)
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"openapi":"3.0.0"}`))
	}))
	defer srv.Close()

	f := newTestFetcher(0)
	target := watch.Target{URL: srv.URL + "/openapi.json", DeclaredType: watch.TypeOpenAPI, APIName: "t"}

	resp, err := f.Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, resp.Attempts)
	require.JSONEq(t, `{"openapi":"3.0.0"}`, string(resp.Body))
	require.Equal(t, "application/json", resp.Headers.Get("Content-Type"))
	require.False(t, resp.FetchedAt.IsZero())
}

func TestFetchStripsAnchorFromURL(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.String())
		_, _ = w.Write([]byte("<html><body>docs</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(0)
	target := watch.Target{URL: srv.URL + "/docs#create-user", DeclaredType: watch.TypeHTML, APIName: "t"}

	_, err := f.Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, "/docs", gotPath.Load())
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(3)
	target := watch.Target{URL: srv.URL, DeclaredType: watch.TypeHTML, APIName: "t"}

	resp, err := f.Fetch(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Attempts)
	require.Equal(t, "recovered", string(resp.Body))
}

func TestFetchDoesNotRetryPermanentStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(3)
	target := watch.Target{URL: srv.URL, DeclaredType: watch.TypeJSON, APIName: "t"}

	_, err := f.Fetch(context.Background(), target)
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load(), "4xx must fail without retries")

	var fe *watch.FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, http.StatusNotFound, fe.StatusCode)
	require.False(t, fe.Transient)
	require.Equal(t, 1, fe.Attempts)
}

func TestFetchTimeoutExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	const maxRetries = 2

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := New(Config{
		UserAgent: "docwatch-test",
		Timeout:   50 * time.Millisecond,
		Retry:     watch.NewRetryPolicy(maxRetries, time.Millisecond, 2*time.Millisecond),
	}, nil, nil)
	f.sleep = func(context.Context, time.Duration) error { return nil }

	target := watch.Target{URL: srv.URL, DeclaredType: watch.TypeOpenAPI, APIName: "t"}

	_, err := f.Fetch(context.Background(), target)
	require.Error(t, err)
	require.Equal(t, int32(maxRetries+1), calls.Load(), "timeouts retried up to the budget")

	var fe *watch.FetchError
	require.True(t, errors.As(err, &fe))
	require.True(t, fe.Transient)
	require.Equal(t, maxRetries+1, fe.Attempts)
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	const maxRetries = 2

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher(maxRetries)
	target := watch.Target{URL: srv.URL, DeclaredType: watch.TypeOpenAPI, APIName: "t"}

	_, err := f.Fetch(context.Background(), target)
	require.Error(t, err)
	require.Equal(t, int32(maxRetries+1), calls.Load(), "attempted exactly maxRetries+1 times")

	var fe *watch.FetchError
	require.True(t, errors.As(err, &fe))
	require.True(t, fe.Transient)
	require.Equal(t, maxRetries+1, fe.Attempts)
}

func TestFetchMalformedURLFailsImmediately(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(3)
	target := watch.Target{URL: "http://", DeclaredType: watch.TypeHTML, APIName: "t"}

	_, err := f.Fetch(context.Background(), target)
	require.Error(t, err)

	var fe *watch.FetchError
	require.True(t, errors.As(err, &fe))
	require.False(t, fe.Transient)
}
