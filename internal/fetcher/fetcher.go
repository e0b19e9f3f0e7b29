// Package fetcher retrieves target documents over HTTP with bounded
// retries and backoff.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/docwatch/docwatch/internal/watch"
)

// Config controls fetch behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
	Retry        watch.RetryPolicy
}

// HTTP implements watch.Fetcher using a Colly collector per request.
type HTTP struct {
	cfg    Config
	base   *colly.Collector
	clock  watch.Clock
	logger *zap.Logger

	// sleep is swappable so retry tests do not wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an HTTP fetcher.
func New(cfg Config, clock watch.Clock, logger *zap.Logger) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// The daemon refetches the same URLs every cycle; clones share the
	// visited-URL store, so revisits must stay allowed.
	c.AllowURLRevisit = true
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.WithTransport(newHTTPTransport())

	if clock == nil {
		clock = watch.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{
		cfg:    cfg,
		base:   c,
		clock:  clock,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Fetch retrieves the target's base URL, retrying transient failures
// according to the configured policy. 4xx responses and malformed URLs
// fail immediately.
func (f *HTTP) Fetch(ctx context.Context, target watch.Target) (watch.RawResponse, error) {
	url := target.BaseURL()

	var (
		lastErr  error
		attempts int
	)
	for attempt := 0; ; attempt++ {
		attempts = attempt + 1
		resp, err := f.fetchOnce(ctx, target, url)
		if err == nil {
			resp.Attempts = attempts
			return resp, nil
		}
		lastErr = err

		if !f.cfg.Retry.ShouldRetry(err, attempt) {
			break
		}
		delay := f.cfg.Retry.Backoff(attempt)
		f.logger.Warn("fetch retrying",
			zap.String("target", target.Name()),
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if serr := f.sleep(ctx, delay); serr != nil {
			return watch.RawResponse{}, &watch.FetchError{URL: url, Transient: false, Attempts: attempts, Err: serr}
		}
	}
	// Metrics consume the attempt count even when the fetch fails.
	var fe *watch.FetchError
	if errors.As(lastErr, &fe) {
		fe.Attempts = attempts
	}
	return watch.RawResponse{}, lastErr
}

func (f *HTTP) fetchOnce(ctx context.Context, target watch.Target, url string) (watch.RawResponse, error) {
	var (
		result   watch.RawResponse
		respErr  error
		received bool
	)

	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		received = true
		result = watch.RawResponse{
			Target:     target,
			StatusCode: r.StatusCode,
			Headers:    cloneHeaders(r.Headers),
			Body:       append([]byte(nil), r.Body...),
			FetchedAt:  f.clock.Now(),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		respErr = f.classifyFailure(url, r, err)
	})

	visitErr := f.runCollector(ctx, collector, url)
	switch {
	case respErr != nil:
		// OnError fired: its classification carries the status code.
		return watch.RawResponse{}, respErr
	case visitErr != nil:
		return watch.RawResponse{}, visitErr
	case !received:
		return watch.RawResponse{}, &watch.FetchError{
			URL: url, Transient: false, Err: fmt.Errorf("no response received"),
		}
	}
	return result, nil
}

func (f *HTTP) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return &watch.FetchError{URL: url, Transient: false, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			// Bad URL, unsupported scheme, or the raw error behind an
			// OnError callback; the callback's classification wins.
			return &watch.FetchError{URL: url, Transient: false, Err: err}
		}
		return nil
	}
}

// classifyFailure sorts a failed request into the transient/permanent
// halves of the error taxonomy.
func (f *HTTP) classifyFailure(url string, r *colly.Response, err error) error {
	status := 0
	if r != nil {
		status = r.StatusCode
	}
	if status > 0 {
		return &watch.FetchError{
			URL:        url,
			StatusCode: status,
			Transient:  watch.RetryableStatus(status),
			Err:        err,
		}
	}
	transient := false
	var netErr net.Error
	if errors.As(err, &netErr) {
		transient = netErr.Timeout()
	}
	return &watch.FetchError{URL: url, Transient: transient, Err: err}
}

func cloneHeaders(h *http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
