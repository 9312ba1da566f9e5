package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/DataHenHQ/useragent"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"grocery_deals/internal/models"
)

// PageRepository defines the contract for fetching store pages.
// Implementations return the complete page body, decoded to UTF-8, so the
// reader stays valid after the fetch context ends.
type PageRepository interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// HTTPOptions configure the static page repository.
type HTTPOptions struct {
	// UserAgent is sent with every request; empty picks a random desktop UA.
	UserAgent string
	// Timeout bounds each attempt.
	Timeout time.Duration
	// Rate and Burst limit requests per host.
	Rate  float64
	Burst int
	// MaxRetries is the number of extra attempts on 5xx and timeouts.
	MaxRetries int
}

// httpPageRepository is the concrete implementation that performs plain HTTP requests.
type httpPageRepository struct {
	Client *http.Client
	opts   HTTPOptions
	logger logrus.FieldLogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPPageRepository creates a static page repository.
func NewHTTPPageRepository(opts HTTPOptions, logger logrus.FieldLogger) PageRepository {
	if opts.UserAgent == "" {
		if ua, err := useragent.Desktop(); err == nil {
			opts.UserAgent = ua
		}
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &httpPageRepository{
		Client:   &http.Client{Timeout: opts.Timeout},
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *httpPageRepository) limiter(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[host]
	if !ok {
		limit := rate.Inf
		if r.opts.Rate > 0 {
			limit = rate.Limit(r.opts.Rate)
		}
		l = rate.NewLimiter(limit, r.opts.Burst)
		r.limiters[host] = l
	}
	return l
}

// Fetch performs a GET with per-host rate limiting and bounded retry on
// transient failures.
func (r *httpPageRepository) Fetch(ctx context.Context, pageURL string) (io.Reader, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}

	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if err := r.limiter(u.Host).Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, err := r.tryOnce(ctx, pageURL)
		if err == nil {
			r.logger.WithField("url", pageURL).Debugf("Fetched %d bytes", body.Len())
			return body, nil
		}
		lastErr = err
		if !isTransient(err) || ctx.Err() != nil {
			break
		}
		r.logger.WithError(err).WithField("url", pageURL).Warnf("Fetch attempt %d failed", attempt+1)
	}
	return nil, lastErr
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d", models.ErrUnexpectedStatus, e.code)
}

func (e *statusError) Unwrap() error { return models.ErrUnexpectedStatus }

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.code >= 500
}

func (r *httpPageRepository) tryOnce(ctx context.Context, pageURL string) (*bytes.Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedContentType, contentType)
	}

	utf8Body, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	b, err := io.ReadAll(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// isHTML accepts a missing content type, since some stores omit it.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
