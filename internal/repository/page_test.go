package repository

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery_deals/internal/models"
)

func newTestRepository(opts HTTPOptions) PageRepository {
	logger, _ := test.NewNullLogger()
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return NewHTTPPageRepository(opts, logger)
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestHTTPPageRepository_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body>Eggs $4.99</body></html>")
	}))
	defer srv.Close()

	body, err := newTestRepository(HTTPOptions{UserAgent: "deals-test/1.0"}).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, readAll(t, body), "Eggs $4.99")
	assert.Equal(t, "deals-test/1.0", gotUA)
}

func TestHTTPPageRepository_RandomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, "<html></html>")
	}))
	defer srv.Close()

	_, err := newTestRepository(HTTPOptions{}).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.NotEmpty(t, gotUA)
}

func TestHTTPPageRepository_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Jalapeño" in Latin-1
		_, _ = w.Write([]byte("<p>Jalape\xf1o $1</p>"))
	}))
	defer srv.Close()

	body, err := newTestRepository(HTTPOptions{}).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, readAll(t, body), "Jalapeño")
}

func TestHTTPPageRepository_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		wantErr     error
	}{
		{name: "not found", status: http.StatusNotFound, contentType: "text/html", wantErr: models.ErrUnexpectedStatus},
		{name: "forbidden", status: http.StatusForbidden, contentType: "text/html", wantErr: models.ErrUnexpectedStatus},
		{name: "json body", status: http.StatusOK, contentType: "application/json", wantErr: models.ErrUnsupportedContentType},
		{name: "image body", status: http.StatusOK, contentType: "image/png", wantErr: models.ErrUnsupportedContentType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := newTestRepository(HTTPOptions{}).Fetch(context.Background(), srv.URL)

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestHTTPPageRepository_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "<html>ok</html>")
	}))
	defer srv.Close()

	body, err := newTestRepository(HTTPOptions{MaxRetries: 1}).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, readAll(t, body), "ok")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPPageRepository_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestRepository(HTTPOptions{MaxRetries: 3}).Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPPageRepository_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestRepository(HTTPOptions{}).Fetch(ctx, srv.URL)

	require.Error(t, err)
}

func TestHTTPPageRepository_RejectsUnsupportedScheme(t *testing.T) {
	_, err := newTestRepository(HTTPOptions{}).Fetch(context.Background(), "ftp://example.com/flyer")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestHTTPPageRepository_RetriesTimedOutAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, "<html>second try</html>")
	}))
	defer srv.Close()

	opts := HTTPOptions{Timeout: 100 * time.Millisecond, MaxRetries: 1}
	// The caller's bound covers both attempts, as the scraper configures it.
	ctx, cancel := context.WithTimeout(context.Background(), 2*opts.Timeout+time.Second)
	defer cancel()

	body, err := newTestRepository(opts).Fetch(ctx, srv.URL)

	require.NoError(t, err)
	assert.Contains(t, readAll(t, body), "second try")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
