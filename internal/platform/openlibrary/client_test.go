package openlibrary

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func noBackoff(int) time.Duration { return 0 }

func TestClient_SubjectWorks(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"science fiction","work_count":2,"works":[
			{"key":"/works/OL1W","title":"Dune","authors":[{"key":"/authors/OL1A","name":"Frank Herbert"}],"first_publish_year":1965,"cover_id":12345},
			{"key":"/works/OL2W","title":"Untitled","authors":[]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Backoff: noBackoff})
	works, err := c.SubjectWorks(context.Background(), "science fiction", 20, 40)
	require.NoError(t, err)

	assert.Equal(t, "/subjects/science%20fiction.json", gotPath)
	assert.Equal(t, "limit=20&offset=40", gotQuery)
	require.Len(t, works, 2)
	assert.Equal(t, "Dune", works[0].Title)
	require.NotNil(t, works[0].FirstPublishYear)
	assert.Equal(t, 1965, *works[0].FirstPublishYear)
	require.NotNil(t, works[0].CoverID)
	assert.Equal(t, int64(12345), *works[0].CoverID)
	assert.Nil(t, works[1].FirstPublishYear)
	assert.Nil(t, works[1].CoverID)
}

func TestClient_MalformedWorkDoesNotFailPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"works":[
			{"key":"/works/OL1W","title":"Dune","authors":[{"name":"Frank Herbert"}],"first_publish_year":1965},
			{"key":"/works/OL2W","title":"Odd","authors":[{"name":"Someone"}],"first_publish_year":"unknown"},
			{"key":"/works/OL3W","title":"Emma","authors":[{"name":"Jane Austen"}],"cover_id":7}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Backoff: noBackoff})
	works, err := c.SubjectWorks(context.Background(), "fiction", 20, 0)
	require.NoError(t, err)

	require.Len(t, works, 3)
	assert.NoError(t, works[0].DecodeErr)
	assert.Error(t, works[1].DecodeErr)
	assert.Equal(t, "/works/OL2W", works[1].Key)
	assert.Empty(t, works[1].Title)
	assert.NoError(t, works[2].DecodeErr)
	assert.Equal(t, "Emma", works[2].Title)
}

func TestClient_DoesNotRetryStatusErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, MaxRetries: 3, Backoff: noBackoff})
	_, err := c.SubjectWorks(context.Background(), "fantasy", 20, 0)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RetriesNetworkErrors(t *testing.T) {
	t.Run("recovers after transient failures", func(t *testing.T) {
		var calls int32
		hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) <= 2 {
				return nil, &net.DNSError{Err: "temporary failure", Name: r.URL.Host, IsTemporary: true}
			}
			rec := httptest.NewRecorder()
			rec.WriteHeader(http.StatusOK)
			_, _ = rec.WriteString(`{"works":[{"key":"/works/OL1W","title":"Dune","authors":[{"name":"Frank Herbert"}]}]}`)
			return rec.Result(), nil
		})}

		c := NewClient(Options{BaseURL: "http://catalog.test", MaxRetries: 3, HTTPClient: hc, Backoff: noBackoff})
		works, err := c.SubjectWorks(context.Background(), "fantasy", 20, 0)
		require.NoError(t, err)
		assert.Len(t, works, 1)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls int32
		hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return nil, &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
		})}

		c := NewClient(Options{BaseURL: "http://catalog.test", MaxRetries: 3, HTTPClient: hc, Backoff: noBackoff})
		_, err := c.SubjectWorks(context.Background(), "fantasy", 20, 0)
		assert.ErrorIs(t, err, syscall.ECONNRESET)
		assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	})
}

func TestClient_TerminalTransportErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unknown certificate authority", x509.UnknownAuthorityError{}},
		{"wrapped certificate verification", &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}},
		{"hostname mismatch", x509.HostnameError{Host: "catalog.test", Certificate: &x509.Certificate{}}},
		{"non network failure", errors.New("malformed request")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				atomic.AddInt32(&calls, 1)
				return nil, tt.err
			})}

			c := NewClient(Options{BaseURL: "https://catalog.test", MaxRetries: 3, HTTPClient: hc, Backoff: noBackoff})
			_, err := c.SubjectWorks(context.Background(), "fantasy", 20, 0)
			assert.Error(t, err)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&url.Error{Op: "Get", URL: "x", Err: &net.DNSError{Err: "no such host", Name: "x"}}))
	assert.True(t, isTransient(&url.Error{Op: "Get", URL: "x", Err: io.ErrUnexpectedEOF}))
	assert.True(t, isTransient(&url.Error{Op: "Get", URL: "x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}))
	assert.True(t, isTransient(&url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}))
	assert.False(t, isTransient(&url.Error{Op: "Get", URL: "x", Err: errors.New("unsupported protocol scheme")}))
	assert.False(t, isTransient(&url.Error{Op: "Get", URL: "x", Err: x509.UnknownAuthorityError{}}))
}

func TestClient_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Options{BaseURL: "http://catalog.test", Backoff: noBackoff})
	_, err := c.SubjectWorks(ctx, "fantasy", 20, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, time.Second, exponentialBackoff(1))
	assert.Equal(t, 2*time.Second, exponentialBackoff(2))
	assert.Equal(t, 4*time.Second, exponentialBackoff(3))
}
