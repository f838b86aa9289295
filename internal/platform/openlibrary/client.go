package openlibrary

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://openlibrary.org"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
)

// StatusError is returned for non-200 responses. It is never retried.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

type Options struct {
	BaseURL    string
	UserAgent  string
	RPS        int
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
	// Backoff returns the wait before retry n (n starts at 1).
	Backoff func(n int) time.Duration
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	backoff    func(n int) time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff == nil {
		opts.Backoff = exponentialBackoff
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Every(time.Second / time.Duration(opts.RPS))
	}
	return &Client{
		httpClient: hc,
		userAgent:  opts.UserAgent,
		baseURL:    opts.BaseURL,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}
}

// Author is one entry of a work's author list.
type Author struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Work is one record of the subjects listing. DecodeErr is set when the record
// did not match the expected shape; only Key is then filled, if readable.
type Work struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Authors          []Author `json:"authors"`
	FirstPublishYear *int     `json:"first_publish_year"`
	CoverID          *int64   `json:"cover_id"`

	DecodeErr error `json:"-"`
}

// SubjectResponse matches subjects/{name}.json. Works are kept raw so a
// malformed record does not fail the page.
type SubjectResponse struct {
	Name      string            `json:"name"`
	WorkCount int               `json:"work_count"`
	Works     []json.RawMessage `json:"works"`
}

// SubjectWorks returns one page of works for a subject.
func (c *Client) SubjectWorks(ctx context.Context, subject string, limit, offset int) ([]Work, error) {
	u := fmt.Sprintf("%s/subjects/%s.json?limit=%d&offset=%d",
		c.baseURL, url.PathEscape(subject), limit, offset)

	var res SubjectResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	works := make([]Work, len(res.Works))
	for i, raw := range res.Works {
		works[i] = decodeWork(raw)
	}
	return works, nil
}

func decodeWork(raw json.RawMessage) Work {
	var w Work
	if err := json.Unmarshal(raw, &w); err != nil {
		var keyOnly struct {
			Key string `json:"key"`
		}
		_ = json.Unmarshal(raw, &keyOnly)
		return Work{Key: keyOnly.Key, DecodeErr: err}
	}
	return w
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(c.backoff(i)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil || !isTransient(err) {
				return err
			}
			lastErr = err
			continue
		}

		err = decode(resp, url, target)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func decode(resp *http.Response, url string, target any) error {
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// isTransient reports DNS failures, timeouts and connection level errors.
// Certificate and TLS failures, and anything without a network cause, are
// terminal.
func isTransient(err error) bool {
	var (
		unknownCA   x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		certInvalid x509.CertificateInvalidError
		tlsVerify   *tls.CertificateVerificationError
		tlsAlert    tls.AlertError
		recordErr   tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &unknownCA), errors.As(err, &hostErr), errors.As(err, &certInvalid),
		errors.As(err, &tlsVerify), errors.As(err, &tlsAlert), errors.As(err, &recordErr):
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func exponentialBackoff(n int) time.Duration {
	return time.Duration(1<<uint(n-1)) * time.Second
}
