package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout is the client-wide request timeout.
const DefaultTimeout = 30 * time.Second

// Body is a fetched JSON document: the raw bytes and the decoded value.
// Numbers are decoded as json.Number.
type Body struct {
	Raw   []byte
	Value any
}

// Fetcher retrieves one JSON document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Body, error)
}

// FetchError is a failed fetch. Message is the rendered one-line form that
// ends up in issue records.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }

func (e *FetchError) Unwrap() error { return e.Err }

// Message extracts the one-line failure message from err.
func Message(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "Request failed: " + err.Error()
}

// HTTPFetcher fetches JSON over HTTP with one shared client and an optional
// client-wide request rate limit. It is safe for concurrent use.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the client-wide request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client.Timeout = d
	}
}

// WithRateLimit caps requests per second across all callers. A
// non-positive rps disables the limit.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *HTTPFetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		burst := max(1, int(rps))
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying client. The client's timeout is
// kept unless WithTimeout is applied after it.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// NewHTTPFetcher returns a fetcher with DefaultTimeout and no rate limit.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a GET and decodes the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Body, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return Body{}, &FetchError{Message: "Request failed: " + err.Error(), Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Body{}, &FetchError{Message: "Request failed: " + err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Body{}, &FetchError{Message: "Request failed: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Body{}, &FetchError{Message: StatusMessage(resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Body{}, &FetchError{Message: "Request failed: " + err.Error(), Err: err}
	}

	v, err := Decode(raw)
	if err != nil {
		return Body{}, &FetchError{Message: "Invalid JSON: " + err.Error(), Err: err}
	}
	return Body{Raw: raw, Value: v}, nil
}

// StatusMessage renders a non-2xx status, e.g. "HTTP 404 Not Found".
func StatusMessage(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("HTTP %d %s", code, text)
	}
	return fmt.Sprintf("HTTP %d", code)
}

// Decode parses exactly one JSON document, keeping numbers as json.Number.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON document")
	}
	return v, nil
}
