// Package fetcher retrieves the live homepage of an audited domain and reduces
// it to the text blob embedded in the audit prompt.
//
// Fetching is best-effort: callers receive the last error when neither the
// HTTPS nor the HTTP attempt succeeded and are expected to degrade to a
// prompt without live HTML rather than fail the audit.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent identifies the auditor to the audited site.
const DefaultUserAgent = "Mozilla/5.0 (compatible; SitePilot SEO Auditor; +https://simple-it.us/sitepilot)"

const (
	defaultTimeout = 8 * time.Second
	maxBodyBytes   = 5 << 20
)

// FetchError is returned when every attempt failed. Err is the last failure.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// Page is a successfully fetched homepage.
type Page struct {
	URL     string // the URL that answered
	Content string // Extract() output, ready for the prompt
}

// Fetcher fetches homepages over HTTPS, falling back to HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	schemes   []string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithSchemes overrides the attempt order (default https, http).
func WithSchemes(schemes ...string) Option {
	return func(f *Fetcher) {
		if len(schemes) > 0 {
			f.schemes = schemes
		}
	}
}

// New returns a Fetcher with defaults suitable for production.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		userAgent: DefaultUserAgent,
		timeout:   defaultTimeout,
		schemes:   []string{"https", "http"},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch tries each scheme in order and returns the first 2xx page. Attempts
// run sequentially; a failed attempt never aborts the next one.
func (f *Fetcher) Fetch(ctx context.Context, domain string) (Page, error) {
	tr := otel.Tracer("fetcher")
	ctx, span := tr.Start(ctx, "Fetch", trace.WithAttributes(attribute.String("audit.domain", domain)))
	defer span.End()

	lg := zerolog.Ctx(ctx)

	var lastErr *FetchError
	for _, scheme := range f.schemes {
		url := scheme + "://" + domain
		html, err := f.get(ctx, url)
		if err != nil {
			lg.Debug().Err(err).Str("url", url).Msg("homepage fetch attempt failed")
			lastErr = &FetchError{URL: url, Err: err}
			continue
		}
		span.SetAttributes(attribute.String("fetch.url", url))
		return Page{URL: url, Content: Extract(html)}, nil
	}

	if lastErr == nil {
		lastErr = &FetchError{URL: domain, Err: fmt.Errorf("connection failed")}
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "fetch failed")
	return Page{}, lastErr
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
