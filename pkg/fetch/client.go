package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/openapi-clientlib/openapi-clientlib-go/pkg/log"
)

// logArea tags every event this package logs.
const logArea = "fetch"

// defaultTimeout bounds a single request when the caller supplies none.
const defaultTimeout = 30 * time.Second

var (
	// ErrMissingTemplateArg is returned when a URL template names a
	// placeholder the argument map does not provide.
	ErrMissingTemplateArg = errors.New("missing url template argument")

	// ErrInvalidBaseURL is returned by NewClient for an unparsable base URL.
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// Options configures a Client. The zero value is usable with NewClient
// defaults applied.
type Options struct {
	// Language is sent as the Accept-Language header when set.
	Language string

	// Timeout bounds each request. Zero uses the package default.
	Timeout time.Duration

	// Logger receives request events. Nil disables logging.
	Logger log.Logger

	// Clock drives cache-break timestamps. Nil uses the wall clock.
	Clock clock.Clock
}

// RequestOptions tweak a single request. A nil *RequestOptions means all
// defaults.
type RequestOptions struct {
	// Headers are added to the request verbatim.
	Headers map[string]string

	// BearerToken is sent as the Authorization header when set.
	BearerToken string

	// Body is JSON-encoded into the request body when non-nil.
	Body any

	// CacheBreak appends a timestamp query parameter so intermediaries
	// cannot serve a stale response. Only meaningful on GET.
	CacheBreak bool
}

// Result is a completed 2xx response.
type Result struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the full response body.
	Body []byte
}

// JSON decodes the response body into v.
func (r *Result) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// HTTPError is returned for any non-2xx response, carrying the status and
// body so callers can inspect gateway error payloads.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: %s returned %s", e.URL, e.Status)
}

// IsUnauthorized reports whether the response was a 401.
func (e *HTTPError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Client performs REST calls against the gateway. Each client carries a
// unique instance id and a monotonically increasing request counter, both
// sent as headers so server-side logs can correlate requests.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	clk        clock.Clock
	logger     log.Logger

	instanceID string
	requestID  atomic.Int64
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, options Options) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   options.Language,
		httpClient: &http.Client{Timeout: timeout},
		clk:        clk,
		logger:     options.Logger,
		instanceID: uuid.NewString(),
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, servicePath, urlTemplate string, args map[string]any, opts *RequestOptions) (*Result, error) {
	return c.do(ctx, http.MethodGet, servicePath, urlTemplate, args, opts)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, servicePath, urlTemplate string, args map[string]any, opts *RequestOptions) (*Result, error) {
	return c.do(ctx, http.MethodPost, servicePath, urlTemplate, args, opts)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, servicePath, urlTemplate string, args map[string]any, opts *RequestOptions) (*Result, error) {
	return c.do(ctx, http.MethodPut, servicePath, urlTemplate, args, opts)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, servicePath, urlTemplate string, args map[string]any, opts *RequestOptions) (*Result, error) {
	return c.do(ctx, http.MethodDelete, servicePath, urlTemplate, args, opts)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, servicePath, urlTemplate string, args map[string]any, opts *RequestOptions) (*Result, error) {
	return c.do(ctx, http.MethodPatch, servicePath, urlTemplate, args, opts)
}

func (c *Client) do(ctx context.Context, method, servicePath, urlTemplate string, args map[string]any, opts *RequestOptions) (*Result, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	requestURL, err := c.buildURL(method, servicePath, urlTemplate, args, opts.CacheBreak)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if opts.Body != nil {
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	requestID := c.requestID.Add(1)
	req.Header.Set("x-request-id", strconv.FormatInt(requestID, 10))
	req.Header.Set("x-client-instance-id", c.instanceID)
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	if opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.BearerToken)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	log.Debug(c.logger, logArea, "request", map[string]any{
		"method":    method,
		"url":       requestURL,
		"requestId": requestID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, requestURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn(c.logger, logArea, "request failed", map[string]any{
			"method":    method,
			"url":       requestURL,
			"status":    resp.StatusCode,
			"requestId": requestID,
		})
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        requestURL,
			Body:       respBody,
		}
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// buildURL joins the base URL, service path and expanded template, then
// appends args not consumed by the template as query parameters. GET
// requests optionally get a cache-break timestamp parameter.
func (c *Client) buildURL(method, servicePath, urlTemplate string, args map[string]any, cacheBreak bool) (string, error) {
	path, remaining, err := expandTemplate(urlTemplate, args)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(c.baseURL)
	if servicePath != "" {
		b.WriteString("/")
		b.WriteString(strings.Trim(servicePath, "/"))
	}
	if path != "" {
		b.WriteString("/")
		b.WriteString(strings.TrimPrefix(path, "/"))
	}

	query := url.Values{}
	for key, value := range remaining {
		query.Set(key, formatArg(value))
	}
	if cacheBreak && method == http.MethodGet {
		query.Set("_", strconv.FormatInt(c.clk.Now().UnixMilli(), 10))
	}
	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(query.Encode())
	}
	return b.String(), nil
}

// expandTemplate substitutes {placeholder} segments from args and returns
// the expanded path plus the args the template did not consume.
func expandTemplate(urlTemplate string, args map[string]any) (string, map[string]any, error) {
	remaining := make(map[string]any, len(args))
	for key, value := range args {
		remaining[key] = value
	}

	var b strings.Builder
	rest := urlTemplate
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		closing := strings.Index(rest[open:], "}")
		if closing < 0 {
			b.WriteString(rest)
			break
		}
		closing += open

		name := rest[open+1 : closing]
		value, ok := remaining[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q in %q", ErrMissingTemplateArg, name, urlTemplate)
		}
		delete(remaining, name)

		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(formatArg(value)))
		rest = rest[closing+1:]
	}
	return b.String(), remaining, nil
}

// formatArg renders an argument value for use in a URL.
func formatArg(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
