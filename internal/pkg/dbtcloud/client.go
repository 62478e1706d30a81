// Package dbtcloud implements the transport to the dbt Cloud REST API.
//
// The Client holds one HTTP client per API surface (v2 and v3), each with its own base path and
// authorization scheme. Requests are retried with exponential backoff, see Client.Get.
package dbtcloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/build"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/log"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
)

const (
	HTTPTimeout           = 30 * time.Second
	IdleConnTimeout       = 30 * time.Second
	TLSHandshakeTimeout   = 10 * time.Second
	ExpectContinueTimeout = 2 * time.Second
	KeepAlive             = 20 * time.Second
	MaxIdleConns          = 32
	DebugBodyLimit        = 2 * 1024
)

// APIVersion selects the API surface. Each surface has its own base path and authorization scheme.
type APIVersion string

const (
	V2 APIVersion = "v2"
	V3 APIVersion = "v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is a decoded JSON object.
type Record map[string]any

type Config struct {
	Host              string
	AccountID         int64
	Token             string
	Timeout           time.Duration
	MaxRetries        int
	BackoffFactor     float64
	RespectRetryAfter bool
	VerifySSL         bool
	// Verbose enables dump of all requests and responses to the debug log.
	Verbose bool
}

type Client struct {
	config  Config
	logger  log.Logger
	clock   clockwork.Clock
	clients map[APIVersion]*resty.Client
}

type Option func(c *clientConfig)

type clientConfig struct {
	clock     clockwork.Clock
	transport http.RoundTripper
}

// WithClock sets the clock used for waits between retries.
func WithClock(clock clockwork.Clock) Option {
	return func(c *clientConfig) {
		c.clock = clock
	}
}

// WithTransport replaces the default HTTP transport, for example by a mocked one in tests.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.transport = transport
	}
}

func New(config Config, logger log.Logger, opts ...Option) *Client {
	cfg := clientConfig{clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.transport == nil {
		cfg.transport = createTransport(config.VerifySSL)
	}

	config.Host = strings.TrimRight(config.Host, "/")
	c := &Client{config: config, logger: logger, clock: cfg.clock, clients: make(map[APIVersion]*resty.Client)}
	c.clients[V2] = c.createHTTPClient(V2, "Token "+config.Token, cfg.transport)
	c.clients[V3] = c.createHTTPClient(V3, "Bearer "+config.Token, cfg.transport)
	return c
}

func (c *Client) AccountID() int64 {
	return c.config.AccountID
}

// BaseURL returns "<host>/api/<version>/accounts/<account id>".
func (c *Client) BaseURL(version APIVersion) string {
	return fmt.Sprintf("%s/api/%s/accounts/%d", c.config.Host, version, c.config.AccountID)
}

// Get sends a GET request to the path relative to the base URL of the API version.
//
// A response with status >= 400 or a network error is retried, the wait before the attempt N is
// BackoffFactor * 2^(N-1). The error is returned when more than MaxRetries attempts failed.
// A 429 response with a valid Retry-After header, if RespectRetryAfter is enabled, waits the requested
// time and does not consume the retry budget.
func (c *Client) Get(ctx context.Context, path string, version APIVersion, query url.Values) (Record, error) {
	client, ok := c.clients[version]
	if !ok {
		return nil, errors.Errorf(`unknown API version "%s"`, version)
	}

	fullURL := c.BaseURL(version) + path
	backoff := newBackoff(c.config.BackoffFactor)
	attempt := 0
	for {
		response, err := client.R().SetContext(ctx).SetQueryParamsFromValues(query).Get(path)

		var wait time.Duration
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			attempt++
			if attempt > c.config.MaxRetries {
				return nil, errors.Errorf(`request "GET %s" failed: %w`, fullURL, err)
			}
			wait = backoff.NextBackOff()
			c.logger.Infof(`GET %s | %s | Retrying %dx after %s ..`, fullURL, err, attempt, wait)
		case response.StatusCode() < http.StatusBadRequest:
			return decodeRecord(response, fullURL)
		default:
			if response.StatusCode() == http.StatusTooManyRequests && c.config.RespectRetryAfter {
				if retryAfter, ok := parseRetryAfter(response.Header().Get("Retry-After"), c.clock.Now()); ok {
					c.logger.Warnf(`GET %s | %d | Rate limited, waiting %s ..`, fullURL, response.StatusCode(), retryAfter)
					if err := c.sleep(ctx, retryAfter); err != nil {
						return nil, err
					}
					continue
				}
			}

			attempt++
			if attempt > c.config.MaxRetries {
				return nil, &ApiError{StatusCode: response.StatusCode(), Body: response.String(), Method: http.MethodGet, URL: fullURL}
			}
			wait = backoff.NextBackOff()
			c.logger.Infof(`GET %s | %d | %s | Retrying %dx after %s ..`, fullURL, response.StatusCode(), log.Sanitize(truncate(response.String(), errorBodyLimit)), attempt, wait)
		}

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}

func (c *Client) createHTTPClient(version APIVersion, authorization string, transport http.RoundTripper) *resty.Client {
	r := resty.New()
	r.SetLogger(&clientLogger{logger: c.logger, token: c.config.Token})
	r.SetBaseURL(c.BaseURL(version))
	r.SetHeader("Authorization", authorization)
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", build.UserAgent())
	r.SetTimeout(c.config.Timeout)
	r.SetTransport(transport)

	// Debug full request and response if verbose = true
	if c.config.Verbose {
		r.SetDebug(true)
		r.SetDebugBodyLimit(DebugBodyLimit)
	}

	r.OnAfterResponse(func(_ *resty.Client, response *resty.Response) error {
		c.logger.Debug(responseToLog(response))
		return nil
	})

	return r
}

func createTransport(verifySSL bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   HTTPTimeout,
		KeepAlive: KeepAlive,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          MaxIdleConns,
		MaxIdleConnsPerHost:   MaxIdleConns,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: !verifySSL}, // nolint: gosec
	}
}

func decodeRecord(response *resty.Response, fullURL string) (Record, error) {
	body := response.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return Record{}, nil
	}

	var out Record
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Errorf(`cannot decode response of "GET %s": %w`, fullURL, err)
	}
	if out == nil {
		out = Record{}
	}
	return out, nil
}

func responseToLog(res *resty.Response) string {
	req := res.Request
	return fmt.Sprintf("%s %s | %d | %s", req.Method, requestURL(req), res.StatusCode(), res.Time())
}

func requestURL(req *resty.Request) string {
	if req.RawRequest != nil && req.RawRequest.URL != nil {
		return req.RawRequest.URL.String()
	}
	return req.URL
}

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
