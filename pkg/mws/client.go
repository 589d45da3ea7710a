// Package mws is a signing, retrying transport for Amazon Marketplace Web
// Service APIs. It turns an action name and a parameter map into a signed
// Signature Version 2 POST and returns the raw response.
package mws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/mws-orders-client/pkg/metrics"
)

// Prometheus metrics for MWS client operations.
var (
	mwsRequestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_requests_total",
		Help: "Total MWS requests by action and status",
	}, []string{"action", "status"})

	mwsRequestDuration = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mws_request_duration_seconds",
		Help:    "MWS request duration in seconds by action",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"action"})

	mwsErrorsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_errors_total",
		Help: "Total MWS errors by class",
	}, []string{"class"})

	mwsQuotaRemaining = promauto.With(metrics.Registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "mws_quota_remaining",
		Help: "Hourly request quota remaining as last reported by MWS, by action",
	}, []string{"action"})
)

// TimestampFormat is the ISO 8601 layout used for request timestamps and
// date parameters.
const TimestampFormat = "2006-01-02T15:04:05-07:00"

var (
	// ErrMissingCredentials is returned by New when keys are absent.
	ErrMissingCredentials = errors.New("mws access key and secret key are required")

	// ErrInvalidServiceURL is returned by New for an unusable service URL.
	ErrInvalidServiceURL = errors.New("invalid mws service url")
)

// Config holds the transport configuration of one MWS service.
type Config struct {
	ServiceURL         string
	ServiceVersion     string
	AccessKey          string
	SecretKey          string
	ApplicationName    string
	ApplicationVersion string

	// MWSAuthToken is sent when acting on behalf of another seller.
	MWSAuthToken string

	Timeout       time.Duration
	MaxErrorRetry int

	// MaxRequestsPerSecond caps outbound requests. Zero disables the cap.
	MaxRequestsPerSecond float64
	Burst                int

	// Schema describes the actions of the service.
	Schema Schema
}

// Client calls one MWS service.
type Client struct {
	httpClient *http.Client
	endpoint   *url.URL
	config     Config
	retry      *RetryConfig
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock sets the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRetryConfig overrides the backoff policy for every error class.
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Client) {
		c.retry = &rc
	}
}

// New creates a client for the service described by cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	endpoint, err := url.Parse(cfg.ServiceURL)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServiceURL, cfg.ServiceURL)
	}

	if cfg.MaxErrorRetry < 0 {
		cfg.MaxErrorRetry = 0
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		config:     cfg,
		now:        time.Now,
		logger:     log.With().Str("component", "mws-client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	var rt http.RoundTripper = userAgent{value: c.userAgent(), base: base}
	if cfg.MaxRequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		rt, err = newRateLimitedTransport(cfg.MaxRequestsPerSecond, burst, c.logger, rt)
		if err != nil {
			return nil, err
		}
	}
	hc := *c.httpClient
	hc.Transport = rt
	c.httpClient = &hc

	return c, nil
}

// ActionName maps a method identifier to its MWS action by upper-casing
// the first letter ("getOrder" becomes "GetOrder").
func ActionName(method string) string {
	r, size := utf8.DecodeRuneInString(method)
	if r == utf8.RuneError {
		return method
	}
	return string(unicode.ToUpper(r)) + method[size:]
}

// Call performs the action named by method with params. Server, throttled
// and network failures are retried up to MaxErrorRetry times; the final
// failure is returned as an *APIError, possibly wrapped in ErrRetryExhausted.
func (c *Client) Call(ctx context.Context, method string, params *Params) (*Response, error) {
	action := ActionName(method)

	values, dropped, err := c.config.Schema.Encode(action, params)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		c.logger.Debug().
			Str("action", action).
			Strs("dropped", dropped).
			Msg("Dropping parameters not accepted by action")
	}

	startTime := time.Now()
	defer func() {
		mwsRequestDuration.WithLabelValues(action).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("action", action).
		Int("params", len(values)).
		Msg("Executing MWS request")

	var resp *Response
	retryErr := retryWithBackoff(ctx, c.logger, c.retryPolicy, func(attempt int) (ErrorClass, error) {
		var callErr *APIError
		resp, callErr = c.do(ctx, action, values)
		if callErr != nil {
			mwsErrorsTotal.WithLabelValues(string(callErr.ErrorClass)).Inc()
			c.logger.Warn().
				Str("action", action).
				Int("status", callErr.StatusCode).
				Str("code", callErr.Code).
				Str("error_class", string(callErr.ErrorClass)).
				Int("attempt", attempt).
				Msg("MWS request error")
			return callErr.ErrorClass, callErr
		}
		return "", nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	if q := resp.Metadata.QuotaRemaining; q != nil {
		mwsQuotaRemaining.WithLabelValues(action).Set(*q)
	}
	return resp, nil
}

func (c *Client) retryPolicy(class ErrorClass) RetryConfig {
	if c.retry != nil {
		rc := *c.retry
		rc.MaxAttempts = c.config.MaxErrorRetry + 1
		return rc
	}
	return RetryConfigForErrorClass(class, c.config.MaxErrorRetry+1)
}

// do sends one signed attempt. Each attempt is signed with a fresh timestamp.
func (c *Client) do(ctx context.Context, action string, params url.Values) (*Response, *APIError) {
	body := c.signedForm(action, params).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewBufferString(body))
	if err != nil {
		return nil, &APIError{ErrorClass: ErrorClassClient, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		mwsRequestsTotal.WithLabelValues(action, "network_error").Inc()
		class := ErrorClassNetwork
		if ctx.Err() != nil {
			// Not worth retrying once the caller has given up.
			class = ErrorClassClient
		}
		return nil, &APIError{ErrorClass: class, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		mwsRequestsTotal.WithLabelValues(action, "network_error").Inc()
		return nil, &APIError{StatusCode: httpResp.StatusCode, ErrorClass: ErrorClassNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	mwsRequestsTotal.WithLabelValues(action, strconv.Itoa(httpResp.StatusCode)).Inc()

	if httpResp.StatusCode >= 400 {
		return nil, newAPIError(httpResp.StatusCode, httpResp.Header, data)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Metadata:   parseMetadata(httpResp.Header),
	}, nil
}

// signedForm adds the common parameters and the signature to params.
func (c *Client) signedForm(action string, params url.Values) url.Values {
	form := make(url.Values, len(params)+8)
	for k, v := range params {
		form[k] = append([]string(nil), v...)
	}

	form.Set("AWSAccessKeyId", c.config.AccessKey)
	form.Set("Action", action)
	form.Set("SignatureMethod", SignatureMethod)
	form.Set("SignatureVersion", SignatureVersion)
	form.Set("Timestamp", c.now().UTC().Format(TimestampFormat))
	if c.config.ServiceVersion != "" {
		form.Set("Version", c.config.ServiceVersion)
	}
	if c.config.MWSAuthToken != "" {
		form.Set("MWSAuthToken", c.config.MWSAuthToken)
	}

	form.Set("Signature", sign(c.config.SecretKey, stringToSign(http.MethodPost, c.endpoint, form)))
	return form
}

func (c *Client) userAgent() string {
	name := c.config.ApplicationName
	if name == "" {
		name = "mws-orders-client"
	}
	version := c.config.ApplicationVersion
	if version == "" {
		version = "0"
	}
	return fmt.Sprintf("%s/%s (Language=Go/%s; Platform=%s/%s)",
		name, version, strings.TrimPrefix(runtime.Version(), "go"), runtime.GOOS, runtime.GOARCH)
}
