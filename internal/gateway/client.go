package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"snapfeed/internal/models"
	"snapfeed/internal/observability"

	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 16 << 20

// Options tunes a Client.
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables pacing
	Burst         int
	HTTPClient    *http.Client
}

// Client is the HTTP implementation of AuthGateway and PostGateway.
// Credentials are ambient: the backend sets a session cookie that the
// client's jar replays on every request.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *observability.GatewayLogger
}

// NewClient builds a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Jar: jar, Timeout: timeout}
	}

	c := &Client{
		baseURL:    u,
		httpClient: hc,
		logger:     observability.NewGatewayLogger("rest"),
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c, nil
}

// Cookies returns the session cookies the jar holds for the backend. Only
// name and value survive; the jar does not expose attributes.
func (c *Client) Cookies() []*http.Cookie {
	if c.httpClient.Jar == nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(c.cookieURL())
}

// SetCookies loads previously saved backend cookies into the jar.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if c.httpClient.Jar == nil || len(cookies) == 0 {
		return
	}
	for _, ck := range cookies {
		if ck.Path == "" {
			ck.Path = "/"
		}
	}
	c.httpClient.Jar.SetCookies(c.cookieURL(), cookies)
}

func (c *Client) cookieURL() *url.URL {
	return &url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host, Path: "/"}
}

// endpoint describes one backend operation.
type endpoint struct {
	op       string
	method   string
	path     string
	fallback string
	// transportText lets a network error's own text reach the user ahead of
	// the fallback. Account flows show it; post flows do not.
	transportText bool
}

type errorBody struct {
	Message string `json:"message"`
}

// do performs ep, sending body as JSON when non-nil and decoding a 2xx
// response into out when non-nil.
func (c *Client) do(ctx context.Context, ep endpoint, body, out any) error {
	ctx = observability.EnsureCorrelationID(ctx)
	ctx, span := observability.TraceGatewayCall(ctx, "rest", ep.op, ep.method, ep.path)
	defer observability.TrackGatewayCall("rest", ep.op)()

	err := c.roundTrip(ctx, ep, body, out)
	if err != nil {
		observability.GatewayErrors.WithLabelValues("rest", ep.op).Inc()
		c.logger.LogError(ctx, ep.method, ep.path, err)
	}
	observability.EndSpan(span, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, ep endpoint, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.transportError(ep, err)
		}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return models.NewGatewayError(ep.fallback, 0, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, c.baseURL.String()+ep.path, reader)
	if err != nil {
		return models.NewGatewayError(ep.fallback, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", observability.ExtractCorrelationID(ctx))
	observability.InjectTraceHeaders(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ep, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.logger.LogRequest(ctx, ep.method, ep.path, resp.StatusCode, time.Since(start))
	if err != nil {
		return c.transportError(ep, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ep.fallback
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && strings.TrimSpace(eb.Message) != "" {
			msg = eb.Message
		}
		return models.NewGatewayError(msg, resp.StatusCode, fmt.Errorf("%s %s: status %d", ep.method, ep.path, resp.StatusCode))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return models.NewGatewayError(ep.fallback, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) transportError(ep endpoint, err error) error {
	msg := ep.fallback
	if ep.transportText {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Err != nil {
			msg = uerr.Err.Error()
		} else {
			msg = err.Error()
		}
	}
	return models.NewGatewayError(msg, 0, err)
}

// pathf builds a path with escaped segments.
func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
