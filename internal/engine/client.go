package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ErrContextGone is wrapped in the error returned when the engine no longer
// knows a context (404 / 410).
var ErrContextGone = errors.New("engine: context gone")

// Options configures the engine client.
type Options struct {
	BaseURL   string
	Token     string        // optional bearer token sent to the engine
	Timeout   time.Duration // upper bound for a single request
	RateLimit float64       // requests per second, <= 0 means unlimited
	UserAgent string
}

// NavigateOptions are the per-user toggles forwarded with a navigation.
type NavigateOptions struct {
	ZoomLevel  int  `json:"zoomLevel"`
	JavaScript bool `json:"javascript"`
	Cookies    bool `json:"cookies"`
	Adblock    bool `json:"adblock"`
}

// NavigateRequest is one navigation against an existing context.
type NavigateRequest struct {
	Handle    string
	URL       string
	WaitUntil string
	Options   NavigateOptions
}

// NavigateResult is what the engine reports about the loaded page.
type NavigateResult struct {
	URL     string
	Title   string
	Favicon string
}

// Client talks to the headless browser engine over HTTP.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	log     logger.Logger
	metrics *metrics.Metrics
}

// New creates an engine client. Retries are not done here: navigation is
// not idempotent and the gateways own the retry policy.
func New(opts Options, log logger.Logger, m *metrics.Metrics) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tabgate"
	}

	// pooled transport with sane dial and idle settings
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetTransport(retryClient.HTTPClient.Transport).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		resty:   rc,
		limiter: limiter,
		log:     log,
		metrics: m,
	}
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransport(err)
	}
	return c.resty.R().SetContext(ctx), nil
}

// CreateContext asks the engine for a new isolated browsing context and
// returns its handle.
func (c *Client) CreateContext(ctx context.Context, userID string) (string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.
		SetBody(map[string]any{"userId": userID}).
		Post("/context")
	if err := c.check("create", resp, err); err != nil {
		return "", err
	}

	body := resp.Body()
	for _, path := range []string{"handle", "id", "context_id", "data.handle", "data.page_id", "page_id"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String(), nil
		}
	}
	return "", domain.E(domain.KindEngineUnavailable, "browser engine returned no context", nil)
}

// Navigate loads req.URL in the context req.Handle.
func (c *Client) Navigate(ctx context.Context, nr NavigateRequest) (NavigateResult, error) {
	req, err := c.request(ctx)
	if err != nil {
		return NavigateResult{}, err
	}

	payload := map[string]any{
		"handle":  nr.Handle,
		"page_id": nr.Handle,
		"url":     nr.URL,
		"options": nr.Options,
	}
	if nr.WaitUntil != "" {
		payload["waitUntil"] = nr.WaitUntil
	}

	resp, err := req.SetBody(payload).Post("/navigate")
	if err := c.check("navigate", resp, err); err != nil {
		return NavigateResult{}, err
	}

	body := resp.Body()
	res := NavigateResult{
		URL:     firstString(body, "url", "data.url"),
		Title:   firstString(body, "title", "data.title"),
		Favicon: firstString(body, "favicon", "data.favicon"),
	}
	if res.URL == "" {
		res.URL = nr.URL
	}
	return res, nil
}

// ReleaseContext frees a context in the engine. A context the engine no
// longer knows counts as released.
func (c *Client) ReleaseContext(ctx context.Context, handle string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete("/context/" + url.PathEscape(handle))
	err = c.check("release", resp, err)
	if errors.Is(err, ErrContextGone) {
		return nil
	}
	return err
}

// Ping reports whether the engine answers at all. Any HTTP response below
// 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.resty.R().SetContext(ctx).Get("/")
	if err != nil {
		return classifyTransport(err)
	}
	if resp.StatusCode() >= 500 {
		return domain.E(domain.KindEngineUnavailable, "browser engine unhealthy", fmt.Errorf("status %d", resp.StatusCode()))
	}
	return nil
}

// check turns a transport error, an HTTP error status or a
// {"status":"error"} body into a classified domain error.
func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.metrics.EngineCall(op, "transport_error")
		c.log.Warn("engine call failed",
			logger.String("op", op),
			logger.Error(err))
		return classifyTransport(err)
	}

	code := resp.StatusCode()
	c.metrics.EngineCall(op, strconv.Itoa(code))

	if cerr := classifyStatus(code, resp.Body()); cerr != nil {
		c.log.Warn("engine call rejected",
			logger.String("op", op),
			logger.Int("status", code),
			logger.Error(cerr))
		return cerr
	}
	return nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.E(domain.KindTimeout, "browser engine timed out", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.E(domain.KindTimeout, "browser engine timed out", err)
	}
	return domain.E(domain.KindEngineUnavailable, "browser engine unavailable", err)
}

func classifyStatus(code int, body []byte) error {
	cause := fmt.Errorf("status %d: %s", code, engineMessage(body))

	switch {
	case code == http.StatusNotFound, code == http.StatusGone:
		return domain.E(domain.KindEngineUnavailable, "browser context no longer exists", errors.Join(ErrContextGone, cause))
	case code == http.StatusForbidden, code == http.StatusUnavailableForLegalReasons:
		return domain.E(domain.KindBlockedByTarget, "navigation blocked by target", cause)
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return domain.E(domain.KindTimeout, "browser engine timed out", cause)
	case code >= 400:
		return domain.E(domain.KindEngineUnavailable, "browser engine unavailable", cause)
	}

	if strings.EqualFold(gjson.GetBytes(body, "status").String(), "error") {
		return domain.E(domain.KindEngineUnavailable, "browser engine reported an error", fmt.Errorf("engine: %s", engineMessage(body)))
	}
	return nil
}

func engineMessage(body []byte) string {
	if msg := firstString(body, "error", "message", "data.error"); msg != "" {
		return msg
	}
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}

func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
