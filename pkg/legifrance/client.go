package legifrance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultTimeout bounds every HTTP call made by the client.
	DefaultTimeout = 30 * time.Second

	tracerName = "github.com/go-training/mcp-legifrance/pkg/legifrance"
)

// Config holds the connection settings of a Client.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithStaticToken makes the client use token as a never expiring bearer
// token. No credentials exchange happens.
func WithStaticToken(token string) Option {
	return func(c *Client) { c.staticToken = token }
}

// WithHTTPClient sets the HTTP client used for blocking calls and token
// exchanges. The async HTTP client is derived from its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock replaces time.Now for token expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retrier.policy = p }
}

// WithBackoffTimer sets the timer used to wait between retries.
func WithBackoffTimer(t backoff.Timer) Option {
	return func(c *Client) { c.retrier.timer = t }
}

// Client talks to the Legifrance API. It is safe for concurrent use.
type Client struct {
	baseURL     string
	staticToken string

	httpClient *http.Client

	mu          sync.Mutex
	asyncClient *http.Client

	tokens  *tokenManager
	retrier retrier
	now     func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Result is delivered by the async variants once the call completes.
type Result struct {
	Value any
	Err   error
}

// New builds a Client and acquires its first access token, unless a static
// token is configured.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		retrier: retrier{policy: DefaultRetryPolicy},
		now:     time.Now,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.staticToken == "" && (cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "") {
		return nil, ErrMissingCredentials
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.retrier.logger = c.logger
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}

	c.tokens = &tokenManager{
		credentials: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{"openid"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: c.httpClient,
		retrier:    c.retrier,
		now:        c.now,
		logger:     c.logger,
		tracer:     c.tracer,
	}

	if c.staticToken != "" {
		c.tokens.current.Store(&TokenInfo{AccessToken: c.staticToken})
		return c, nil
	}

	if _, err := c.tokens.ensure(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Token returns the current access token, refreshing it when expired.
func (c *Client) Token(ctx context.Context) (*TokenInfo, error) {
	return c.tokens.ensure(ctx)
}

// Request sends method to endpoint and decodes the JSON response. payload is
// sent as the JSON body when not nil; nil values of a map payload are
// dropped. A body that is not JSON yields a DataParsingError.
func (c *Client) Request(
	ctx context.Context, method, endpoint string, payload any, params url.Values,
) (any, error) {
	return c.request(ctx, c.httpClient, "request", method, endpoint, payload, params, false)
}

// Get sends a GET request. A response body that is not JSON is returned as
// a string.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (any, error) {
	return c.request(ctx, c.httpClient, "request", http.MethodGet, endpoint, nil, params, true)
}

// Post sends payload as JSON to endpoint.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) (any, error) {
	return c.request(ctx, c.httpClient, "request", http.MethodPost, endpoint, payload, nil, false)
}

// RequestAsync is the non-blocking form of Request. The returned channel
// receives exactly one Result.
func (c *Client) RequestAsync(
	ctx context.Context, method, endpoint string, payload any, params url.Values,
) <-chan Result {
	return c.async(ctx, method, endpoint, payload, params, false)
}

// GetAsync is the non-blocking form of Get.
func (c *Client) GetAsync(ctx context.Context, endpoint string, params url.Values) <-chan Result {
	return c.async(ctx, http.MethodGet, endpoint, nil, params, true)
}

// PostAsync is the non-blocking form of Post.
func (c *Client) PostAsync(ctx context.Context, endpoint string, payload any) <-chan Result {
	return c.async(ctx, http.MethodPost, endpoint, payload, nil, false)
}

// Close releases idle connections of both HTTP clients. The async HTTP client
// is rebuilt on the next async call.
func (c *Client) Close() error {
	c.mu.Lock()
	async := c.asyncClient
	c.asyncClient = nil
	c.mu.Unlock()

	if async != nil {
		async.CloseIdleConnections()
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) async(
	ctx context.Context, method, endpoint string, payload any, params url.Values, textFallback bool,
) <-chan Result {
	out := make(chan Result, 1)
	hc := c.asyncHTTPClient()
	go func() {
		v, err := c.request(ctx, hc, "async request", method, endpoint, payload, params, textFallback)
		out <- Result{Value: v, Err: err}
	}()
	return out
}

// asyncHTTPClient lazily builds the HTTP client used by async calls.
func (c *Client) asyncHTTPClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.asyncClient == nil {
		transport := c.httpClient.Transport
		switch t := transport.(type) {
		case *http.Transport:
			transport = t.Clone()
		case nil:
			transport = http.DefaultTransport.(*http.Transport).Clone()
		}
		c.asyncClient = &http.Client{Transport: transport, Timeout: c.httpClient.Timeout}
	}
	return c.asyncClient
}

func (c *Client) request(
	ctx context.Context,
	hc *http.Client,
	op, method, endpoint string,
	payload any,
	params url.Values,
	textFallback bool,
) (any, error) {
	ctx, span := c.tracer.Start(ctx, "legifrance."+op,
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("legifrance.endpoint", endpoint),
		))
	defer span.End()

	value, err := c.doRequest(ctx, hc, op, method, endpoint, payload, params, textFallback)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return value, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	hc *http.Client,
	op, method, endpoint string,
	payload any,
	params url.Values,
	textFallback bool,
) (any, error) {
	body, err := encodePayload(payload)
	if err != nil {
		return nil, unexpectedError(op, fmt.Sprintf("Unexpected error in Legifrance API %s", op), err)
	}
	target := c.buildURL(endpoint, params)

	var raw []byte
	err = c.retrier.do(ctx, op, func() error {
		tok, err := c.tokens.ensure(ctx)
		if err != nil {
			// token acquisition has its own retries
			return backoff.Permanent(err)
		}
		raw, err = c.send(ctx, hc, op, method, target, body, tok)
		return err
	})
	if err != nil {
		return nil, err
	}

	value, err := decodeJSON(raw)
	if err != nil {
		if textFallback {
			return string(raw), nil
		}
		return nil, newDataParsingError(err)
	}
	return value, nil
}

// send performs one HTTP exchange and classifies the outcome.
func (c *Client) send(
	ctx context.Context, hc *http.Client, op, method, target string, body []byte, tok *TokenInfo,
) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, unexpectedError(op, fmt.Sprintf("Unexpected error in Legifrance API %s", op), err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	tok.OAuth2().SetAuthHeader(req)

	c.logger.Debug("Sending Legifrance request", "method", method, "url", target)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, connectivityError(op, "Error connecting to Legifrance API", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectivityError(op, "Error connecting to Legifrance API", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(op, resp.StatusCode, string(data))
	}
	return data, nil
}

func (c *Client) buildURL(endpoint string, params url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Clean returns a copy of args without its nil values.
func Clean(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return json.Marshal(Clean(p))
	default:
		return json.Marshal(p)
	}
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return v, nil
}
