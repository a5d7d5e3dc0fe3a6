// Package api is the HTTP layer shared by both backends. One Client is bound
// to each backend; both apply the same interceptors:
//
//   - outbound: attach the stored credential as a bearer header, a request
//     id and the trace context;
//   - inbound: turn every failure into an *apierr.Error and, on 401, run the
//     session expiry effect.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/qfin/internal/client/apierr"
	"github.com/dmitrijs2005/qfin/internal/client/session"
	"github.com/dmitrijs2005/qfin/internal/common"
	"github.com/dmitrijs2005/qfin/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/dmitrijs2005/qfin/internal/client/api"

	// DefaultMaxResponseBody caps how much of a response is read into memory.
	DefaultMaxResponseBody = 8 << 20
)

// ErrResponseTooLarge is the cause of the error returned when a response
// exceeds the client's body limit.
var ErrResponseTooLarge = errors.New("response body exceeds limit")

// ExpiryHandler runs the "session expired" effect. *session.Terminator
// implements it.
type ExpiryHandler interface {
	Expire(ctx context.Context) bool
}

// Client talks to one backend.
type Client struct {
	name        string
	baseURL     *url.URL
	httpClient  *http.Client
	store       session.Store
	expiry      ExpiryHandler
	logger      logging.Logger
	tracer      trace.Tracer
	publicPaths map[string]bool
	maxBody     int64
}

type Option func(*Client)

// WithTransport replaces the HTTP transport (the timeout is kept).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// WithPublicPaths marks endpoints that are meant to be called without a
// credential, so a missing credential is not worth a warning there.
func WithPublicPaths(paths ...string) Option {
	return func(c *Client) {
		for _, p := range paths {
			c.publicPaths[p] = true
		}
	}
}

// WithMaxResponseBody sets the response body limit. n <= 0 removes it.
func WithMaxResponseBody(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// New builds a client for the backend at baseURL. A zero timeout means
// requests are bounded only by their context.
func New(name, baseURL string, timeout time.Duration, store session.Store, expiry ExpiryHandler, logger logging.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s base url %q: %w", name, baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid %s base url %q: scheme must be http or https", name, baseURL)
	}

	c := &Client{
		name:        name,
		baseURL:     u,
		httpClient:  &http.Client{Timeout: timeout},
		store:       store,
		expiry:      expiry,
		logger:      logger.With("backend", name),
		tracer:      otel.Tracer(tracerName),
		publicPaths: make(map[string]bool),
		maxBody:     DefaultMaxResponseBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the backend name the client was built with.
func (c *Client) Name() string {
	return c.name
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

// Do sends a JSON request and decodes a successful JSON response into out
// (out may be nil). Every returned error is an *apierr.Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("qfin.backend", c.name),
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error(ctx, "failed to build request", "path", path, "error", err)
		return &apierr.Error{Kind: apierr.KindUnknown, Message: apierr.MsgUnexpected, Cause: err}
	}
	c.attachCredential(ctx, req, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error(ctx, "network error", "path", path, "error", err)
		return apierr.Network(err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := c.readBody(resp.Body)
	if errors.Is(err, ErrResponseTooLarge) {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error(ctx, "response too large", "path", path, "status", resp.StatusCode, "limit", c.maxBody)
		return &apierr.Error{Kind: apierr.KindUnknown, Message: apierr.MsgUnexpected, Status: resp.StatusCode, Cause: err}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error(ctx, "failed to read response", "path", path, "status", resp.StatusCode, "error", err)
		return apierr.Network(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return c.decode(ctx, path, resp.StatusCode, body, out)
	}

	apiErr := c.handleFailure(ctx, path, resp.StatusCode, body)
	span.SetStatus(codes.Error, apiErr.Message)
	return apiErr
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	if c.maxBody <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBody {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// attachCredential is the request interceptor.
func (c *Client) attachCredential(ctx context.Context, req *http.Request, path string) {
	s, ok, err := c.store.Read(ctx)
	if err != nil {
		c.logger.Error(ctx, "failed to read session, sending request unauthenticated", "path", path, "error", err)
		return
	}
	if ok && s.Credential != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerValue(s.Credential))
		return
	}
	if c.publicPaths[strings.TrimSuffix(path, "/")] {
		c.logger.Debug(ctx, "request has no credential", "path", path)
		return
	}
	c.logger.Warn(ctx, "request has no credential", "path", path)
}

// handleFailure is the response interceptor for non-2xx statuses.
func (c *Client) handleFailure(ctx context.Context, path string, status int, body []byte) *apierr.Error {
	apiErr := apierr.FromStatus(status, body)
	if status == http.StatusUnauthorized {
		c.expiry.Expire(ctx)
	}
	c.logger.Warn(ctx, "request failed",
		"path", path, "status", status, "kind", string(apiErr.Kind), "message", apiErr.Message)
	return apiErr
}

func (c *Client) decode(ctx context.Context, path string, status int, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error(ctx, "undecodable response", "path", path, "status", status, "error", err)
		return &apierr.Error{Kind: apierr.KindUnknown, Message: apierr.MsgUnexpected, Status: status, Body: body, Cause: err}
	}
	return nil
}
