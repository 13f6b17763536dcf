// Package tripapi implements service.Service against the TripBoard REST API.
package tripapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"tripboard/internal/service"
	"tripboard/internal/session"
)

const (
	// APITimeout is the timeout for a single API call.
	APITimeout = 10 * time.Second

	// RequestIDHeader carries a per-request uuid for server-side correlation.
	RequestIDHeader = "X-Request-ID"

	tracerName = "tripboard/internal/backend/tripapi"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client implements service.Service and service.Accounts over HTTP.
type Client struct {
	baseURL string
	sess    *session.Session
	anon    *http.Client
	authed  *http.Client
	logger  log.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for transport (for testing).
// Its Transport is wrapped with bearer-token injection for authenticated calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.anon = hc
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(l log.FieldLogger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a TripBoard API client for baseURL using the credentials held
// by sess. ctx bounds token refreshes triggered by later calls.
func New(ctx context.Context, baseURL string, sess *session.Session, opts ...Option) *Client {
	if sess == nil {
		sess = session.New()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		sess:    sess,
		anon:    &http.Client{},
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.anon.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.authed = &http.Client{
		Transport: &oauth2.Transport{
			Source: sess.TokenSource(ctx, c.refresh),
			Base:   base,
		},
		Timeout: c.anon.Timeout,
	}
	return c
}

// request describes one API call.
type request struct {
	op     string // span and log name, e.g. "GetBoard"
	method string
	route  string // templated path for telemetry, e.g. "/boards/{id}/"
	path   string // concrete path, e.g. "/boards/12/"
	query  url.Values
	body   any
	auth   bool
}

// call performs r and decodes a successful response body into out (if non-nil).
func (c *Client) call(ctx context.Context, r request, out any) error {
	data, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return &service.ServerError{Status: http.StatusOK, Message: fmt.Sprintf("invalid response from %s: %v", r.route, err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "tripapi."+r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("http.route", r.route),
		),
	)
	defer span.End()

	start := time.Now()
	requestID := uuid.NewString()
	status, data, err := c.roundTrip(ctx, r, requestID)

	fields := log.Fields{
		"op":          r.op,
		"method":      r.method,
		"route":       r.route,
		"status":      status,
		"duration_ms": float64(time.Since(start)) / float64(time.Millisecond),
		"request_id":  requestID,
	}
	if status > 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fields["error"] = err.Error()
	}
	c.logger.WithFields(fields).Debug("tripapi.request")
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, r request, requestID string) (int, []byte, error) {
	if r.auth && !c.sess.Authenticated() {
		return 0, nil, service.ErrAuthenticationRequired
	}

	var body io.Reader
	if r.body != nil {
		payload, err := sonic.ConfigStd.Marshal(r.body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s body: %w", r.op, err)
		}
		body = bytes.NewReader(payload)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, requestID)

	hc := c.anon
	if r.auth {
		hc = c.authed
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, wrapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, &service.NetworkError{Err: err}
		}
		return resp.StatusCode, data, nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, nil, statusError(resp.StatusCode, resp.Status, data)
}

// wrapTransportError maps a failed round trip onto the error taxonomy.
func wrapTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrAuthenticationRequired), errors.Is(err, session.ErrNoRefreshToken):
		return fmt.Errorf("%w: session expired (run: tripboard login)", service.ErrAuthenticationRequired)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return &service.NetworkError{Err: errors.New("request timed out")}
	default:
		return &service.NetworkError{Err: err}
	}
}

// statusError builds the error for a non-2xx response.
func statusError(code int, status string, body []byte) error {
	msg := errorMessage(code, status, body)
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", service.ErrAuthenticationRequired, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", service.ErrNotFound, msg)
	default:
		return &service.ServerError{Status: code, Message: msg}
	}
}

// errorMessage extracts a human-readable message from an error body.
// Fields are tried in order: message, detail, error. Falls back to
// "HTTP <status>: <statusText>".
func errorMessage(code int, status string, body []byte) string {
	var fields map[string]any
	if len(body) > 0 && sonic.ConfigStd.Unmarshal(body, &fields) == nil {
		for _, key := range []string{"message", "detail", "error"} {
			if s, ok := fields[key].(string); ok && s != "" {
				return s
			}
		}
	}
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return fmt.Sprintf("HTTP %d: %s", code, text)
}
