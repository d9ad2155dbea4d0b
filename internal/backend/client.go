// Package backend dispatches authenticated calls to the risk management API.
package backend

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sgr/internal/auth/models"
	"sgr/internal/risk"
	dErrors "sgr/pkg/domain-errors"
	"sgr/pkg/platform/circuit"
	"sgr/pkg/requestcontext"
)

var tracer = otel.Tracer("sgr.backend")

const (
	risksPath       = "/identificacaoriscos"
	maxErrorBodyLen = 4 << 10
)

type Client struct {
	baseURL     string
	http        *http.Client
	profilePath string
	breaker     *circuit.Breaker
}

type Option func(*Client)

// WithProfilePath overrides where the signed-in user's profile is read from.
func WithProfilePath(path string) Option {
	return func(c *Client) { c.profilePath = path }
}

// WithBreaker fails calls fast while the backend keeps timing out or
// answering with gateway errors.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New builds a Client for baseURL. A nil httpClient uses one with a 15s timeout.
func New(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        httpClient,
		profilePath: "/usuarios/perfil",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends body as JSON and decodes the response into out when both are
// non-nil. A non-empty bearer is attached as the Authorization header.
// Non-2xx responses become domain errors.
func (c *Client) Do(ctx context.Context, method, path, bearer string, body, out any) error {
	ctx, span := tracer.Start(ctx, "backend "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	if c.breaker != nil && !c.breaker.Allow() {
		err := dErrors.New(dErrors.CodeUpstream, "backend unavailable")
		span.SetAttributes(attribute.String("circuit.state", c.breaker.State().String()))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err := c.do(ctx, span, method, path, bearer, body, out)
	if ctx.Err() == nil {
		// a caller that gave up says nothing about the backend
		c.record(err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// record feeds the breaker. Only transport failures and upstream errors count
// against the backend; a 4xx answer means it is up.
func (c *Client) record(err error) {
	if c.breaker == nil {
		return
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUpstream, dErrors.CodeTimeout:
		c.breaker.RecordFailure()
	default:
		c.breaker.RecordSuccess()
	}
}

func (c *Client) do(ctx context.Context, span trace.Span, method, path, bearer string, body, out any) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode request body")
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "backend timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeUpstream, "backend unreachable")
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return dErrors.Wrap(err, dErrors.CodeUpstream, "decode backend response")
	}
	return nil
}

// statusError maps a non-2xx response. The backend's own message, when it
// sends one, becomes the error message.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	cause := fmt.Errorf("backend status %d", resp.StatusCode)

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		return dErrors.Wrap(cause, dErrors.CodeUnauthorized, msg)
	case code == http.StatusForbidden:
		return dErrors.Wrap(cause, dErrors.CodeForbidden, msg)
	case code == http.StatusNotFound:
		return dErrors.Wrap(cause, dErrors.CodeNotFound, msg)
	case code == http.StatusConflict:
		return dErrors.Wrap(cause, dErrors.CodeConflict, msg)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return dErrors.Wrap(cause, dErrors.CodeValidation, msg)
	case code == http.StatusGatewayTimeout:
		return dErrors.Wrap(cause, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(cause, dErrors.CodeUpstream, msg)
	}
}

// SubmitRisk creates the record (empty id, POST) or updates it (PUT). The
// scoring engine's values always overwrite whatever the record carried.
func (c *Client) SubmitRisk(ctx context.Context, bearer, id string, rec risk.Record) (risk.Record, error) {
	rec.Rescore()
	method, path := http.MethodPost, risksPath
	if id != "" {
		method, path = http.MethodPut, risksPath+"/"+url.PathEscape(id)
	}
	var saved risk.Record
	if err := c.Do(ctx, method, path, bearer, rec, &saved); err != nil {
		return risk.Record{}, err
	}
	if saved.ID == "" {
		saved = rec
	}
	return saved, nil
}

// Risk fetches one record by id.
func (c *Client) Risk(ctx context.Context, bearer, id string) (risk.Record, error) {
	var rec risk.Record
	if err := c.Do(ctx, http.MethodGet, risksPath+"/"+url.PathEscape(id), bearer, nil, &rec); err != nil {
		return risk.Record{}, err
	}
	return rec, nil
}

// Profile reads the signed-in user's profile.
func (c *Client) Profile(ctx context.Context, bearer string) (*models.Profile, error) {
	var p models.Profile
	if err := c.Do(ctx, http.MethodGet, c.profilePath, bearer, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
