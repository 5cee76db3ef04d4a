// AngelaMos | 2026
// client.go

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/civiclens/console-client/internal/identity"
)

const tracerName = "github.com/civiclens/console-client/internal/api"

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials TokenSource
	Timeout     time.Duration
	MaxRetries  int
	Logger      *slog.Logger
	Tracer      trace.Tracer
}

// Client speaks the identity service contract. Every call carries the
// ambient cookie jar plus a bearer header when a token is cached.
type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var transport http.RoundTripper = http.DefaultTransport
	if opts.MaxRetries > 0 {
		transport = &RetryRoundTripper{
			Base:    transport,
			Options: RetryOptions{MaxRetries: opts.MaxRetries},
		}
	}
	transport = &BearerRoundTripper{Base: transport, Tokens: opts.Credentials}

	// Cookie jar errors only occur with a non-nil PublicSuffixList.
	jar, _ := cookiejar.New(nil)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   timeout,
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		tracer:   tracer,
	}
}

// Login exchanges credentials for a token and the principal's fields.
// A 401 surfaces as ErrInvalidCredentials with a displayable message.
func (c *Client) Login(
	ctx context.Context,
	req LoginRequest,
) (*LoginResponse, error) {
	ctx, span := c.startSpan(ctx, "auth.login")
	defer span.End()

	if err := c.validate.Struct(req); err != nil {
		return nil, c.spanError(span, fmt.Errorf("%w: %s", ErrInvalidInput, validationMessage(err)))
	}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		if apiErr, ok := asAPIError(err); ok &&
			apiErr.Status == http.StatusUnauthorized {
			// A login 401 is a credential rejection, not a dead session;
			// it must not trigger the token-clearing recovery path.
			apiErr.sentinel = ErrInvalidCredentials
		}
		return nil, c.spanError(span, err)
	}

	return &resp, nil
}

// Logout asks the server to invalidate the current session.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "auth.logout")
	defer span.End()

	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return c.spanError(span, err)
	}
	return nil
}

// LogoutForce is the best-effort fallback for sessions the server has
// already invalidated.
func (c *Client) LogoutForce(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "auth.logout_force")
	defer span.End()

	if err := c.do(ctx, http.MethodPost, "/auth/logout-force", nil, nil); err != nil {
		return c.spanError(span, err)
	}
	return nil
}

// CurrentPrincipal fetches the identity bound to the attached token.
// Callers are expected to short-circuit on an empty credential store;
// calling without a token simply yields ErrUnauthorized.
func (c *Client) CurrentPrincipal(
	ctx context.Context,
) (*identity.Principal, error) {
	ctx, span := c.startSpan(ctx, "auth.me")
	defer span.End()

	var principal identity.Principal
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &principal); err != nil {
		return nil, c.spanError(span, err)
	}

	principal.Permissions = identity.NormalizePermissions(principal.Permissions)
	return &principal, nil
}

func (c *Client) ChangePassword(
	ctx context.Context,
	req ChangePasswordRequest,
) error {
	ctx, span := c.startSpan(ctx, "auth.change_password")
	defer span.End()

	if err := c.validate.Struct(req); err != nil {
		return c.spanError(span, fmt.Errorf("%w: %s", ErrInvalidInput, validationMessage(err)))
	}

	if err := c.do(ctx, http.MethodPost, "/auth/change-password", req, nil); err != nil {
		return c.spanError(span, err)
	}
	return nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := c.startSpan(ctx, "auth.password_reset")
	defer span.End()

	req := PasswordResetRequest{Email: email}
	if err := c.validate.Struct(req); err != nil {
		return c.spanError(span, fmt.Errorf("%w: %s", ErrInvalidInput, validationMessage(err)))
	}

	if err := c.do(ctx, http.MethodPost, "/auth/password-reset", req, nil); err != nil {
		return c.spanError(span, err)
	}
	return nil
}

func (c *Client) ConfirmPasswordReset(
	ctx context.Context,
	req ConfirmPasswordResetRequest,
) error {
	ctx, span := c.startSpan(ctx, "auth.password_reset_confirm")
	defer span.End()

	if err := c.validate.Struct(req); err != nil {
		return c.spanError(span, fmt.Errorf("%w: %s", ErrInvalidInput, validationMessage(err)))
	}

	if err := c.do(ctx, http.MethodPost, "/auth/password-reset/confirm", req, nil); err != nil {
		return c.spanError(span, err)
	}
	return nil
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	in, out any,
) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := decodeError(resp)
		c.logger.Debug("identity call failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return err
	}

	if out == nil {
		//nolint:errcheck // drain for connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) startSpan(
	ctx context.Context,
	name string,
) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String("peer.service", "identity")),
	)
}

func (c *Client) spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func asAPIError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}

	return "invalid value for " + strings.Join(fields, ", ")
}
