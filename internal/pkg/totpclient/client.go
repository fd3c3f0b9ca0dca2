// Package totpclient calls the two-factor verification endpoint on behalf of
// a signed-in operator.
package totpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultPath is the endpoint path appended to the base URL.
const DefaultPath = "/api/v1/twofactor"

const maxResponseBytes = 64 << 10

// Error is a non-2xx answer from the service.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("totpclient: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("totpclient: %d %s: %s", e.Status, e.Code, e.Message)
}

// PublicMessage is the service message, safe to show the operator.
func (e *Error) PublicMessage() string {
	return e.Message
}

// GenerateResult is a fresh enrollment secret.
type GenerateResult struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

// Client calls one service endpoint with the session's bearer token.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	path    string
	base    http.RoundTripper
	timeout time.Duration
}

// WithPath overrides DefaultPath, e.g. "/functions/v1/totp-auth".
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithTransport sets the underlying transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithTimeout bounds every call regardless of the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New returns a client for baseURL that authenticates with ts.
func New(baseURL string, ts oauth2.TokenSource, opts ...Option) *Client {
	o := options{path: DefaultPath, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(o.path, "/"),
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: o.base},
			Timeout:   o.timeout,
		},
	}
}

type actionRequest struct {
	Action           string `json:"action"`
	Secret           string `json:"secret,omitempty"`
	VerificationCode string `json:"verificationCode,omitempty"`
	Code             string `json:"code,omitempty"`
}

// Generate asks for a new secret. Nothing is persisted until Verify.
func (c *Client) Generate(ctx context.Context) (GenerateResult, error) {
	var out GenerateResult
	err := c.do(ctx, actionRequest{Action: "generate"}, &out)
	return out, err
}

// Verify enables TOTP with secret when code matches it.
func (c *Client) Verify(ctx context.Context, secret, code string) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, actionRequest{Action: "verify", Secret: secret, VerificationCode: code}, &out)
}

// Validate checks a challenge code against the enrolled secret.
func (c *Client) Validate(ctx context.Context, code string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	err := c.do(ctx, actionRequest{Action: "validate", Code: code}, &out)
	return out.Valid, err
}

// Disable clears the enrollment.
func (c *Client) Disable(ctx context.Context) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, actionRequest{Action: "disable"}, &out)
}

// Status reports whether TOTP is enabled.
func (c *Client) Status(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	err := c.do(ctx, actionRequest{Action: "status"}, &out)
	return out.Enabled, err
}

// do posts body and decodes the answer into out. Context cancellation and
// deadline errors are returned as ctx.Err() so callers can match them with
// errors.Is without unwrapping transport errors.
func (c *Client) do(ctx context.Context, body actionRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("totpclient: %s: %w", body.Action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("totpclient: reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("totpclient: decoding response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return &Error{Status: status, Code: body.Code, Message: body.Error}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Status: status, Message: msg}
}
