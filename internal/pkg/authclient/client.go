package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Endpoint paths served by the identity module.
const (
	PathStart      = "/api/auth/start"
	PathVerify     = "/api/auth/verify"
	PathTOTPLogin  = "/api/auth/totp-login"
	PathSetupFirst = "/api/auth/setup-first"
)

// DefaultRedirect is used when a successful verification names no target.
const DefaultRedirect = "/app"

const defaultHTTPTimeout = 30 * time.Second

// ErrInvalidBaseURL is returned by NewClient for a URL without scheme or host.
var ErrInvalidBaseURL = errors.New("authclient: invalid base url")

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials are the identifier and password of the two-step flow.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// StartResult is the body of a successful start call.
type StartResult struct {
	Token     string `json:"token"`
	PhoneHint string `json:"phone_hint,omitempty"`
}

// VerificationAttempt pairs a pending token with the code the user typed.
type VerificationAttempt struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// VerifyResult is the body of a successful verify, TOTP login or setup call.
type VerifyResult struct {
	Redirect string `json:"redirect,omitempty"`
}

type totpRequest struct {
	TOTPCode string `json:"totp_code"`
}

// Client calls the authentication endpoints.
type Client struct {
	baseURL *url.URL
	http    Doer
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default cookie-aware http.Client.
func WithHTTPClient(d Doer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// NewClient builds a Client for the server at baseURL.
//
// The default transport keeps cookies, so the session set by a successful
// verification is sent on later requests made through the same Client.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar, Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Start exchanges credentials for a pending verification token.
func (c *Client) Start(ctx context.Context, creds Credentials) (StartResult, error) {
	res, err := c.post(ctx, PathStart, creds)
	if err != nil {
		return StartResult{}, err
	}

	var out StartResult
	if err := res.Decode(&out); err != nil || out.Token == "" {
		return StartResult{}, &RequestError{
			Status:  res.Status,
			Message: "The server did not return a verification token.",
		}
	}

	return out, nil
}

// Verify submits a one-time code for a pending token.
func (c *Client) Verify(ctx context.Context, attempt VerificationAttempt) (VerifyResult, error) {
	return c.redirectCall(ctx, PathVerify, attempt)
}

// TOTPLogin signs in with an authenticator code.
func (c *Client) TOTPLogin(ctx context.Context, code string) (VerifyResult, error) {
	return c.redirectCall(ctx, PathTOTPLogin, totpRequest{TOTPCode: code})
}

// SetupFirst creates the first account from an authenticator code.
func (c *Client) SetupFirst(ctx context.Context, code string) (VerifyResult, error) {
	return c.redirectCall(ctx, PathSetupFirst, totpRequest{TOTPCode: code})
}

// LoginWithTOTP tries TOTPLogin and falls back to SetupFirst with the same
// code only when the login failure says no account exists yet.
func (c *Client) LoginWithTOTP(ctx context.Context, code string) (VerifyResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return VerifyResult{}, &ValidationError{Field: "totp_code", Message: "Enter the code from your authenticator app."}
	}

	res, err := c.TOTPLogin(ctx, code)
	if err == nil {
		return res, nil
	}
	if !IsAccountAbsent(err) {
		return VerifyResult{}, err
	}

	return c.SetupFirst(ctx, code)
}

// IsAccountAbsent reports whether err says no account has been configured.
//
// A structured code is authoritative when present. Without one, a 404 or a
// "no user configured" message is treated as the same signal.
func IsAccountAbsent(err error) bool {
	var rerr *RequestError
	if !errors.As(err, &rerr) {
		return false
	}

	if rerr.Code != "" {
		return rerr.Code == CodeAccountNotFound
	}
	if rerr.Status == http.StatusNotFound {
		return true
	}

	return strings.Contains(strings.ToLower(rerr.Message), "no user configured")
}

func (c *Client) redirectCall(ctx context.Context, path string, payload any) (VerifyResult, error) {
	res, err := c.post(ctx, path, payload)
	if err != nil {
		return VerifyResult{}, err
	}

	var out VerifyResult
	//nolint:errcheck // a body without a usable redirect falls back to the default
	_ = res.Decode(&out)
	if strings.TrimSpace(out.Redirect) == "" {
		out.Redirect = DefaultRedirect
	}

	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("authclient: encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(path).String(), bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("authclient: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, &NetworkError{Op: path, Err: err}
	}

	res, err := ReadResponse(resp)
	if err != nil {
		return Response{}, &NetworkError{Op: path, Err: err}
	}

	if !res.OK() {
		return res, res.Err()
	}

	return res, nil
}
