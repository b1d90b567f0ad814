// Package remote adapts an external account-provisioning API to the
// interfaces consumed by the signup pipeline. The collaborator answers
// JSON envelopes; failures arrive either as non-2xx responses or as
// HTTP-200 bodies with success=false, and both channels are mapped to
// typed errors.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ngodesk.org/internal/account"
)

const defaultTimeout = 15 * time.Second

// Client calls the account-creation and verification-dispatch endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for the collaborator at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the response shape shared by both collaborator endpoints.
// Success may be absent (nil) on plain 2xx payloads.
type envelope struct {
	Success        *bool  `json:"success,omitempty"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
}

// CreateAccount submits the signup to the collaborator.
func (c *Client) CreateAccount(ctx context.Context, signup account.Signup) (account.Created, error) {
	var env envelope
	if err := c.post(ctx, "/v1/accounts", signup, &env); err != nil {
		return account.Created{}, err
	}
	return account.Created{
		OrganizationID: env.OrganizationID,
		UserID:         env.UserID,
		RegistrationID: env.RegistrationID,
	}, nil
}

type dispatchRequest struct {
	Email            string `json:"email"`
	OrganizationName string `json:"organization_name"`
}

// DispatchCode asks the collaborator to send a verification code.
func (c *Client) DispatchCode(ctx context.Context, email, organizationName string) error {
	var env envelope
	return c.post(ctx, "/v1/verification-codes", dispatchRequest{
		Email:            email,
		OrganizationName: organizationName,
	}, &env)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", account.ErrUnavailable, err)
	}

	var env envelope
	decoded := json.Unmarshal(raw, &env) == nil

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decoded && env.Message != "" {
			return &account.RemoteError{Code: env.Code, Message: env.Message}
		}
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = resp.Status
		}
		return &account.RemoteError{Message: msg}
	}

	// Некоторые коллабораторы отвечают 200 и кладут ошибку в тело.
	if decoded && env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request rejected"
		}
		return &account.RemoteError{Code: env.Code, Message: msg}
	}
	if !decoded {
		return fmt.Errorf("%w: malformed response body", account.ErrUnavailable)
	}
	if out != nil {
		// Body already decoded into env; re-decode into caller shape.
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: malformed response body", account.ErrUnavailable)
		}
	}
	return nil
}
