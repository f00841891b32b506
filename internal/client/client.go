// Package client is the Go consumer of the ShopIT auth API: a typed HTTP
// client, an on-disk session store, and the form flow the CLI drives.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopit-io/shopit/internal/api"
	"github.com/shopit-io/shopit/internal/models"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the server, carrying its message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Client is a typed ShopIT API client. Every call goes through one
// http.Client with a timeout; a hung server fails the call instead of
// blocking forever.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*api.AuthResponse, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out api.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: out.Message}
	}
	return &out, nil
}

// Login submits credentials and returns the issued session
func (c *Client) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	return c.do(ctx, http.MethodPost, "/login", api.LoginRequest{
		Email:    email,
		Password: password,
	})
}

// Register creates an account. avatarURL may be empty.
func (c *Client) Register(ctx context.Context, name, email, password, avatarURL string) (*api.AuthResponse, error) {
	return c.do(ctx, http.MethodPost, "/register", api.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Avatar:   avatarURL,
	})
}

// ForgotPassword requests a password-reset email
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/password/forgot", api.ForgotPasswordRequest{Email: email})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword consumes an emailed reset token
func (c *Client) ResetPassword(ctx context.Context, token, password, confirmPassword string) (*api.AuthResponse, error) {
	return c.do(ctx, http.MethodPut, "/password/reset/"+token, api.ResetPasswordRequest{
		Password:        password,
		ConfirmPassword: confirmPassword,
	})
}

// Me fetches the user bound to the given session token
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out api.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: out.Message}
	}
	return out.User, nil
}
