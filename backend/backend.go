// Package backend is the HTTP client for the managed backend: a hosted
// Postgres exposed as a REST table API, an object store and a password
// auth service, all consumed over HTTPS with the anonymous public key.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotConfigured is returned when the backend URL or anonymous key
	// is absent.
	ErrNotConfigured = errors.New("backend is not configured")

	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("row already exists")
)

// Config holds the backend connection settings.
type Config struct {
	// URL is the HTTPS endpoint of the managed backend.
	URL string
	// AnonKey is the anonymous public API key.
	AnonKey string
}

// Client represents a managed backend client.
type Client struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// New creates a new backend client. It fails with ErrNotConfigured when
// either connection value is absent.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, ErrNotConfigured
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

var (
	shared     *Client
	sharedErr  error
	sharedOnce sync.Once
)

// Get returns the process-wide client, constructing it on first use from
// the BACKEND_URL and BACKEND_ANON_KEY environment variables. Subsequent
// calls return the same client (or the same ErrNotConfigured).
func Get() (*Client, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = New(Config{
			URL:     os.Getenv("BACKEND_URL"),
			AnonKey: os.Getenv("BACKEND_ANON_KEY"),
		})
	})
	return shared, sharedErr
}

// Host returns the hostname of the backend endpoint. Gallery deletion uses
// it to recognise image URLs that originate from the backend's object
// store.
func (c *Client) Host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	return u.Hostname()
}

// apiError is the error body the backend returns. The table API uses
// message/code, the auth service uses msg or error_description.
type apiError struct {
	Message     string `json:"message"`
	Code        string `json:"code"`
	Msg         string `json:"msg"`
	Description string `json:"error_description"`
}

func (e *apiError) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Msg != "":
		return e.Msg
	case e.Description != "":
		return e.Description
	}
	return ""
}

// uniqueViolation is the SQLSTATE code for a unique constraint violation.
const uniqueViolation = "23505"

// do executes req with the backend auth headers set and returns the
// response body. Non-2xx responses become errors carrying the backend's
// message verbatim; unique constraint violations map to ErrDuplicate.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("apikey", c.anonKey)
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.text()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		if resp.StatusCode == http.StatusConflict || apiErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, msg)
		}
		return nil, fmt.Errorf("backend request failed with status %d: %s", resp.StatusCode, msg)
	}

	return body, nil
}
