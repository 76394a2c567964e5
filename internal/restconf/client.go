// Package restconf talks to IOS-XE devices over the RESTCONF management
// API. The client covers the data subtree; the service layer on top parses
// hostname, interface, and routing payloads into domain models.
package restconf

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const yangDataJSON = "application/yang-data+json"

// Client is a minimal RESTCONF HTTP client for a single device.
type Client struct {
	host     string
	username string
	password string
	baseURL  string
	http     *http.Client
}

// NewClient builds a client for host using basic auth. Lab devices ship
// self-signed certificates, so server verification is skipped.
func NewClient(host, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		host:     host,
		username: username,
		password: password,
		baseURL:  fmt.Sprintf("https://%s/restconf/data", host),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Host returns the device address the client targets.
func (c *Client) Host() string { return c.host }

// Get fetches a YANG data path and decodes the JSON body into out.
// A 204 or empty body leaves out untouched.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	body, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if len(body) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("restconf: decode response from %s: %w", c.host, err)
	}
	return nil
}

// Patch merges data into a YANG data path.
func (c *Client) Patch(ctx context.Context, endpoint string, data any) error {
	_, err := c.request(ctx, http.MethodPatch, endpoint, data)
	return err
}

// Put replaces a YANG data path.
func (c *Client) Put(ctx context.Context, endpoint string, data any) error {
	_, err := c.request(ctx, http.MethodPut, endpoint, data)
	return err
}

// Delete removes a YANG data path.
func (c *Client) Delete(ctx context.Context, endpoint string) error {
	_, err := c.request(ctx, http.MethodDelete, endpoint)
	return err
}

func (c *Client) request(ctx context.Context, method, endpoint string, data ...any) ([]byte, error) {
	var payload io.Reader
	if len(data) > 0 && data[0] != nil {
		buf, err := json.Marshal(data[0])
		if err != nil {
			return nil, fmt.Errorf("restconf: encode request body: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("restconf: build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", yangDataJSON)
	req.Header.Set("Content-Type", yangDataJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		// transport-level failures, timeouts included, end up here
		return nil, &ConnError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnError{Host: c.host, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent {
			return nil, nil
		}
		return body, nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{HTTPError{
			Status:  resp.StatusCode,
			Message: "Resource not found",
			Details: string(body),
		}}
	}
	return nil, &HTTPError{
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
		Details: string(body),
	}
}
