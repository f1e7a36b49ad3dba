// Package client talks to the idler aggregator over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yairfalse/idler/pkg/resource"
)

// ErrEmptyID is returned before any request is made.
var ErrEmptyID = errors.New("resource id is required")

// ServerError is a non-2xx response, or a body carrying an error field.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// ListResult is the decoded body of GET /resources.
type ListResult struct {
	Resources []resource.Resource `json:"resources"`
	Warnings  []resource.Warning  `json:"warnings,omitempty"`
}

// Client calls the aggregator API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// List fetches every idle resource.
func (c *Client) List(ctx context.Context) (ListResult, error) {
	var out ListResult
	if err := c.do(ctx, http.MethodGet, "/resources", &out); err != nil {
		return ListResult{}, fmt.Errorf("list resources: %w", err)
	}
	return out, nil
}

// Delete asks the aggregator to delete one resource. typ may be empty.
func (c *Client) Delete(ctx context.Context, id string, typ resource.Type) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", ErrEmptyID
	}

	path := "/resources/" + url.PathEscape(id)
	if typ != "" {
		path += "?type=" + url.QueryEscape(string(typ))
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, path, &out); err != nil {
		return "", fmt.Errorf("delete %s: %w", id, err)
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// A body with an error field is a failure even on a 2xx status.
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || e.Error != "" {
		return &ServerError{Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
