package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Client issues action calls against the kernel's external controller.
type Client struct {
	base   *url.URL
	secret string
	http   *http.Client
	logger *log.Logger
}

// NewClient creates a controller client for the given base URL.
func NewClient(controller, secret string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(controller)
	if err != nil {
		return nil, fmt.Errorf("invalid controller URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid controller URL scheme %q", u.Scheme)
	}
	return &Client{
		base:   u,
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// CloseConnection asks the kernel to terminate one connection.
func (c *Client) CloseConnection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/connections/"+url.PathEscape(id), nil)
}

// CloseAllConnections asks the kernel to terminate every live connection in
// one call.
func (c *Client) CloseAllConnections(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/connections", nil)
}

// SubmitRule appends a rule expression to the named rule set.
func (c *Client) SubmitRule(ctx context.Context, ruleSet, payload string) error {
	body := map[string]string{"payload": payload}
	return c.do(ctx, http.MethodPost, "/providers/rules/"+url.PathEscape(ruleSet), body)
}

// RefreshRuleProvider asks the kernel to reload the named rule provider so a
// freshly submitted rule takes effect.
func (c *Client) RefreshRuleProvider(ctx context.Context, ruleSet string) error {
	return c.do(ctx, http.MethodPut, "/providers/rules/"+url.PathEscape(ruleSet), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	// path segments arrive pre-escaped; JoinPath keeps RawPath so String
	// does not escape them a second time.
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	c.logger.Debug("controller call", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, msg)
	}
	return nil
}
