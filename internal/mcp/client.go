package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brunolnetto/graph-mcp-mvp/internal/metrics"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/tool"
)

// Config carries the connection settings for one MCP server.
type Config struct {
	BaseURL   string
	APIKey    string        // sent as a bearer token when set
	Timeout   time.Duration // per-request; zero means 30s
	RateLimit float64       // client-side requests per second, zero disables
}

// Resource is a piece of content the MCP server exposes alongside tools.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// Client talks to an MCP server over HTTP and implements tool.Port. It is
// safe for concurrent use.
type Client struct {
	cfg     Config
	httpc   *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// Connect probes the server's health endpoint and fails when the server is
// unreachable or reports anything but ok.
func (c *Client) Connect(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", nil, &body); err != nil {
		return errors.Wrap(err, "mcp health check")
	}
	if body.Status != "ok" {
		return errors.Errorf("mcp server unhealthy: status %q", body.Status)
	}
	c.logger.Infof("Connected to MCP server at %s", c.cfg.BaseURL)
	return nil
}

// Ping reports whether the server currently answers its health probe.
func (c *Client) Ping(ctx context.Context) bool {
	if err := c.Connect(ctx); err != nil {
		c.logger.Errorf("MCP ping failed: %v", err)
		return false
	}
	return true
}

// DiscoverTools lists the tools the server advertises.
func (c *Client) DiscoverTools(ctx context.Context) ([]tool.Descriptor, error) {
	var body struct {
		Tools []tool.Descriptor `json:"tools"`
	}
	if err := c.getJSON(ctx, "/tools", nil, &body); err != nil {
		return nil, errors.Wrap(err, "listing tools")
	}
	return body.Tools, nil
}

// CallTool invokes a named tool. Server-reported failures come back as a
// *tool.ToolError; transport failures keep their underlying error so the
// caller can still detect context cancellation and deadlines.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	start := time.Now()
	payload := map[string]interface{}{
		"tool":      name,
		"arguments": args,
	}

	resp, err := c.do(ctx, http.MethodPost, "/tools/call", nil, payload)
	if err != nil {
		metrics.ToolCallDuration.WithLabelValues(name, "error").Observe(time.Since(start).Seconds())
		return nil, &tool.ToolError{Code: tool.CodeTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ToolCallDuration.WithLabelValues(name, "error").Observe(time.Since(start).Seconds())
		terr := decodeToolError(resp)
		c.logger.Errorf("Tool %s failed: %v", name, terr)
		return nil, terr
	}

	var out interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		metrics.ToolCallDuration.WithLabelValues(name, "error").Observe(time.Since(start).Seconds())
		return nil, errors.Wrapf(err, "decoding result of tool %s", name)
	}
	metrics.ToolCallDuration.WithLabelValues(name, "ok").Observe(time.Since(start).Seconds())
	c.logger.Debugf("Tool %s called in %s", name, time.Since(start))
	return out, nil
}

// Resources lists the resources the server exposes.
func (c *Client) Resources(ctx context.Context) ([]Resource, error) {
	var body struct {
		Resources []Resource `json:"resources"`
	}
	if err := c.getJSON(ctx, "/resources", nil, &body); err != nil {
		return nil, errors.Wrap(err, "listing resources")
	}
	return body.Resources, nil
}

// ReadResource fetches one resource by uri.
func (c *Client) ReadResource(ctx context.Context, uri string) (interface{}, error) {
	var out interface{}
	q := url.Values{"uri": {uri}}
	if err := c.getJSON(ctx, "/resources/read", q, &out); err != nil {
		return nil, errors.Wrapf(err, "reading resource %s", uri)
	}
	return out, nil
}

// Info returns the server's self-description.
func (c *Client) Info(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.getJSON(ctx, "/info", nil, &out); err != nil {
		return nil, errors.Wrap(err, "fetching server info")
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return c.httpc.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeToolError turns a non-2xx tool call response into a ToolError,
// accepting both {"code","message"} and bare {"error"} payloads.
func decodeToolError(resp *http.Response) *tool.ToolError {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = resp.Status
	}

	code := body.Code
	if code == "" {
		switch {
		case resp.StatusCode == http.StatusNotFound:
			code = tool.CodeNotFound
		case resp.StatusCode >= 500:
			code = tool.CodeServerError
		default:
			code = tool.CodeInvocation
		}
	}
	return &tool.ToolError{Code: code, Message: msg}
}
