// Package directus reads and writes items through a Directus-compatible
// content REST API.
package directus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/lokalconnect/internal/pkg/metrics"
)

// APIError is a non-2xx response from the content API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("content api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("content api: %d %s", e.Status, e.Message)
}

type errorBody struct {
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

// Client is a minimal Directus REST client.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	token   string
	timeout time.Duration
}

// NewClient creates a client for the API rooted at baseURL. token may be empty.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		http: &fasthttp.Client{
			Name:                "lokalconnect",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 30 * time.Second,
		},
		baseURL: baseURL,
		token:   token,
		timeout: timeout,
	}
}

// WithHTTPClient replaces the underlying fasthttp client.
func (c *Client) WithHTTPClient(hc *fasthttp.Client) *Client {
	c.http = hc
	return c
}

// Ping checks the server health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", fasthttp.MethodGet, "/server/ping", nil, nil, nil)
}

// do sends a request and decodes the "data" envelope of the response into out.
func (c *Client) do(ctx context.Context, op, method, path string, query map[string]string, body, out any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range query {
		req.URI().QueryArgs().Add(k, v)
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(data)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	err := c.http.DoDeadline(req, resp, deadline)
	metrics.ContentRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ContentRequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	metrics.ContentRequests.WithLabelValues(op, strconv.Itoa(status)).Inc()

	if status < 200 || status > 299 {
		return decodeError(status, resp.Body())
	}
	if out == nil || status == fasthttp.StatusNoContent {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", op, err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status, Message: fasthttp.StatusMessage(status)}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && len(eb.Errors) > 0 {
		apiErr.Message = eb.Errors[0].Message
		apiErr.Code = eb.Errors[0].Extensions.Code
	}
	return apiErr
}
