package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
)

// Client wraps resty for calls to the external platform and LLM APIs.
// Retries are left to the caller's job policy, so resty never retries.
type Client struct {
	r *resty.Client
}

// StatusError is returned for any response with a status code >= 400.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
	// RetryAfter is the server-provided wait, if any.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, body)
}

// New creates a new HTTP client with sensible defaults.
func New() *Client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(0)

	return &Client{r: r}
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithBearerToken sets a bearer token for authentication.
func (c *Client) WithBearerToken(token string) *Client {
	c.r.SetAuthToken(token)
	return c
}

// WithHeader sets a custom header.
func (c *Client) WithHeader(key, value string) *Client {
	c.r.SetHeader(key, value)
	return c
}

// WithBaseURL sets the URL prefix for relative request paths.
func (c *Client) WithBaseURL(url string) *Client {
	c.r.SetBaseURL(url)
	return c
}

// Request returns a new resty Request bound to ctx.
func (c *Client) Request(ctx context.Context) *resty.Request {
	return c.r.R().SetContext(ctx)
}

// GetJSON sends a GET request and decodes a JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, query map[string]string, out interface{}) (*resty.Response, error) {
	req := c.Request(ctx).SetQueryParams(query)
	resp, err := check(req.Get(url))
	return decode(resp, err, out)
}

// PostJSON sends a POST request with a JSON body and decodes the JSON response.
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) (*resty.Response, error) {
	req := c.Request(ctx).SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	resp, err := check(req.Post(url))
	return decode(resp, err, out)
}

// PostForm sends a POST request with form data and decodes the JSON response.
func (c *Client) PostForm(ctx context.Context, url string, data map[string]string, out interface{}) (*resty.Response, error) {
	req := c.Request(ctx).SetFormData(data)
	resp, err := check(req.Post(url))
	return decode(resp, err, out)
}

// PostFile sends a multipart upload with a single file field and decodes the
// JSON response.
func (c *Client) PostFile(ctx context.Context, url, field, name string, r io.Reader, out interface{}) (*resty.Response, error) {
	req := c.Request(ctx).SetFileReader(field, name, r)
	resp, err := check(req.Post(url))
	return decode(resp, err, out)
}

// Download fetches a resource as raw bytes.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := check(c.Request(ctx).Get(url))
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Raw returns the underlying resty client for advanced usage.
func (c *Client) Raw() *resty.Client {
	return c.r
}

// decode unmarshals a successful body into out whatever Content-Type the
// server sent. resty's SetResult only fires on a JSON Content-Type, and
// several platform APIs omit it.
func decode(resp *resty.Response, err error, out interface{}) (*resty.Response, error) {
	if err != nil || out == nil {
		return resp, err
	}
	body := resp.Body()
	if len(body) == 0 {
		return resp, nil
	}
	if uerr := json.Unmarshal(body, out); uerr != nil {
		return resp, errors.Wrapf(uerr, "%s %s: decode response", resp.Request.Method, resp.Request.URL)
	}
	return resp, nil
}

func check(resp *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return resp, err
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		se := &StatusError{
			Method: resp.Request.Method,
			URL:    resp.Request.URL,
			Code:   resp.StatusCode(),
			Body:   string(resp.Body()),
		}
		if ra := resp.Header().Get("Retry-After"); ra != "" {
			if secs, perr := time.ParseDuration(ra + "s"); perr == nil {
				se.RetryAfter = secs
			}
		}
		return resp, se
	}
	return resp, nil
}
