package httpclient

import (
	"crypto/tls"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for calls to payment provider APIs.
type Client struct {
	r *resty.Client
}

// New creates a new HTTP client with sensible defaults. Gateway calls are
// retried twice; every call carries a bounded timeout.
func New() *Client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{r: r}
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithHeader sets a custom header.
func (c *Client) WithHeader(key, value string) *Client {
	c.r.SetHeader(key, value)
	return c
}

// WithBearerToken sets a bearer token for authentication.
func (c *Client) WithBearerToken(token string) *Client {
	c.r.SetAuthToken(token)
	return c
}

// WithInsecureSkipVerify disables TLS verification. Staging gateway hosts
// occasionally present incomplete chains.
func (c *Client) WithInsecureSkipVerify() *Client {
	c.r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	return c
}

// Get sends a GET request and returns the response body.
func (c *Client) Get(url string) ([]byte, error) {
	resp, err := c.r.R().Get(url)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(url string, body interface{}) ([]byte, error) {
	req := c.r.R().SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(url)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// PostForm sends a POST request with url-encoded form data.
func (c *Client) PostForm(url string, data map[string]string) ([]byte, error) {
	resp, err := c.r.R().SetFormData(data).Post(url)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
