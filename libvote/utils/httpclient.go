package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// Default http client timeout in secs.
	defaultHTTPClientTimeout = 10 * time.Second
)

type (
	// Client is the base for http/https calls
	Client struct {
		httpClient *http.Client
	}

	// ReqConfig models the configuration options for requests.
	ReqConfig struct {
		Payload []byte
		Method  string
		HTTPURL string
		Headers map[string]string
		Cookies []*http.Cookie
		// If IsRetByte is set to true, client.Do will delegate
		// response processing to caller.
		IsRetByte bool
	}
)

// NewClient configures and return a new client
func NewClient(timeout time.Duration) (c *Client) {
	if timeout <= 0 {
		timeout = defaultHTTPClientTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

func (c *Client) requestFilter(ctx context.Context, reqConfig *ReqConfig) (req *http.Request, err error) {
	req, err = http.NewRequestWithContext(ctx, reqConfig.Method, reqConfig.HTTPURL, bytes.NewBuffer(reqConfig.Payload))
	if err != nil {
		return
	}
	if reqConfig.Method == http.MethodPost || reqConfig.Method == http.MethodPut {
		req.Header.Add("Content-Type", "application/json;charset=utf-8")
	}
	req.Header.Add("Accept", "application/json")
	for k, v := range reqConfig.Headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range reqConfig.Cookies {
		req.AddCookie(cookie)
	}
	return
}

// Do prepares and processes an HTTP request to backend resources. The
// response is returned whenever the server answered, including non-200
// statuses, so callers can act on the status code.
func (c *Client) Do(ctx context.Context, reqConfig *ReqConfig, response interface{}) (*http.Response, error) {
	if _, err := url.ParseRequestURI(reqConfig.HTTPURL); err != nil {
		return nil, fmt.Errorf("error: url not properly constituted: %v", err)
	}

	req, err := c.requestFilter(ctx, reqConfig)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("error: nil request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	// Allow the caller to read the body again.
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if resp.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("error: status: %v resp: %s", resp.Status, body)
	}

	// if IsRetByte is option is true. Response from the resource queried
	// is not in json format, don't unmarshal return response byte slice to
	// the caller for further processing.
	if reqConfig.IsRetByte {
		if b, ok := response.(*[]byte); ok {
			*b = append((*b)[:0], body...)
		}
		return resp, nil
	}

	if response == nil || len(body) == 0 {
		return resp, nil
	}
	return resp, json.Unmarshal(body, response)
}
