package loadgen

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Timeout constants for the shared load client
const (
	TCPDialTimeout        = 5 * time.Second
	TCPKeepAliveInterval  = 30 * time.Second
	TLSHandshakeTimeout   = 5 * time.Second
	IdleConnTimeout       = 90 * time.Second
	ExpectContinueTimeout = 1 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// DefaultHeaders are sent with every request unless overridden
var DefaultHeaders = map[string]string{
	"Accept":        "text/html",
	"Cache-Control": "no-cache",
}

// ClientOptions configures the shared HTTP client
type ClientOptions struct {
	MaxConns           int
	Timeout            time.Duration
	HTTP2              bool
	InsecureSkipVerify bool
}

// NewHTTPClient creates an HTTP client tuned for load generation
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 64
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns * 2,
		IdleConnTimeout:     IdleConnTimeout,
		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: TCPKeepAliveInterval,
		}).DialContext,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}

	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if opts.HTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("failed to configure http2 transport: %w", err)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

// HTTPRequester issues requests through a shared http.Client
type HTTPRequester struct {
	client *http.Client
}

// NewHTTPRequester wraps client; a nil client uses NewHTTPClient defaults
func NewHTTPRequester(client *http.Client) *HTTPRequester {
	if client == nil {
		client, _ = NewHTTPClient(ClientOptions{})
	}
	return &HTTPRequester{client: client}
}

// Do implements Requester. The duration spans until the body is fully read.
func (r *HTTPRequester) Do(ctx context.Context, req *Request) Response {
	start := time.Now()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return Response{Duration: time.Since(start), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for key, value := range DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Response{Duration: time.Since(start), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Duration:   duration,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		StatusCode: resp.StatusCode,
		Duration:   duration,
		Body:       respBody,
	}
}
