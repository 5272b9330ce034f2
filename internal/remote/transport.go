package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Method names one remote endpoint
type Method struct {
	Verb string
	Path string
}

func (m Method) String() string {
	return m.Verb + " " + m.Path
}

// Request is a single call handed to a Transport
type Request struct {
	Method  Method
	Token   string
	Payload any
}

// Response is the raw outcome of a call
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs one request without any retry logic
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport sends JSON requests to the game API
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for cfg.BaseURL
func NewHTTPTransport(cfg Config) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Ensure HTTPTransport implements Transport
var _ Transport = (*HTTPTransport)(nil)

// Do performs an HTTP request
func (t *HTTPTransport) Do(ctx context.Context, r *Request) (*Response, error) {
	url := t.baseURL + r.Method.Path

	var bodyReader io.Reader
	if r.Payload != nil {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method.Verb, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if r.Payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
