package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// Request is one outgoing exchange.
type Request struct {
	Method string
	URL    string
	Body   []byte
	Header http.Header

	// Auth marks the authentication exchange.
	Auth bool
}

// Response is the raw result of an exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Doer performs a single exchange. A non-2xx status is not an error at this
// level; only transport failures are.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport sends requests over net/http, optionally throttled.
type Transport struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewTransport wraps hc. rps <= 0 disables throttling; a nil hc uses
// http.DefaultClient.
func NewTransport(hc *http.Client, rps float64) *Transport {
	if hc == nil {
		hc = http.DefaultClient
	}
	t := &Transport{httpClient: hc}
	if rps > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return t
}

func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
