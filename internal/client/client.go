// Package client talks to The Trade Desk REST API.
//
// Requests flow through three layers: the Session attaches the token and
// handles the refresh-once protocol, the LoggingTransport writes every
// exchange to the audit log, and the Transport does the HTTP work.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/metrics"
	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// Options configures a Client.
type Options struct {
	BaseURL                string
	Login                  string
	Password               string
	TokenExpirationMinutes int

	// RequestsPerSecond throttles outgoing calls. 0 disables throttling.
	RequestsPerSecond float64

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	Audit   Recorder
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Client exposes verb and entity methods returning parsed JSON.
type Client struct {
	session *Session
}

// New assembles the transport stack described by opts.
func New(opts Options) (*Client, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	logged := &LoggingTransport{
		Next:    NewTransport(opts.HTTPClient, opts.RequestsPerSecond),
		Audit:   opts.Audit,
		Metrics: opts.Metrics,
		Log:     log,
	}
	s, err := NewSession(opts.BaseURL, opts.Login, opts.Password, opts.TokenExpirationMinutes, logged, log, opts.Metrics)
	if err != nil {
		return nil, err
	}
	return &Client{session: s}, nil
}

// Session returns the underlying session.
func (c *Client) Session() *Session { return c.session }

// =============================================================================
// VERBS
// =============================================================================

// Request sends body (nil for none) as JSON to endpoint and returns the
// decoded response. Numbers decode as json.Number.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (any, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, endpoint, err)
		}
	}

	u := c.session.URL(endpoint)
	resp, err := c.session.Do(ctx, &Request{Method: method, URL: u, Body: data})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Method: method, URL: u, Body: string(resp.Body)}
	}
	return decode(resp.Body)
}

func (c *Client) Get(ctx context.Context, endpoint string) (any, error) {
	return c.Request(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) Post(ctx context.Context, endpoint string, body any) (any, error) {
	return c.Request(ctx, http.MethodPost, endpoint, body)
}

func (c *Client) Put(ctx context.Context, endpoint string, body any) (any, error) {
	return c.Request(ctx, http.MethodPut, endpoint, body)
}

func decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// =============================================================================
// ENTITIES
// =============================================================================

func (c *Client) CreateCampaign(ctx context.Context, payload types.Document) (types.Document, error) {
	return c.object(ctx, http.MethodPost, "campaign", payload)
}

func (c *Client) CreateAdGroup(ctx context.Context, payload types.Document) (types.Document, error) {
	return c.object(ctx, http.MethodPost, "adgroup", payload)
}

func (c *Client) UpdateCampaign(ctx context.Context, payload types.Document) (types.Document, error) {
	return c.object(ctx, http.MethodPut, "campaign", payload)
}

func (c *Client) UpdateAdGroup(ctx context.Context, payload types.Document) (types.Document, error) {
	return c.object(ctx, http.MethodPut, "adgroup", payload)
}

func (c *Client) CloneCampaign(ctx context.Context, payload types.Document) (types.Document, error) {
	return c.object(ctx, http.MethodPost, "campaign/clone", payload)
}

// GetSiteList fetches one site list.
func (c *Client) GetSiteList(ctx context.Context, id string) (types.Document, error) {
	return c.object(ctx, http.MethodGet, "sitelist/"+url.PathEscape(id), nil)
}

// IndustryCategories lists the industry categories ad groups may reference.
func (c *Client) IndustryCategories(ctx context.Context) (any, error) {
	return c.Get(ctx, "category/industrycategories")
}

func (c *Client) object(ctx context.Context, method, endpoint string, body any) (types.Document, error) {
	v, err := c.Request(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s %s: expected a JSON object, got %T", method, endpoint, v)
	}
	return doc, nil
}
