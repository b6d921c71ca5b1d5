package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/metrics"
	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// AuthHeader carries the session token.
const AuthHeader = "TTD-Auth"

const authEndpoint = "authentication"

// Session attaches a token to requests bound for the API host. The token is
// fetched on first use and dropped when the API answers 403; the request is
// then retried once with a fresh token.
type Session struct {
	base     *url.URL
	login    string
	password string
	expiry   int
	next     Doer
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu    sync.Mutex
	token string
}

// NewSession creates a session against baseURL. The base URL should end in
// a slash; endpoints are resolved under it.
func NewSession(baseURL, login, password string, expiryMinutes int, next Doer, log *zap.Logger, m *metrics.Metrics) (*Session, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, types.NewConfigError("invalid base url %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		base:     u,
		login:    login,
		password: password,
		expiry:   expiryMinutes,
		next:     next,
		log:      log,
		metrics:  m,
	}, nil
}

// URL resolves endpoint under the base URL. Leading slashes are ignored so
// "/campaign" and "campaign" are the same endpoint.
func (s *Session) URL(endpoint string) string {
	return s.base.String() + strings.TrimLeft(endpoint, "/")
}

// Token returns the current token, authenticating first when there is none.
// Concurrent callers wait for a single authentication exchange.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	tok, err := s.authenticate(ctx)
	if err != nil {
		return "", err
	}
	s.token = tok
	return tok, nil
}

// invalidate drops stale unless another caller already replaced it.
func (s *Session) invalidate(stale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == stale {
		s.token = ""
	}
}

func (s *Session) authenticate(ctx context.Context) (string, error) {
	s.log.Debug("Getting new access token")
	body, err := json.Marshal(map[string]any{
		"Login":                    s.login,
		"Password":                 s.password,
		"TokenExpirationInMinutes": s.expiry,
	})
	if err != nil {
		return "", fmt.Errorf("encode authentication request: %w", err)
	}

	u := s.URL(authEndpoint)
	resp, err := s.next.Do(ctx, &Request{Method: http.MethodPost, URL: u, Body: body, Auth: true})
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	s.metrics.TokenRefreshed()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", types.NewConfigError("authentication rejected, check login and password: %s", resp.Body)
	}
	if !resp.OK() {
		return "", &HTTPError{StatusCode: resp.StatusCode, Method: http.MethodPost, URL: u, Body: string(resp.Body)}
	}

	var out struct {
		Token string `json:"Token"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode authentication response: %w", err)
	}
	if out.Token == "" {
		return "", &types.InternalError{Msg: "authentication response carries no token"}
	}
	return out.Token, nil
}

// Do sends req with the token attached. A 403 answer triggers exactly one
// token refresh and one retry; the retry's outcome is returned as is.
func (s *Session) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := s.checkHost(req.URL); err != nil {
		return nil, err
	}

	tok, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := s.send(ctx, req, tok)
	if err != nil || resp.StatusCode != http.StatusForbidden {
		return resp, err
	}

	s.log.Debug("Token expired or invalid, trying again")
	s.invalidate(tok)
	if tok, err = s.Token(ctx); err != nil {
		return nil, err
	}
	return s.send(ctx, req, tok)
}

func (s *Session) send(ctx context.Context, req *Request, tok string) (*Response, error) {
	r := *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set(AuthHeader, tok)
	return s.next.Do(ctx, &r)
}

func (s *Session) checkHost(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid request url %q: %w", raw, err)
	}
	if !strings.EqualFold(u.Scheme, s.base.Scheme) || !strings.EqualFold(u.Host, s.base.Host) {
		return &types.InternalError{Msg: fmt.Sprintf("refusing to send credentials to %s://%s, session is bound to %s", u.Scheme, u.Host, s.base.Host)}
	}
	return nil
}
