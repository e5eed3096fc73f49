// Package rest implements the sdk.Client and sdk.SessionClient
// contracts against the Xumm platform REST API. A key+secret pair
// authenticates with API headers; a session token authenticates as a
// bearer; an API key plus a bridge-supplied one-time token drives the
// xApp token exchange lazily on first use.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

// Config carries the transport settings, decodable from the
// environment.
type Config struct {
	Endpoint string        `env:"XUMM_API_ENDPOINT,default=https://xumm.app/api/v1"`
	Timeout  time.Duration `env:"XUMM_API_TIMEOUT,default=30s"`
}

// ConfigFromEnv reads Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode rest config: %w", err)
	}
	return cfg, nil
}

// APIError is a non-2xx platform response.
type APIError struct {
	Status    int    `json:"-"`
	Code      int    `json:"code"`
	Reference string `json:"reference"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest: api error (status %d, code %d, reference %q)", e.Status, e.Code, e.Reference)
}

// ErrNoOneTimeToken indicates a session data fetch was attempted on a
// client constructed without a one-time token or session token.
var ErrNoOneTimeToken = errors.New("rest: no one-time token available")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// Client is a REST-backed platform SDK. It implements both sdk.Client
// and sdk.SessionClient; the credential mode decides which methods are
// meaningful.
type Client struct {
	http     *http.Client
	endpoint string

	apiKey    string
	apiSecret string
	ott       string

	mu     sync.Mutex
	bearer string
	cached *sdk.OttData
}

var (
	_ sdk.Client        = (*Client)(nil)
	_ sdk.SessionClient = (*Client)(nil)
)

func newClient(opts []Option) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := url.Parse(c.endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	return c, nil
}

// New returns a key+secret authenticated client.
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	c.apiKey = apiKey
	c.apiSecret = apiSecret
	return c, nil
}

// NewWithToken returns a bearer-authenticated client for an issued
// session token.
func NewWithToken(token string, opts ...Option) (*Client, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	c.bearer = token
	return c, nil
}

// NewSessionClient returns the token-issued SDK variant. credential is
// either a raw session token (used as bearer directly) or an API key;
// in the latter case ott seeds the xApp token exchange performed
// lazily by OttData and JWT.
func NewSessionClient(credential, ott string, opts ...Option) (*Client, error) {
	if strings.Count(credential, ".") == 2 {
		return NewWithToken(credential, opts...)
	}
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	c.apiKey = credential
	c.ott = ott
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	bearer := c.bearer
	c.mu.Unlock()
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("X-API-Key", c.apiKey)
		if c.apiSecret != "" {
			req.Header.Set("X-API-Secret", c.apiSecret)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Reference = envelope.Error.Reference
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) (*sdk.Pong, error) {
	var pong sdk.Pong
	if err := c.do(ctx, http.MethodGet, "/platform/ping", nil, &pong); err != nil {
		return nil, err
	}
	return &pong, nil
}

func (c *Client) CuratedAssets(ctx context.Context) (*sdk.CuratedAssets, error) {
	var assets sdk.CuratedAssets
	if err := c.do(ctx, http.MethodGet, "/platform/curated-assets", nil, &assets); err != nil {
		return nil, err
	}
	return &assets, nil
}

func (c *Client) KycStatus(ctx context.Context, account string) (string, error) {
	var out struct {
		KycApproved bool `json:"kycApproved"`
	}
	if err := c.do(ctx, http.MethodGet, "/platform/kyc-status/"+url.PathEscape(account), nil, &out); err != nil {
		return "", err
	}
	if out.KycApproved {
		return "SUCCESSFUL", nil
	}
	return "NONE", nil
}

func (c *Client) Transaction(ctx context.Context, txid string) (*sdk.Transaction, error) {
	var tx sdk.Transaction
	if err := c.do(ctx, http.MethodGet, "/platform/xrpl-tx/"+url.PathEscape(txid), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) VerifyUserTokens(ctx context.Context, tokens []string) ([]sdk.TokenValidity, error) {
	var out struct {
		Tokens []sdk.TokenValidity `json:"tokens"`
	}
	body := map[string][]string{"tokens": tokens}
	if err := c.do(ctx, http.MethodPost, "/platform/tokens", body, &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

func (c *Client) Rates(ctx context.Context, currency string) (sdk.Rates, error) {
	var rates sdk.Rates
	if err := c.do(ctx, http.MethodGet, "/platform/rates/"+url.PathEscape(currency), nil, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

func (c *Client) NftokenDetail(ctx context.Context, tokenID string) (*sdk.NftokenDetail, error) {
	var detail sdk.NftokenDetail
	if err := c.do(ctx, http.MethodGet, "/platform/nftoken-detail/"+url.PathEscape(tokenID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// OttData returns the one-time-token data, fetching and caching it on
// first use.
func (c *Client) OttData(ctx context.Context) (*sdk.OttData, error) {
	c.mu.Lock()
	if c.cached != nil {
		defer c.mu.Unlock()
		return c.cached, nil
	}
	ott := c.ott
	c.mu.Unlock()

	if ott == "" {
		return nil, ErrNoOneTimeToken
	}

	var data sdk.OttData
	if err := c.do(ctx, http.MethodGet, "/platform/xapp/ott/"+url.PathEscape(ott), nil, &data); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cached = &data
	c.mu.Unlock()
	return &data, nil
}

// JWT returns the session token for this client, exchanging the
// one-time token on first use.
func (c *Client) JWT(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.bearer != "" {
		defer c.mu.Unlock()
		return c.bearer, nil
	}
	ott := c.ott
	c.mu.Unlock()

	if ott == "" {
		return "", ErrNoOneTimeToken
	}

	var out struct {
		JWT string `json:"jwt"`
	}
	if err := c.do(ctx, http.MethodGet, "/platform/xapp/jwt/"+url.PathEscape(ott), nil, &out); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.bearer = out.JWT
	c.mu.Unlock()
	return out.JWT, nil
}

func (c *Client) Payloads() sdk.Payloads         { return payloadsAPI{c} }
func (c *Client) Push() sdk.Push                 { return pushAPI{c} }
func (c *Client) UserStore() sdk.UserStore       { return userStoreAPI{c} }
func (c *Client) BackendStore() sdk.BackendStore { return backendStoreAPI{c} }

type payloadsAPI struct{ c *Client }

func (p payloadsAPI) Create(ctx context.Context, req *sdk.PayloadRequest) (*sdk.CreatedPayload, error) {
	var out sdk.CreatedPayload
	if err := p.c.do(ctx, http.MethodPost, "/platform/payload", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p payloadsAPI) Get(ctx context.Context, uuid string) (*sdk.Payload, error) {
	var out sdk.Payload
	if err := p.c.do(ctx, http.MethodGet, "/platform/payload/"+url.PathEscape(uuid), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p payloadsAPI) Cancel(ctx context.Context, uuid string) (*sdk.CancelledPayload, error) {
	var out sdk.CancelledPayload
	if err := p.c.do(ctx, http.MethodDelete, "/platform/payload/"+url.PathEscape(uuid), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type pushAPI struct{ c *Client }

func (p pushAPI) Notification(ctx context.Context, body *sdk.PushBody) (*sdk.PushResult, error) {
	var out sdk.PushResult
	if err := p.c.do(ctx, http.MethodPost, "/platform/xapp/push", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p pushAPI) Event(ctx context.Context, body *sdk.PushBody) (*sdk.PushResult, error) {
	var out sdk.PushResult
	if err := p.c.do(ctx, http.MethodPost, "/platform/xapp/event", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type userStoreAPI struct{ c *Client }

func (u userStoreAPI) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	path := "/platform/jwt/userdata"
	if len(keys) > 0 {
		path += "/" + url.PathEscape(strings.Join(keys, ","))
	}
	var out struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := u.c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (u userStoreAPI) Set(ctx context.Context, key string, value json.RawMessage) (bool, error) {
	var out struct {
		Stored bool `json:"stored"`
	}
	if err := u.c.do(ctx, http.MethodPost, "/platform/jwt/userdata/"+url.PathEscape(key), value, &out); err != nil {
		return false, err
	}
	return out.Stored, nil
}

func (u userStoreAPI) Delete(ctx context.Context, key string) (bool, error) {
	var out struct {
		Stored bool `json:"stored"`
	}
	if err := u.c.do(ctx, http.MethodDelete, "/platform/jwt/userdata/"+url.PathEscape(key), nil, &out); err != nil {
		return false, err
	}
	return out.Stored, nil
}

type backendStoreAPI struct{ c *Client }

func (b backendStoreAPI) Get(ctx context.Context) (json.RawMessage, error) {
	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if err := b.c.do(ctx, http.MethodGet, "/platform/app-storage", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (b backendStoreAPI) Set(ctx context.Context, value json.RawMessage) (bool, error) {
	var out struct {
		Stored bool `json:"stored"`
	}
	if err := b.c.do(ctx, http.MethodPost, "/platform/app-storage", value, &out); err != nil {
		return false, err
	}
	return out.Stored, nil
}

func (b backendStoreAPI) Delete(ctx context.Context) (bool, error) {
	var out struct {
		Stored bool `json:"stored"`
	}
	if err := b.c.do(ctx, http.MethodDelete, "/platform/app-storage", nil, &out); err != nil {
		return false, err
	}
	return out.Stored, nil
}
