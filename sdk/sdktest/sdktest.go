// Package sdktest provides in-memory fakes for every collaborator
// contract in the sdk package. The fakes record call counts, return
// canned values and let tests emit collaborator events and gate
// bootstrap fetches deterministically.
package sdktest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xrpl-labs/xumm-universal-go/events"
	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

// Broadcaster implements sdk.EventSource with one independent buffered
// channel per subscriber.
type Broadcaster struct {
	mu   sync.Mutex
	seq  int
	subs map[int]chan events.Event
}

func (b *Broadcaster) Subscribe() (<-chan events.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]chan events.Event)
	}
	b.seq++
	id := b.seq
	ch := make(chan events.Event, 16)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Emit delivers an event to every current subscriber.
func (b *Broadcaster) Emit(ev events.Event) {
	b.mu.Lock()
	chans := make([]chan events.Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chans = append(chans, ch)
	}
	b.mu.Unlock()
	for _, ch := range chans {
		ch <- ev
	}
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Client is a fake sdk.Client with canned responses and call counters.
type Client struct {
	mu sync.Mutex

	PingCalls int
	Pong      *sdk.Pong
	Err       error

	Assets   *sdk.CuratedAssets
	Kyc      string
	Tx       *sdk.Transaction
	Validity []sdk.TokenValidity
	RatesMap sdk.Rates
	Nft      *sdk.NftokenDetail

	Store map[string]json.RawMessage
	Doc   json.RawMessage
}

var _ sdk.Client = (*Client)(nil)

func (c *Client) Ping(ctx context.Context) (*sdk.Pong, error) {
	c.mu.Lock()
	c.PingCalls++
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Pong != nil {
		return c.Pong, nil
	}
	return &sdk.Pong{Pong: true}, nil
}

func (c *Client) CuratedAssets(ctx context.Context) (*sdk.CuratedAssets, error) {
	return c.Assets, c.Err
}

func (c *Client) KycStatus(ctx context.Context, account string) (string, error) {
	return c.Kyc, c.Err
}

func (c *Client) Transaction(ctx context.Context, txid string) (*sdk.Transaction, error) {
	return c.Tx, c.Err
}

func (c *Client) VerifyUserTokens(ctx context.Context, tokens []string) ([]sdk.TokenValidity, error) {
	return c.Validity, c.Err
}

func (c *Client) Rates(ctx context.Context, currency string) (sdk.Rates, error) {
	return c.RatesMap, c.Err
}

func (c *Client) NftokenDetail(ctx context.Context, tokenID string) (*sdk.NftokenDetail, error) {
	return c.Nft, c.Err
}

func (c *Client) Payloads() sdk.Payloads         { return noopPayloads{} }
func (c *Client) Push() sdk.Push                 { return noopPush{} }
func (c *Client) UserStore() sdk.UserStore       { return storeAPI{c} }
func (c *Client) BackendStore() sdk.BackendStore { return docAPI{c} }

type noopPayloads struct{}

func (noopPayloads) Create(ctx context.Context, req *sdk.PayloadRequest) (*sdk.CreatedPayload, error) {
	return &sdk.CreatedPayload{UUID: "00000000-0000-4000-8000-000000000000"}, nil
}
func (noopPayloads) Get(ctx context.Context, uuid string) (*sdk.Payload, error) {
	return &sdk.Payload{Meta: sdk.PayloadMeta{UUID: uuid, Exists: true}}, nil
}
func (noopPayloads) Cancel(ctx context.Context, uuid string) (*sdk.CancelledPayload, error) {
	out := &sdk.CancelledPayload{}
	out.Result.Cancelled = true
	return out, nil
}

type noopPush struct{}

func (noopPush) Notification(ctx context.Context, body *sdk.PushBody) (*sdk.PushResult, error) {
	return &sdk.PushResult{Pushed: true}, nil
}
func (noopPush) Event(ctx context.Context, body *sdk.PushBody) (*sdk.PushResult, error) {
	return &sdk.PushResult{Pushed: true}, nil
}

type storeAPI struct{ c *Client }

func (s storeAPI) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		for k, v := range s.c.Store {
			out[k] = v
		}
		return out, nil
	}
	for _, k := range keys {
		if v, ok := s.c.Store[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s storeAPI) Set(ctx context.Context, key string, value json.RawMessage) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.Store == nil {
		s.c.Store = make(map[string]json.RawMessage)
	}
	s.c.Store[key] = value
	return true, nil
}

func (s storeAPI) Delete(ctx context.Context, key string) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	delete(s.c.Store, key)
	return true, nil
}

type docAPI struct{ c *Client }

func (d docAPI) Get(ctx context.Context) (json.RawMessage, error) {
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	return d.c.Doc, nil
}

func (d docAPI) Set(ctx context.Context, value json.RawMessage) (bool, error) {
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	d.c.Doc = value
	return true, nil
}

func (d docAPI) Delete(ctx context.Context) (bool, error) {
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	d.c.Doc = nil
	return true, nil
}

// SessionClient is a fake sdk.SessionClient. When Release is non-nil,
// OttData blocks until it is closed, letting tests hold the bootstrap
// open deliberately.
type SessionClient struct {
	Client

	Ott    *sdk.OttData
	Token  string
	OttErr error
	JwtErr error

	Release chan struct{}

	OttCalls int
	JwtCalls int
}

var _ sdk.SessionClient = (*SessionClient)(nil)

func (s *SessionClient) OttData(ctx context.Context) (*sdk.OttData, error) {
	s.mu.Lock()
	s.OttCalls++
	release := s.Release
	s.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Ott, s.OttErr
}

func (s *SessionClient) JWT(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.JwtCalls++
	s.mu.Unlock()
	return s.Token, s.JwtErr
}

// PKCE is a fake authorization-flow handler. Tests drive it by setting
// Resolved and emitting retrieved/success events.
type PKCE struct {
	Broadcaster

	mu       sync.Mutex
	Resolved *sdk.ResolvedFlow
	StateErr error
	AuthErr  error

	AuthorizeCalls int
	StateCalls     int
	LogoutCalls    int
}

var _ sdk.PKCE = (*PKCE)(nil)

// SetResolved installs the flow that State and Authorize will return.
func (p *PKCE) SetResolved(flow *sdk.ResolvedFlow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Resolved = flow
}

func (p *PKCE) Authorize(ctx context.Context) (*sdk.ResolvedFlow, error) {
	p.mu.Lock()
	p.AuthorizeCalls++
	flow, err := p.Resolved, p.AuthErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return flow, nil
}

func (p *PKCE) State(ctx context.Context) (*sdk.ResolvedFlow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StateCalls++
	return p.Resolved, p.StateErr
}

func (p *PKCE) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LogoutCalls++
	p.Resolved = nil
	return nil
}

// Bridge is a fake WebView bridge.
type Bridge struct {
	Broadcaster

	Env *sdk.BridgeEnvironment

	SelectCalls int
}

var _ sdk.Bridge = (*Bridge)(nil)

func (b *Bridge) Environment() *sdk.BridgeEnvironment { return b.Env }

func (b *Bridge) SelectDestination(ctx context.Context) error {
	b.SelectCalls++
	return nil
}
