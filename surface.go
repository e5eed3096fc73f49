package xumm

import (
	"context"
	"encoding/json"

	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

// The exposed sub-APIs wrap the active platform SDK behind an explicit
// "wait for readiness, then delegate" method per operation. This turns
// the partially asynchronous vendor surface into a uniformly blocking
// one without any reflection: a call made before bootstrap completes
// simply resolves against the collaborator once it exists.

func (c *Client) resolveClient(ctx context.Context) (sdk.Client, error) {
	if err := c.sess.gate.Wait(ctx); err != nil {
		return nil, err
	}
	cl := c.sess.activeClient()
	if cl == nil {
		return nil, ErrNoActiveClient
	}
	return cl, nil
}

// Payloads is the readiness-gated payload CRUD surface.
type Payloads struct {
	c *Client
}

func (p *Payloads) Create(ctx context.Context, req *sdk.PayloadRequest) (*sdk.CreatedPayload, error) {
	cl, err := p.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Payloads().Create(ctx, req)
}

func (p *Payloads) Get(ctx context.Context, uuid string) (*sdk.Payload, error) {
	cl, err := p.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Payloads().Get(ctx, uuid)
}

func (p *Payloads) Cancel(ctx context.Context, uuid string) (*sdk.CancelledPayload, error) {
	cl, err := p.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Payloads().Cancel(ctx, uuid)
}

// Push is the readiness-gated push surface.
type Push struct {
	c *Client
}

func (p *Push) Notification(ctx context.Context, body *sdk.PushBody) (*sdk.PushResult, error) {
	cl, err := p.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Push().Notification(ctx, body)
}

func (p *Push) Event(ctx context.Context, body *sdk.PushBody) (*sdk.PushResult, error) {
	cl, err := p.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Push().Event(ctx, body)
}

// UserStore is the readiness-gated per-user key/value store.
type UserStore struct {
	c *Client
}

func (u *UserStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	cl, err := u.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.UserStore().Get(ctx, keys...)
}

func (u *UserStore) Set(ctx context.Context, key string, value json.RawMessage) (bool, error) {
	cl, err := u.c.resolveClient(ctx)
	if err != nil {
		return false, err
	}
	return cl.UserStore().Set(ctx, key, value)
}

func (u *UserStore) Delete(ctx context.Context, key string) (bool, error) {
	cl, err := u.c.resolveClient(ctx)
	if err != nil {
		return false, err
	}
	return cl.UserStore().Delete(ctx, key)
}

// BackendStore is the readiness-gated application storage.
type BackendStore struct {
	c *Client
}

func (b *BackendStore) Get(ctx context.Context) (json.RawMessage, error) {
	cl, err := b.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.BackendStore().Get(ctx)
}

func (b *BackendStore) Set(ctx context.Context, value json.RawMessage) (bool, error) {
	cl, err := b.c.resolveClient(ctx)
	if err != nil {
		return false, err
	}
	return cl.BackendStore().Set(ctx, value)
}

func (b *BackendStore) Delete(ctx context.Context) (bool, error) {
	cl, err := b.c.resolveClient(ctx)
	if err != nil {
		return false, err
	}
	return cl.BackendStore().Delete(ctx)
}

// Helpers exposes the platform SDK's lookup helpers behind the
// readiness gate.
type Helpers struct {
	c *Client
}

func (h *Helpers) Ping(ctx context.Context) (*sdk.Pong, error) {
	cl, err := h.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Ping(ctx)
}

func (h *Helpers) CuratedAssets(ctx context.Context) (*sdk.CuratedAssets, error) {
	cl, err := h.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.CuratedAssets(ctx)
}

func (h *Helpers) KycStatus(ctx context.Context, account string) (string, error) {
	cl, err := h.c.resolveClient(ctx)
	if err != nil {
		return "", err
	}
	return cl.KycStatus(ctx, account)
}

func (h *Helpers) Transaction(ctx context.Context, txid string) (*sdk.Transaction, error) {
	cl, err := h.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Transaction(ctx, txid)
}

func (h *Helpers) VerifyUserTokens(ctx context.Context, tokens []string) ([]sdk.TokenValidity, error) {
	cl, err := h.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.VerifyUserTokens(ctx, tokens)
}

func (h *Helpers) Rates(ctx context.Context, currency string) (sdk.Rates, error) {
	cl, err := h.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Rates(ctx, currency)
}

func (h *Helpers) NftokenDetail(ctx context.Context, tokenID string) (*sdk.NftokenDetail, error) {
	cl, err := h.c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	return cl.NftokenDetail(ctx, tokenID)
}
